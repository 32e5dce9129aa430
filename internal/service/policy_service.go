package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type PolicyService struct {
	repo PolicyRepo
	now  Clock
}

func NewPolicyService(repo PolicyRepo) *PolicyService {
	return &PolicyService{repo: repo, now: systemClock}
}

func (s *PolicyService) WithClock(c Clock) *PolicyService {
	s.now = c
	return s
}

func normalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

func normalizeRole(r string) string {
	return strings.ToUpper(strings.TrimSpace(r))
}

// ValidatePolicyInput checks the scope rules and the consistency of the limits.
func ValidatePolicyInput(in model.PolicyInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.NewInvalidRequest("policy name is required")
	}
	if normalizeCurrency(in.Currency) == "" {
		return apperrors.NewInvalidRequest("currency is required")
	}
	switch in.ScopeType {
	case model.ScopeRole:
		if normalizeRole(in.Role) == "" {
			return apperrors.NewInvalidRequest("ROLE scoped policy requires a role")
		}
	case model.ScopeGlobal:
		if strings.TrimSpace(in.Role) != "" {
			return apperrors.NewInvalidRequest("GLOBAL policy must not carry a role")
		}
	default:
		return apperrors.NewInvalidRequest(fmt.Sprintf("unknown scope type %q", in.ScopeType))
	}

	lim := in.PolicyLimits
	amounts := []struct {
		name string
		v    *decimal.Decimal
	}{
		{"daily_amount_limit", lim.DailyAmountLimit},
		{"weekly_amount_limit", lim.WeeklyAmountLimit},
		{"monthly_amount_limit", lim.MonthlyAmountLimit},
		{"min_single_withdrawal", lim.MinSingleWithdrawal},
		{"max_single_withdrawal", lim.MaxSingleWithdrawal},
	}
	for _, a := range amounts {
		if a.v != nil && a.v.IsNegative() {
			return apperrors.NewInvalidRequest(a.name + " must not be negative")
		}
	}
	counts := []struct {
		name string
		v    *int
	}{
		{"daily_count_limit", lim.DailyCountLimit},
		{"weekly_count_limit", lim.WeeklyCountLimit},
		{"monthly_count_limit", lim.MonthlyCountLimit},
	}
	for _, c := range counts {
		if c.v != nil && *c.v < 0 {
			return apperrors.NewInvalidRequest(c.name + " must not be negative")
		}
	}

	if lim.MinSingleWithdrawal != nil && lim.MaxSingleWithdrawal != nil &&
		lim.MinSingleWithdrawal.GreaterThan(*lim.MaxSingleWithdrawal) {
		return apperrors.NewInvalidRequest("min_single_withdrawal must not exceed max_single_withdrawal")
	}
	if lim.DailyAmountLimit != nil && lim.WeeklyAmountLimit != nil &&
		lim.DailyAmountLimit.GreaterThan(*lim.WeeklyAmountLimit) {
		return apperrors.NewInvalidRequest("daily_amount_limit must not exceed weekly_amount_limit")
	}
	if lim.WeeklyAmountLimit != nil && lim.MonthlyAmountLimit != nil &&
		lim.WeeklyAmountLimit.GreaterThan(*lim.MonthlyAmountLimit) {
		return apperrors.NewInvalidRequest("weekly_amount_limit must not exceed monthly_amount_limit")
	}
	if lim.DailyAmountLimit != nil && lim.MonthlyAmountLimit != nil &&
		lim.DailyAmountLimit.GreaterThan(*lim.MonthlyAmountLimit) {
		return apperrors.NewInvalidRequest("daily_amount_limit must not exceed monthly_amount_limit")
	}
	return nil
}

func translatePolicyErr(err error, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrPolicyNotFound):
		return apperrors.NewNotFound(fmt.Sprintf("policy %s not found", id), err)
	case errors.Is(err, model.ErrPolicyConflict):
		return apperrors.NewConflict("an enabled policy already exists for this scope, role and currency", err)
	default:
		return err
	}
}

func (s *PolicyService) Create(ctx context.Context, in model.PolicyInput, actorID string) (*model.WithdrawalPolicy, error) {
	if err := ValidatePolicyInput(in); err != nil {
		return nil, err
	}
	now := s.now()
	p := &model.WithdrawalPolicy{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		ScopeType:    in.ScopeType,
		Role:         normalizeRole(in.Role),
		Currency:     normalizeCurrency(in.Currency),
		Enabled:      in.Enabled == nil || *in.Enabled,
		PolicyLimits: in.PolicyLimits.Clone(),
		CreatedBy:    actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, translatePolicyErr(err, p.ID)
	}
	logger.Info("withdrawal policy created",
		"policy_id", p.ID,
		"scope", p.ScopeType,
		"role", p.Role,
		"currency", p.Currency,
		"enabled", p.Enabled,
		"actor", actorID,
	)
	return p, nil
}

func (s *PolicyService) Get(ctx context.Context, id string) (*model.WithdrawalPolicy, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translatePolicyErr(err, id)
	}
	return p, nil
}

func (s *PolicyService) List(ctx context.Context, filter model.PolicyFilter) ([]model.WithdrawalPolicy, error) {
	filter.Currency = normalizeCurrency(filter.Currency)
	filter.Role = normalizeRole(filter.Role)
	return s.repo.List(ctx, filter)
}

// Update replaces every field of the policy. Enabled keeps its stored value when omitted.
func (s *PolicyService) Update(ctx context.Context, id string, in model.PolicyInput) (*model.WithdrawalPolicy, error) {
	if err := ValidatePolicyInput(in); err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translatePolicyErr(err, id)
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.ScopeType = in.ScopeType
	p.Role = normalizeRole(in.Role)
	p.Currency = normalizeCurrency(in.Currency)
	if in.Enabled != nil {
		p.Enabled = *in.Enabled
	}
	p.PolicyLimits = in.PolicyLimits.Clone()
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, translatePolicyErr(err, id)
	}
	logger.Info("withdrawal policy updated", "policy_id", id, "enabled", p.Enabled)
	return p, nil
}

func (s *PolicyService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return translatePolicyErr(err, id)
	}
	logger.Info("withdrawal policy deleted", "policy_id", id)
	return nil
}

// Resolve fetches the enabled GLOBAL and ROLE policies concurrently. A role
// policy wins in full; the global one applies only when no role policy
// exists. (nil, nil) means the withdrawal is unconstrained.
func (s *PolicyService) Resolve(ctx context.Context, role, currency string) (*model.EffectivePolicy, error) {
	currency = normalizeCurrency(currency)
	role = normalizeRole(role)
	if currency == "" {
		return nil, apperrors.NewInvalidRequest("currency is required")
	}

	var global, byRole *model.WithdrawalPolicy
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.repo.FindEnabled(gctx, model.ScopeGlobal, "", currency)
		global = p
		return err
	})
	if role != "" {
		g.Go(func() error {
			p, err := s.repo.FindEnabled(gctx, model.ScopeRole, role, currency)
			byRole = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve policy: %w", err)
	}

	if byRole != nil {
		return byRole.Effective(), nil
	}
	return global.Effective(), nil
}
