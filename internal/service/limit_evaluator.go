package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/pkg/logger"
	"github.com/rachelfoods/payoutgate/internal/pkg/metrics"
	"github.com/rachelfoods/payoutgate/internal/risk"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	dailyWindow   = 24 * time.Hour
	weeklyWindow  = 7 * 24 * time.Hour
	monthlyWindow = 30 * 24 * time.Hour
)

// EvaluateInput is one withdrawal request to check. Risk is optional; when
// set the resolved policy is replaced by its adaptive form.
type EvaluateInput struct {
	UserID   string
	WalletID string
	Amount   decimal.Decimal
	Currency string
	Role     string
	Risk     *model.RiskContext
}

type LimitEvaluator struct {
	policies    *PolicyService
	withdrawals WithdrawalRepo
	factors     risk.AdaptiveFactorTable
	now         Clock
}

func NewLimitEvaluator(policies *PolicyService, withdrawals WithdrawalRepo, factors risk.AdaptiveFactorTable) *LimitEvaluator {
	return &LimitEvaluator{
		policies:    policies,
		withdrawals: withdrawals,
		factors:     factors,
		now:         systemClock,
	}
}

func (e *LimitEvaluator) WithClock(c Clock) *LimitEvaluator {
	e.now = c
	return e
}

// AdaptivePolicy resolves the policy for role/currency and shrinks it for rc.
// Returns nil when no policy applies.
func (e *LimitEvaluator) AdaptivePolicy(ctx context.Context, role, currency string, rc *model.RiskContext) (*model.AdaptivePolicy, error) {
	base, err := e.policies.Resolve(ctx, role, currency)
	if err != nil || base == nil {
		return nil, err
	}
	if rc == nil {
		return risk.Unadapted(base), nil
	}
	return e.factors.ApplyAdaptiveLimits(base, rc), nil
}

// Usage sums the active withdrawals of the three trailing windows concurrently.
func (e *LimitEvaluator) Usage(ctx context.Context, userID string, now time.Time) (*model.UsageSnapshot, error) {
	var usage model.UsageSnapshot
	windows := []struct {
		span time.Duration
		dst  *model.WindowUsage
	}{
		{dailyWindow, &usage.Daily},
		{weeklyWindow, &usage.Weekly},
		{monthlyWindow, &usage.Monthly},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range windows {
		g.Go(func() error {
			count, sum, err := e.withdrawals.AggregateSince(gctx, userID, now.Add(-w.span), model.ActiveStatuses)
			if err != nil {
				return err
			}
			*w.dst = model.WindowUsage{Count: count, Amount: sum}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate withdrawal usage: %w", err)
	}
	return &usage, nil
}

// Evaluate runs every limit check for the request. No policy means allowed.
func (e *LimitEvaluator) Evaluate(ctx context.Context, in EvaluateInput) (*model.LimitEvaluationResult, error) {
	if in.UserID == "" {
		return nil, apperrors.NewInvalidRequest("user id is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.NewInvalidRequest("amount must be greater than zero")
	}
	now := e.now()
	res := &model.LimitEvaluationResult{
		Allowed:         true,
		Violations:      []model.LimitViolation{},
		RequestedAmount: in.Amount,
		Currency:        normalizeCurrency(in.Currency),
		EvaluatedAt:     now,
	}

	policy, err := e.AdaptivePolicy(ctx, in.Role, in.Currency, in.Risk)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		metrics.LimitEvaluations.WithLabelValues("no_policy", "false").Inc()
		return res, nil
	}
	res.PolicyApplied = policy

	usage, err := e.Usage(ctx, in.UserID, now)
	if err != nil {
		return nil, err
	}
	res.Usage = usage

	res.Violations = risk.EvaluateLimits(policy, in.Amount, *usage)
	res.Allowed = len(res.Violations) == 0

	outcome := "allowed"
	if !res.Allowed {
		outcome = "denied"
		types := make([]string, 0, len(res.Violations))
		for _, v := range res.Violations {
			metrics.LimitViolations.WithLabelValues(string(v.ViolationType)).Inc()
			types = append(types, string(v.ViolationType))
		}
		logger.Info("withdrawal limits exceeded",
			"user_id", in.UserID,
			"wallet_id", in.WalletID,
			"amount", in.Amount.String(),
			"currency", res.Currency,
			"policy_id", policy.PolicyID,
			"adapted", policy.IsAdapted,
			"violations", types,
		)
	}
	metrics.LimitEvaluations.WithLabelValues(outcome, strconv.FormatBool(policy.IsAdapted)).Inc()
	return res, nil
}
