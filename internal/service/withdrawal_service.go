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
	"github.com/rachelfoods/payoutgate/internal/pkg/metrics"
	"github.com/rachelfoods/payoutgate/internal/risk"
)

// TransitionOutcome is what an admin action returns: the updated withdrawal
// plus whichever risk verdicts were computed on the way.
type TransitionOutcome struct {
	Withdrawal *model.Withdrawal              `json:"withdrawal"`
	Approval   *model.ApprovalContext         `json:"approval_context,omitempty"`
	Guard      *model.TransitionGuardDecision `json:"guard,omitempty"`
	Escalation *model.RiskEscalationDecision  `json:"escalation,omitempty"`
}

// WithdrawalService drives the lifecycle
// REQUESTED -> APPROVED -> PROCESSING -> COMPLETED with the side exits
// REJECTED, CANCELLED and FAILED. Status writes are compare-and-swap.
type WithdrawalService struct {
	repo       WithdrawalRepo
	engine     *RiskEngine
	limits     *LimitEvaluator
	escalation *EscalationService
	guard      *TransitionGuard
	now        Clock
}

func NewWithdrawalService(repo WithdrawalRepo, engine *RiskEngine, limits *LimitEvaluator, escalation *EscalationService, guard *TransitionGuard) *WithdrawalService {
	return &WithdrawalService{
		repo:       repo,
		engine:     engine,
		limits:     limits,
		escalation: escalation,
		guard:      guard,
		now:        systemClock,
	}
}

func (s *WithdrawalService) WithClock(c Clock) *WithdrawalService {
	s.now = c
	return s
}

func (s *WithdrawalService) Get(ctx context.Context, id string) (*model.Withdrawal, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrWithdrawalNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("withdrawal %s not found", id), err)
		}
		return nil, err
	}
	return w, nil
}

// Request creates a REQUESTED withdrawal after the cooling period and the
// risk-adapted limits allow it.
func (s *WithdrawalService) Request(ctx context.Context, acct *model.Account, req model.WithdrawalRequest) (*model.Withdrawal, error) {
	if acct == nil {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "account required", nil)
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.NewInvalidRequest("amount must be greater than zero")
	}
	// 金额按 numeric(20,2) 落库
	if !req.Amount.Equal(req.Amount.Truncate(2)) {
		return nil, apperrors.NewInvalidRequest("amount must have at most 2 decimal places")
	}
	currency := normalizeCurrency(req.Currency)
	if currency == "" {
		return nil, apperrors.NewInvalidRequest("currency is required")
	}

	assessment, err := s.engine.Assess(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	if assessment.Cooling.CoolingRequired {
		metrics.CoolingDenials.WithLabelValues(string(assessment.Cooling.RiskLevel)).Inc()
		logger.Info("withdrawal refused during cooling period",
			"user_id", acct.ID,
			"risk_level", assessment.Cooling.RiskLevel,
			"remaining_minutes", assessment.Cooling.RemainingMinutes,
		)
		return nil, apperrors.New(apperrors.ErrCoolingPeriod, assessment.Cooling.Reason, nil).
			WithDetails(assessment.Cooling)
	}

	result, err := s.limits.Evaluate(ctx, EvaluateInput{
		UserID:   acct.ID,
		WalletID: req.WalletID,
		Amount:   req.Amount,
		Currency: currency,
		Role:     acct.Role,
		Risk:     risk.ContextOf(assessment.Profile),
	})
	if err != nil {
		return nil, err
	}
	if !result.Allowed {
		msgs := make([]string, 0, len(result.Violations))
		for _, v := range result.Violations {
			msgs = append(msgs, v.Message)
		}
		return nil, apperrors.NewRiskReject("withdrawal exceeds policy limits: " + strings.Join(msgs, "; ")).
			WithDetails(result)
	}

	now := s.now()
	w := &model.Withdrawal{
		ID:             uuid.NewString(),
		UserID:         acct.ID,
		WalletID:       req.WalletID,
		Amount:         req.Amount,
		Currency:       currency,
		Status:         model.StatusRequested,
		BankAccountRef: strings.TrimSpace(req.BankAccountRef),
		RequestedAt:    now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}
	metrics.WithdrawalTransitions.WithLabelValues(string(model.StatusRequested)).Inc()
	logger.Info("withdrawal requested",
		"withdrawal_id", w.ID,
		"user_id", w.UserID,
		"amount", w.Amount.String(),
		"currency", w.Currency,
		"risk_level", assessment.Profile.RiskLevel,
	)
	return w, nil
}

// Simulate evaluates limits without creating anything. useRisk selects the
// adaptive policy for the caller's live risk context.
func (s *WithdrawalService) Simulate(ctx context.Context, acct *model.Account, req model.SimulateRequest) (*model.LimitEvaluationResult, error) {
	if acct == nil {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "account required", nil)
	}
	in := EvaluateInput{
		UserID:   acct.ID,
		WalletID: req.WalletID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Role:     acct.Role,
	}
	if req.UseRiskContext == nil || *req.UseRiskContext {
		profile, err := s.engine.Profile(ctx, acct.ID)
		if err != nil {
			return nil, err
		}
		in.Risk = risk.ContextOf(profile)
	}
	return s.limits.Evaluate(ctx, in)
}

func (s *WithdrawalService) move(ctx context.Context, w *model.Withdrawal, to model.WithdrawalStatus, patch model.StatusPatch) (*model.Withdrawal, error) {
	patch.At = s.now()
	updated, err := s.repo.UpdateStatus(ctx, w.ID, w.Status, to, patch)
	switch {
	case errors.Is(err, model.ErrStatusConflict):
		return nil, apperrors.NewConflict(fmt.Sprintf("withdrawal %s is no longer %s", w.ID, w.Status), err)
	case errors.Is(err, model.ErrWithdrawalNotFound):
		return nil, apperrors.NewNotFound(fmt.Sprintf("withdrawal %s not found", w.ID), err)
	case err != nil:
		return nil, fmt.Errorf("update withdrawal status: %w", err)
	}
	metrics.WithdrawalTransitions.WithLabelValues(string(to)).Inc()
	logger.Info("withdrawal status changed",
		"withdrawal_id", w.ID,
		"from", w.Status,
		"to", to,
		"actor", patch.ActorID,
	)
	return updated, nil
}

func (s *WithdrawalService) load(ctx context.Context, id string, allowed ...model.WithdrawalStatus) (*model.Withdrawal, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, st := range allowed {
		if w.Status == st {
			return w, nil
		}
	}
	return nil, apperrors.NewConflict(fmt.Sprintf("withdrawal %s is %s", id, w.Status), nil)
}

func requireAdmin(admin *model.Account) error {
	if !admin.IsAdmin() {
		return apperrors.New(apperrors.ErrForbidden, "admin role required", nil)
	}
	return nil
}

// Approve moves REQUESTED -> APPROVED. A reason is mandatory when the
// approval context routes to manual review, and the live profile is captured
// as the escalation baseline.
func (s *WithdrawalService) Approve(ctx context.Context, admin *model.Account, id, reason string) (*TransitionOutcome, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	w, err := s.load(ctx, id, model.StatusRequested)
	if err != nil {
		return nil, err
	}

	ac, profile := s.engine.approval(ctx, w.UserID)
	if ac.RequiresReason && strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("%s risk withdrawal requires an approval reason", ac.RiskLevel)).
			WithDetails(ac)
	}

	updated, err := s.move(ctx, w, model.StatusApproved, model.StatusPatch{ActorID: admin.ID, Reason: strings.TrimSpace(reason)})
	if err != nil {
		return nil, err
	}
	if err := s.escalation.Capture(ctx, w.ID, profile); err != nil {
		logger.LogError(ctx, err, "risk snapshot not captured", "withdrawal_id", w.ID)
	}
	return &TransitionOutcome{Withdrawal: updated, Approval: &ac}, nil
}

// Process moves APPROVED -> PROCESSING behind the risk guard.
func (s *WithdrawalService) Process(ctx context.Context, admin *model.Account, id, reason string) (*TransitionOutcome, error) {
	return s.guarded(ctx, admin, id, reason, model.StatusApproved, model.StatusProcessing)
}

// Complete moves PROCESSING -> COMPLETED behind the risk guard.
func (s *WithdrawalService) Complete(ctx context.Context, admin *model.Account, id, reason string) (*TransitionOutcome, error) {
	return s.guarded(ctx, admin, id, reason, model.StatusProcessing, model.StatusCompleted)
}

func (s *WithdrawalService) guarded(ctx context.Context, admin *model.Account, id, reason string, from, to model.WithdrawalStatus) (*TransitionOutcome, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	w, err := s.load(ctx, id, from)
	if err != nil {
		return nil, err
	}

	out := &TransitionOutcome{}
	profile, profileErr := s.engine.Profile(ctx, w.UserID)
	if profileErr == nil {
		esc := s.escalation.Detect(ctx, w, profile, nil)
		out.Escalation = &esc
	}

	decision := s.guard.Decide(risk.TransitionRequest{
		From:    from,
		To:      to,
		AdminID: admin.ID,
		Reason:  reason,
	}, profile, profileErr)
	out.Guard = &decision
	if !decision.Allowed {
		return nil, apperrors.New(apperrors.ErrTransitionDenied, decision.Reason, nil).WithDetails(out)
	}

	updated, err := s.move(ctx, w, to, model.StatusPatch{ActorID: admin.ID, Reason: reason})
	if err != nil {
		return nil, err
	}
	out.Withdrawal = updated
	return out, nil
}

// Reject ends a REQUESTED or APPROVED withdrawal. The reason feeds the
// POLICY_VIOLATION_DENSITY signal, so it is required.
func (s *WithdrawalService) Reject(ctx context.Context, admin *model.Account, id, reason string) (*TransitionOutcome, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewInvalidRequest("rejection reason is required")
	}
	w, err := s.load(ctx, id, model.StatusRequested, model.StatusApproved)
	if err != nil {
		return nil, err
	}
	updated, err := s.move(ctx, w, model.StatusRejected, model.StatusPatch{ActorID: admin.ID, RejectionReason: reason})
	if err != nil {
		return nil, err
	}
	return &TransitionOutcome{Withdrawal: updated}, nil
}

// Fail marks a PROCESSING withdrawal as failed by the payout rail.
func (s *WithdrawalService) Fail(ctx context.Context, admin *model.Account, id, reason string) (*TransitionOutcome, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewInvalidRequest("failure reason is required")
	}
	w, err := s.load(ctx, id, model.StatusProcessing)
	if err != nil {
		return nil, err
	}
	updated, err := s.move(ctx, w, model.StatusFailed, model.StatusPatch{ActorID: admin.ID, FailureReason: reason})
	if err != nil {
		return nil, err
	}
	return &TransitionOutcome{Withdrawal: updated}, nil
}

// Cancel lets the owner withdraw a request that has not been approved yet.
func (s *WithdrawalService) Cancel(ctx context.Context, acct *model.Account, id string) (*model.Withdrawal, error) {
	if acct == nil {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "account required", nil)
	}
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.UserID != acct.ID {
		// 不暴露他人的提现记录
		return nil, apperrors.NewNotFound(fmt.Sprintf("withdrawal %s not found", id), nil)
	}
	if w.Status != model.StatusRequested {
		return nil, apperrors.NewConflict(fmt.Sprintf("withdrawal %s is %s and can no longer be cancelled", id, w.Status), nil)
	}
	return s.move(ctx, w, model.StatusCancelled, model.StatusPatch{ActorID: acct.ID})
}
