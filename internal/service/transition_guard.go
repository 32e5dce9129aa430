package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/pkg/logger"
	"github.com/rachelfoods/payoutgate/internal/pkg/metrics"
	"github.com/rachelfoods/payoutgate/internal/risk"
)

// TransitionGuard advises allow/deny on lifecycle edges. It never performs
// the status change itself.
type TransitionGuard struct {
	engine      *RiskEngine
	withdrawals WithdrawalRepo
	rules       risk.GuardRules
	now         Clock
}

func NewTransitionGuard(engine *RiskEngine, withdrawals WithdrawalRepo, rules risk.GuardRules) *TransitionGuard {
	return &TransitionGuard{
		engine:      engine,
		withdrawals: withdrawals,
		rules:       rules,
		now:         systemClock,
	}
}

func (g *TransitionGuard) WithClock(c Clock) *TransitionGuard {
	g.now = c
	return g
}

// Decide evaluates req against profile. profileErr is the error from computing
// the profile; on a guarded edge it denies rather than letting the move through.
func (g *TransitionGuard) Decide(req risk.TransitionRequest, profile *model.UserRiskProfile, profileErr error) model.TransitionGuardDecision {
	now := g.now()
	var d model.TransitionGuardDecision
	if profileErr != nil && risk.IsGuarded(req.From, req.To) {
		d = model.TransitionGuardDecision{
			FromStatus:                req.From,
			ToStatus:                  req.To,
			Guarded:                   true,
			RequiresAdminConfirmation: true,
			Reason:                    fmt.Sprintf("risk profile unavailable, admin review required: %v", profileErr),
			ActiveSignals:             []model.SignalType{},
			EvaluatedAt:               now,
		}
	} else {
		d = g.rules.EvaluateTransition(req, profile, now)
	}

	edge := fmt.Sprintf("%s_TO_%s", req.From, req.To)
	outcome := "allowed"
	if !d.Allowed {
		outcome = "denied"
		logger.Warn("transition denied by risk guard",
			"transition", edge,
			"risk_level", d.RiskLevel,
			"risk_score", d.RiskScore,
			"admin_id", req.AdminID,
			"reason", d.Reason,
		)
	} else if d.Advisory != "" {
		logger.Info("transition advisory", "transition", edge, "advisory", d.Advisory)
	}
	metrics.TransitionDecisions.WithLabelValues(edge, outcome).Inc()
	return d
}

// Evaluate computes the live profile of userID and decides req. The profile
// is computed for every edge so the decision always carries the live risk view.
func (g *TransitionGuard) Evaluate(ctx context.Context, userID string, req risk.TransitionRequest) model.TransitionGuardDecision {
	profile, err := g.engine.Profile(ctx, userID)
	return g.Decide(req, profile, err)
}

// Preview answers "could this withdrawal move to `to` now?" without moving it.
func (g *TransitionGuard) Preview(ctx context.Context, withdrawalID string, to model.WithdrawalStatus, adminID, reason string) (*model.TransitionGuardDecision, error) {
	if !to.Valid() {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("unknown target status %q", to))
	}
	w, err := g.withdrawals.GetByID(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, model.ErrWithdrawalNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("withdrawal %s not found", withdrawalID), err)
		}
		return nil, err
	}
	d := g.Evaluate(ctx, w.UserID, risk.TransitionRequest{
		From:    w.Status,
		To:      to,
		AdminID: adminID,
		Reason:  reason,
	})
	return &d, nil
}
