package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/pkg/logger"
	"github.com/rachelfoods/payoutgate/internal/pkg/metrics"
	"github.com/rachelfoods/payoutgate/internal/risk"
)

// RiskEngine recomputes a user's risk profile from withdrawal history on
// every call. Nothing is cached between requests.
type RiskEngine struct {
	withdrawals WithdrawalRepo
	cooling     risk.CoolingRules
	lookback    time.Duration
	users       UserDirectory
	now         Clock
}

func NewRiskEngine(withdrawals WithdrawalRepo, cooling risk.CoolingRules, lookback time.Duration) *RiskEngine {
	return &RiskEngine{
		withdrawals: withdrawals,
		cooling:     cooling,
		lookback:    lookback,
		now:         systemClock,
	}
}

// WithUsers makes unknown user ids fail with NOT_FOUND. Without a directory
// every id is scored, which the offline inspector relies on.
func (e *RiskEngine) WithUsers(users UserDirectory) *RiskEngine {
	e.users = users
	return e
}

// WithClock pins the engine's notion of now.
func (e *RiskEngine) WithClock(c Clock) *RiskEngine {
	e.now = c
	return e
}

// Assessment bundles what one history read yields.
type Assessment struct {
	Profile *model.UserRiskProfile
	Cooling model.CoolingPeriodResult
}

func (e *RiskEngine) history(ctx context.Context, userID string, now time.Time) ([]model.Withdrawal, error) {
	var since *time.Time
	if e.lookback > 0 {
		s := now.Add(-e.lookback)
		since = &s
	}
	history, err := e.withdrawals.ListByUser(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("load withdrawal history: %w", err)
	}
	return history, nil
}

// RequireUser rejects empty ids and, when a directory is set, unknown ones.
func (e *RiskEngine) RequireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.NewInvalidRequest("user id is required")
	}
	if e.users != nil {
		if _, ok := e.users.GetByID(userID); !ok {
			return apperrors.NewNotFound(fmt.Sprintf("user %s not found", userID), nil)
		}
	}
	return nil
}

// Assess computes the profile and the cooling verdict from a single history read.
func (e *RiskEngine) Assess(ctx context.Context, userID string) (*Assessment, error) {
	if err := e.RequireUser(userID); err != nil {
		return nil, err
	}
	now := e.now()
	history, err := e.history(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	profile := risk.BuildProfile(userID, history, now)
	metrics.RiskProfiles.WithLabelValues(string(profile.RiskLevel)).Inc()
	logger.Debug("risk profile computed",
		"user_id", userID,
		"level", profile.RiskLevel,
		"score", profile.OverallScore,
		"signals", len(profile.ActiveSignals),
	)

	return &Assessment{
		Profile: profile,
		Cooling: e.cooling.EvaluateCooling(userID, profile.RiskLevel, history, now),
	}, nil
}

func (e *RiskEngine) Profile(ctx context.Context, userID string) (*model.UserRiskProfile, error) {
	a, err := e.Assess(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.Profile, nil
}

func (e *RiskEngine) CoolingPeriod(ctx context.Context, userID string) (*model.CoolingPeriodResult, error) {
	a, err := e.Assess(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &a.Cooling, nil
}

// ApprovalContext has no error return: a failed profile computation yields the
// MEDIUM manual-review fallback.
func (e *RiskEngine) ApprovalContext(ctx context.Context, userID string) model.ApprovalContext {
	ac, _ := e.approval(ctx, userID)
	return ac
}

// approval also hands back the profile behind the context; nil on fallback.
func (e *RiskEngine) approval(ctx context.Context, userID string) (model.ApprovalContext, *model.UserRiskProfile) {
	now := e.now()
	profile, err := e.Profile(ctx, userID)
	if err != nil {
		metrics.ApprovalFallbacks.Inc()
		logger.LogError(ctx, err, "approval context fell back to manual review", "user_id", userID)
		return risk.FallbackApprovalContext(userID, err, now), nil
	}
	return risk.ApprovalContextFor(profile, now), profile
}
