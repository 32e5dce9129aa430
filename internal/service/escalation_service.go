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

// EscalationService diffs the live profile against a baseline snapshot.
// The result is advisory: it never changes a withdrawal.
type EscalationService struct {
	engine      *RiskEngine
	withdrawals WithdrawalRepo
	snapshots   SnapshotStore
	publisher   EscalationPublisher
	mode        string
	threshold   int
	now         Clock
}

// NewEscalationService; mode is risk.BaselinePersisted or risk.BaselineDefault.
// snapshots and publisher may be nil.
func NewEscalationService(engine *RiskEngine, withdrawals WithdrawalRepo, snapshots SnapshotStore, publisher EscalationPublisher, mode string, threshold int) *EscalationService {
	if mode == "" {
		mode = risk.BaselinePersisted
	}
	if threshold <= 0 {
		threshold = risk.DefaultScoreDeltaThreshold
	}
	return &EscalationService{
		engine:      engine,
		withdrawals: withdrawals,
		snapshots:   snapshots,
		publisher:   publisher,
		mode:        mode,
		threshold:   threshold,
		now:         systemClock,
	}
}

func (s *EscalationService) WithClock(c Clock) *EscalationService {
	s.now = c
	return s
}

func (s *EscalationService) persisting() bool {
	return s.mode == risk.BaselinePersisted && s.snapshots != nil
}

// Capture stores the approval-time snapshot of profile for withdrawalID.
// A no-op in default baseline mode.
func (s *EscalationService) Capture(ctx context.Context, withdrawalID string, profile *model.UserRiskProfile) error {
	if !s.persisting() || profile == nil {
		return nil
	}
	snap := risk.SnapshotOf(profile, s.now())
	snap.WithdrawalID = withdrawalID
	snap.Source = risk.BaselinePersisted
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("save risk snapshot: %w", err)
	}
	return nil
}

// Baseline picks the comparison point: supplied, then persisted, then the default approximation.
func (s *EscalationService) Baseline(ctx context.Context, withdrawalID string, supplied *model.RiskSnapshot) model.RiskSnapshot {
	if supplied != nil {
		b := *supplied
		b.Source = risk.BaselineSupplied
		if b.ActiveSignals == nil {
			b.ActiveSignals = []model.SignalType{}
		}
		return b
	}
	if s.persisting() {
		snap, err := s.snapshots.Load(ctx, withdrawalID)
		if err == nil {
			snap.Source = risk.BaselinePersisted
			return *snap
		}
		if !errors.Is(err, model.ErrSnapshotNotFound) {
			logger.LogError(ctx, err, "load risk snapshot failed, using default baseline", "withdrawal_id", withdrawalID)
		}
	}
	return risk.DefaultBaseline(s.now())
}

// Check loads the withdrawal and evaluates it against its baseline.
func (s *EscalationService) Check(ctx context.Context, withdrawalID string, supplied *model.RiskSnapshot) (*model.RiskEscalationDecision, error) {
	w, err := s.withdrawals.GetByID(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, model.ErrWithdrawalNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("withdrawal %s not found", withdrawalID), err)
		}
		return nil, err
	}
	profile, err := s.engine.Profile(ctx, w.UserID)
	if err != nil {
		return nil, err
	}
	d := s.Detect(ctx, w, profile, supplied)
	return &d, nil
}

// Detect is Check for callers that already hold the withdrawal and its live profile.
func (s *EscalationService) Detect(ctx context.Context, w *model.Withdrawal, profile *model.UserRiskProfile, supplied *model.RiskSnapshot) model.RiskEscalationDecision {
	baseline := s.Baseline(ctx, w.ID, supplied)
	d := risk.DetectEscalation(baseline, profile, s.threshold, s.now())
	d.WithdrawalID = w.ID
	d.UserID = w.UserID
	d.CurrentStatus = w.Status

	if d.Escalated {
		metrics.Escalations.WithLabelValues(d.EscalationType).Inc()
		logger.Warn("risk escalation detected",
			"withdrawal_id", w.ID,
			"user_id", w.UserID,
			"escalation_type", d.EscalationType,
			"from_level", d.FromRiskLevel,
			"to_level", d.ToRiskLevel,
			"delta_score", d.DeltaScore,
			"baseline", d.BaselineSource,
		)
		if s.publisher != nil {
			s.publisher.Publish(d)
		}
	}
	return d
}
