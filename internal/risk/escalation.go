package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
)

const (
	DefaultScoreDeltaThreshold = 20

	EscalationNone          = "NONE"
	EscalationScoreDelta    = "SCORE_DELTA"
	EscalationNewHighSignal = "NEW_HIGH_SEVERITY_SIGNAL"

	BaselineSupplied  = "supplied"
	BaselinePersisted = "persisted"
	BaselineDefault   = "default"
)

// DefaultBaseline is the approximation used when no approval-time snapshot exists.
func DefaultBaseline(at time.Time) model.RiskSnapshot {
	return model.RiskSnapshot{
		RiskLevel:     model.RiskLow,
		RiskScore:     30,
		ActiveSignals: []model.SignalType{},
		SnapshotAt:    at,
		Source:        BaselineDefault,
	}
}

// DetectEscalation diffs the current profile against a baseline. The three
// rules are independent and OR-combined: a tier increase, a score increase of
// at least threshold, or a new HIGH severity signal.
func DetectEscalation(baseline model.RiskSnapshot, current *model.UserRiskProfile, threshold int, now time.Time) model.RiskEscalationDecision {
	if threshold <= 0 {
		threshold = DefaultScoreDeltaThreshold
	}
	d := model.RiskEscalationDecision{
		UserID:         current.UserID,
		FromRiskLevel:  baseline.RiskLevel,
		ToRiskLevel:    current.RiskLevel,
		FromScore:      baseline.RiskScore,
		ToScore:        current.OverallScore,
		DeltaScore:     current.OverallScore - baseline.RiskScore,
		NewSignals:     []model.SignalType{},
		BaselineSource: baseline.Source,
		CheckedAt:      now,
	}

	known := make(map[model.SignalType]struct{}, len(baseline.ActiveSignals))
	for _, s := range baseline.ActiveSignals {
		known[s] = struct{}{}
	}
	var newHigh []model.SignalType
	for _, s := range current.ActiveSignals {
		if _, ok := known[s.SignalType]; ok {
			continue
		}
		d.NewSignals = append(d.NewSignals, s.SignalType)
		if s.Severity == model.RiskHigh {
			newHigh = append(newHigh, s.SignalType)
		}
	}

	var types, reasons []string
	if current.RiskLevel.Rank() > baseline.RiskLevel.Rank() && baseline.RiskLevel.Rank() > 0 {
		types = append(types, fmt.Sprintf("LEVEL_ESCALATION_%s_TO_%s", baseline.RiskLevel, current.RiskLevel))
		reasons = append(reasons, fmt.Sprintf("risk level rose from %s to %s", baseline.RiskLevel, current.RiskLevel))
	}
	if d.DeltaScore >= threshold {
		types = append(types, EscalationScoreDelta)
		reasons = append(reasons, fmt.Sprintf("risk score rose by %d (%d -> %d)", d.DeltaScore, baseline.RiskScore, current.OverallScore))
	}
	if len(newHigh) > 0 {
		types = append(types, EscalationNewHighSignal)
		reasons = append(reasons, fmt.Sprintf("new high severity signals: %s", joinSignals(newHigh)))
	}

	if len(types) == 0 {
		d.EscalationType = EscalationNone
		d.EscalationReason = "no escalation since baseline"
		return d
	}
	d.Escalated = true
	d.EscalationType = strings.Join(types, "_AND_")
	d.EscalationReason = strings.Join(reasons, "; ")
	return d
}

func joinSignals(types []model.SignalType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
