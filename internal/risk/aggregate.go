package risk

import (
	"math"
	"sort"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
)

const (
	HighRiskThreshold   = 70
	MediumRiskThreshold = 40
)

// signalWeights apply to signals sorted by score, highest first. Any signal
// past the end of the table weighs tailWeight.
var signalWeights = []float64{1.0, 0.8, 0.6, 0.4, 0.3, 0.2}

const tailWeight = 0.1

// AggregateRiskScore is the weighted average of the signal scores, rounded.
func AggregateRiskScore(signals []model.RiskSignal) int {
	if len(signals) == 0 {
		return 0
	}
	scores := make([]int, len(signals))
	for i, s := range signals {
		scores[i] = s.Score
	}
	sort.Sort(sort.Reverse(sort.IntSlice(scores)))

	var weighted, weights float64
	for i, score := range scores {
		w := tailWeight
		if i < len(signalWeights) {
			w = signalWeights[i]
		}
		weighted += float64(score) * w
		weights += w
	}
	return int(math.Round(weighted / weights))
}

// DetermineRiskLevel maps a score onto a tier. No hysteresis.
func DetermineRiskLevel(score int) model.RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return model.RiskHigh
	case score >= MediumRiskThreshold:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func buildEvaluationContext(history []model.Withdrawal, now time.Time) model.EvaluationContext {
	ctx := model.EvaluationContext{
		TotalWithdrawals:      len(history),
		WithdrawalsLast7Days:  countWithin(history, now, recentSpan),
		WithdrawalsLast30Days: countWithin(history, now, rollingSpan),
		EvaluatedAt:           now,
	}
	if len(history) == 0 {
		return ctx
	}
	completed, bad := 0, 0
	for _, w := range history {
		switch w.Status {
		case model.StatusCompleted:
			completed++
		case model.StatusFailed, model.StatusRejected:
			bad++
		}
	}
	ctx.SuccessRate = float64(completed) / float64(len(history))
	ctx.FailureRate = float64(bad) / float64(len(history))
	return ctx
}

// BuildProfile derives a user's risk profile from their withdrawal history.
// Active signals are ordered by score, highest first.
func BuildProfile(userID string, history []model.Withdrawal, now time.Time) *model.UserRiskProfile {
	signals := ComputeSignals(history, now)
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Score > signals[j].Score
	})
	score := AggregateRiskScore(signals)
	return &model.UserRiskProfile{
		UserID:            userID,
		RiskLevel:         DetermineRiskLevel(score),
		OverallScore:      score,
		ActiveSignals:     signals,
		EvaluationContext: buildEvaluationContext(history, now),
	}
}

// ContextOf reduces a profile to what the adaptive adjuster consumes.
func ContextOf(p *model.UserRiskProfile) *model.RiskContext {
	if p == nil {
		return nil
	}
	return &model.RiskContext{RiskLevel: p.RiskLevel, RiskScore: p.OverallScore}
}

// SnapshotOf captures a profile as an escalation baseline.
func SnapshotOf(p *model.UserRiskProfile, at time.Time) model.RiskSnapshot {
	return model.RiskSnapshot{
		UserID:        p.UserID,
		RiskLevel:     p.RiskLevel,
		RiskScore:     p.OverallScore,
		ActiveSignals: p.SignalTypes(),
		SnapshotAt:    at,
	}
}
