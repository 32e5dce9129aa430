package risk

import (
	"testing"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/stretchr/testify/assert"
)

func signalsWithScores(scores ...int) []model.RiskSignal {
	out := make([]model.RiskSignal, len(scores))
	for i, s := range scores {
		out[i] = model.RiskSignal{SignalType: model.SignalRecentRejections, Score: s}
	}
	return out
}

func TestDetermineRiskLevelThresholds(t *testing.T) {
	cases := map[int]model.RiskLevel{
		0:   model.RiskLow,
		39:  model.RiskLow,
		40:  model.RiskMedium,
		69:  model.RiskMedium,
		70:  model.RiskHigh,
		100: model.RiskHigh,
	}
	for score, want := range cases {
		assert.Equal(t, want, DetermineRiskLevel(score), "score %d", score)
	}
}

func TestAggregateRiskScore(t *testing.T) {
	assert.Equal(t, 0, AggregateRiskScore(nil))
	assert.Equal(t, 63, AggregateRiskScore(signalsWithScores(63)))
	// sorted 80,50,20 weighted 1.0/0.8/0.6
	assert.Equal(t, 55, AggregateRiskScore(signalsWithScores(20, 80, 50)))
	// beyond six signals the tail weighs 0.1
	assert.Equal(t, 81, AggregateRiskScore(signalsWithScores(30, 40, 50, 60, 70, 80, 90, 100)))
}

func TestBuildProfile(t *testing.T) {
	t.Run("no history is low risk", func(t *testing.T) {
		p := BuildProfile("user-1", nil, testNow)
		assert.Equal(t, model.RiskLow, p.RiskLevel)
		assert.Equal(t, 0, p.OverallScore)
		assert.Empty(t, p.ActiveSignals)
		assert.Equal(t, 0, p.EvaluationContext.TotalWithdrawals)
		assert.Equal(t, testNow, p.EvaluationContext.EvaluatedAt)
	})

	t.Run("level follows score and signals sorted", func(t *testing.T) {
		var history []model.Withdrawal
		for i, ref := range []string{"a", "b", "c", "d", "e"} {
			w := withdrawal(daysAgo(float64(i+1)), model.StatusCompleted, "100")
			w.BankAccountRef = ref
			history = append(history, w)
		}
		r := withdrawal(daysAgo(6), model.StatusRejected, "100")
		r.RejectionReason = "weekly limit exceeded"
		history = append(history, r)

		p := BuildProfile("user-1", history, testNow)
		// bank accounts HIGH 70, rejections 1/6 LOW 35, policy density 1/6 LOW 30
		assert.Equal(t, []model.SignalType{
			model.SignalMultipleBankAccounts,
			model.SignalRecentRejections,
			model.SignalPolicyViolationDensity,
		}, p.SignalTypes())
		assert.Equal(t, AggregateRiskScore(p.ActiveSignals), p.OverallScore)
		assert.Equal(t, DetermineRiskLevel(p.OverallScore), p.RiskLevel)
		assert.Equal(t, 6, p.EvaluationContext.TotalWithdrawals)
		assert.Equal(t, 6, p.EvaluationContext.WithdrawalsLast7Days)
		assert.InDelta(t, 5.0/6.0, p.EvaluationContext.SuccessRate, 1e-9)
		assert.InDelta(t, 1.0/6.0, p.EvaluationContext.FailureRate, 1e-9)
	})
}
