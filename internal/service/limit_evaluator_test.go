package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/risk"
	"github.com/rachelfoods/payoutgate/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateFirstWithdrawalAgainstUnadaptedPolicy(t *testing.T) {
	f := newFixture(t, risk.BaselinePersisted)
	p := f.globalPolicy(t, model.PolicyLimits{DailyAmountLimit: dec("1000"), MinSingleWithdrawal: dec("100")})

	res, err := f.limits.Evaluate(context.Background(), service.EvaluateInput{
		UserID:   "user-1",
		WalletID: "wallet-1",
		Amount:   decimal.RequireFromString("500"),
		Currency: "INR",
		Role:     model.RoleSeller,
	})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Empty(t, res.Violations)
	require.NotNil(t, res.PolicyApplied)
	assert.Equal(t, p.ID, res.PolicyApplied.PolicyID)
	assert.False(t, res.PolicyApplied.IsAdapted)
	assert.Empty(t, res.PolicyApplied.Adjustments)
	assert.True(t, res.PolicyApplied.DailyAmountLimit.Equal(*dec("1000")))
	assert.Equal(t, testNow, res.EvaluatedAt)
}

func TestEvaluateWithoutPolicyIsUnconstrained(t *testing.T) {
	f := newFixture(t, risk.BaselinePersisted)
	res, err := f.limits.Evaluate(context.Background(), service.EvaluateInput{
		UserID:   "user-1",
		Amount:   decimal.RequireFromString("1000000"),
		Currency: "INR",
	})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Nil(t, res.PolicyApplied)
	assert.Nil(t, res.Usage)
}

func TestEvaluateDailyAmountBoundary(t *testing.T) {
	f := newFixture(t, risk.BaselinePersisted)
	f.globalPolicy(t, model.PolicyLimits{DailyAmountLimit: dec("1000")})
	f.seed(t, "user-1", 2*time.Hour, model.StatusCompleted, "600", "")
	// terminal failures release their share of the limit
	f.seed(t, "user-1", 3*time.Hour, model.StatusRejected, "900", "manual review")
	f.seed(t, "user-1", 4*time.Hour, model.StatusCancelled, "900", "")

	eval := func(amount string) *model.LimitEvaluationResult {
		res, err := f.limits.Evaluate(context.Background(), service.EvaluateInput{
			UserID:   "user-1",
			Amount:   decimal.RequireFromString(amount),
			Currency: "INR",
		})
		require.NoError(t, err)
		return res
	}

	exact := eval("400")
	assert.True(t, exact.Allowed)
	assert.Equal(t, 1, exact.Usage.Daily.Count)
	assert.True(t, exact.Usage.Daily.Amount.Equal(decimal.RequireFromString("600")))

	over := eval("400.01")
	assert.False(t, over.Allowed)
	require.Len(t, over.Violations, 1)
	assert.Equal(t, model.ViolationDailyAmountExceeded, over.Violations[0].ViolationType)
}

func TestEvaluateWindowsAreIndependent(t *testing.T) {
	f := newFixture(t, risk.BaselinePersisted)
	f.globalPolicy(t, model.PolicyLimits{
		DailyCountLimit:    model.IntPtr(5),
		WeeklyCountLimit:   model.IntPtr(2),
		MonthlyAmountLimit: dec("1000"),
	})
	f.seed(t, "user-1", 3*24*time.Hour, model.StatusCompleted, "300", "")
	f.seed(t, "user-1", 5*24*time.Hour, model.StatusCompleted, "300", "")
	f.seed(t, "user-1", 20*24*time.Hour, model.StatusCompleted, "300", "")

	res, err := f.limits.Evaluate(context.Background(), service.EvaluateInput{
		UserID:   "user-1",
		Amount:   decimal.RequireFromString("200"),
		Currency: "INR",
	})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	types := make([]model.ViolationType, 0, len(res.Violations))
	for _, v := range res.Violations {
		types = append(types, v.ViolationType)
	}
	assert.Equal(t, []model.ViolationType{
		model.ViolationWeeklyCountExceeded,
		model.ViolationMonthlyAmountExceeded,
	}, types)
	assert.Equal(t, 0, res.Usage.Daily.Count)
	assert.Equal(t, 2, res.Usage.Weekly.Count)
	assert.Equal(t, 3, res.Usage.Monthly.Count)
}

func TestEvaluateAdaptsForHighRisk(t *testing.T) {
	f := newFixture(t, risk.BaselinePersisted)
	f.globalPolicy(t, model.PolicyLimits{MaxSingleWithdrawal: dec("1000"), MinSingleWithdrawal: dec("100")})

	res, err := f.limits.Evaluate(context.Background(), service.EvaluateInput{
		UserID:   "user-1",
		Amount:   decimal.RequireFromString("600"),
		Currency: "INR",
		Risk:     &model.RiskContext{RiskLevel: model.RiskHigh, RiskScore: 80},
	})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.PolicyApplied.IsAdapted)
	assert.True(t, res.PolicyApplied.MaxSingleWithdrawal.Equal(*dec("500")))
	assert.True(t, res.PolicyApplied.MinSingleWithdrawal.Equal(*dec("100")))
	require.Len(t, res.Violations, 1)
	assert.Equal(t, model.ViolationExceedsMaxSingle, res.Violations[0].ViolationType)
	assert.Contains(t, res.Violations[0].Message, "original limit 1000")
}

func TestEvaluateRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t, risk.BaselinePersisted)
	_, err := f.limits.Evaluate(context.Background(), service.EvaluateInput{
		UserID:   "user-1",
		Amount:   decimal.Zero,
		Currency: "INR",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))
}
