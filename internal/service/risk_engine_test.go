package service_test

import (
	"context"
	"testing"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/repository"
	"github.com/rachelfoods/payoutgate/internal/risk"
	"github.com/rachelfoods/payoutgate/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskEngineProfile(t *testing.T) {
	f := newFixture(t, risk.BaselinePersisted)
	ctx := context.Background()

	clean, err := f.engine.Profile(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, model.RiskLow, clean.RiskLevel)
	assert.Equal(t, 0, clean.OverallScore)
	assert.Empty(t, clean.ActiveSignals)

	f.seedHighRisk(t, "risky")
	p, err := f.engine.Profile(ctx, "risky")
	require.NoError(t, err)
	assert.Equal(t, model.RiskHigh, p.RiskLevel)
	assert.Equal(t, []model.SignalType{
		model.SignalHighFailureRate,
		model.SignalRecentRejections,
		model.SignalPolicyViolationDensity,
	}, p.SignalTypes())
	assert.Equal(t, 5, p.EvaluationContext.TotalWithdrawals)

	_, err = f.engine.Profile(ctx, " ")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))
}

func TestRiskEngineUnknownUser(t *testing.T) {
	f := newFixture(t, risk.BaselinePersisted)
	am := service.NewAccountManager(nil)
	am.Register(seller)
	engine := service.NewRiskEngine(f.withdrawals, risk.DefaultCoolingRules(), 0).WithUsers(am).WithClock(fixedClock)
	ctx := context.Background()

	_, err := engine.Profile(ctx, "no-such-user")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	_, err = engine.CoolingPeriod(ctx, "no-such-user")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(engine.RequireUser("no-such-user"), apperrors.ErrNotFound))

	p, err := engine.Profile(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RiskLow, p.RiskLevel)
}

func TestRiskEngineCoolingPeriod(t *testing.T) {
	f := newFixture(t, risk.BaselinePersisted)
	f.seedHighRisk(t, "risky")

	res, err := f.engine.CoolingPeriod(context.Background(), "risky")
	require.NoError(t, err)
	assert.True(t, res.CoolingRequired)
	assert.Equal(t, model.RiskHigh, res.RiskLevel)
	assert.Equal(t, 5, res.AttemptsLast24h)
	assert.Equal(t, 660, res.RemainingMinutes)
}

func TestApprovalContextRouting(t *testing.T) {
	f := newFixture(t, risk.BaselinePersisted)
	f.seedHighRisk(t, "risky")
	ctx := context.Background()

	low := f.engine.ApprovalContext(ctx, "clean")
	assert.Equal(t, model.RoutingAutoApproveEligible, low.Routing)
	assert.False(t, low.RequiresReason)
	assert.False(t, low.Fallback)

	high := f.engine.ApprovalContext(ctx, "risky")
	assert.Equal(t, model.RoutingManualReviewRequired, high.Routing)
	assert.True(t, high.RequiresReason)
}

func TestApprovalContextFallsBackToManualReview(t *testing.T) {
	repo := brokenHistory{repository.NewMemoryWithdrawalRepo()}
	engine := service.NewRiskEngine(repo, risk.DefaultCoolingRules(), 0).WithClock(fixedClock)

	ac := engine.ApprovalContext(context.Background(), "user-1")
	assert.True(t, ac.Fallback)
	assert.Equal(t, model.RiskMedium, ac.RiskLevel)
	assert.Equal(t, model.RoutingManualReviewRequired, ac.Routing)
	assert.True(t, ac.RequiresReason)
	assert.Contains(t, ac.FallbackReason, "connection refused")
	assert.Equal(t, testNow, ac.ComputedAt)
}
