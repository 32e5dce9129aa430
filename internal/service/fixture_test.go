package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/repository"
	"github.com/rachelfoods/payoutgate/internal/risk"
	"github.com/rachelfoods/payoutgate/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

var (
	admin  = &model.Account{ID: "admin-1", Role: model.RoleAdmin}
	seller = &model.Account{ID: "seller-1", Role: model.RoleSeller}
)

type recorder struct {
	mu  sync.Mutex
	got []model.RiskEscalationDecision
}

func (r *recorder) Publish(d model.RiskEscalationDecision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, d)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type fixture struct {
	withdrawals *repository.MemoryWithdrawalRepo
	policies    *repository.MemoryPolicyRepo
	snapshots   *repository.MemorySnapshotStore
	published   *recorder

	engine     *service.RiskEngine
	policySvc  *service.PolicyService
	limits     *service.LimitEvaluator
	escalation *service.EscalationService
	guard      *service.TransitionGuard
	svc        *service.WithdrawalService
}

func newFixture(t *testing.T, baselineMode string) *fixture {
	t.Helper()
	f := &fixture{
		withdrawals: repository.NewMemoryWithdrawalRepo(),
		policies:    repository.NewMemoryPolicyRepo(),
		snapshots:   repository.NewMemorySnapshotStore(),
		published:   &recorder{},
	}
	f.engine = service.NewRiskEngine(f.withdrawals, risk.DefaultCoolingRules(), 0).WithClock(fixedClock)
	f.policySvc = service.NewPolicyService(f.policies).WithClock(fixedClock)
	f.limits = service.NewLimitEvaluator(f.policySvc, f.withdrawals, risk.DefaultAdaptiveFactors()).WithClock(fixedClock)
	f.escalation = service.NewEscalationService(f.engine, f.withdrawals, f.snapshots, f.published, baselineMode, 0).WithClock(fixedClock)
	f.guard = service.NewTransitionGuard(f.engine, f.withdrawals, risk.DefaultGuardRules()).WithClock(fixedClock)
	f.svc = service.NewWithdrawalService(f.withdrawals, f.engine, f.limits, f.escalation, f.guard).WithClock(fixedClock)
	return f
}

var seq int

func (f *fixture) seed(t *testing.T, user string, ago time.Duration, status model.WithdrawalStatus, amount, rejection string) *model.Withdrawal {
	t.Helper()
	seq++
	w := &model.Withdrawal{
		ID:              fmt.Sprintf("w-%d", seq),
		UserID:          user,
		WalletID:        "wallet-" + user,
		Amount:          decimal.RequireFromString(amount),
		Currency:        "INR",
		Status:          status,
		RejectionReason: rejection,
		RequestedAt:     testNow.Add(-ago),
		UpdatedAt:       testNow.Add(-ago),
	}
	require.NoError(t, f.withdrawals.Create(context.Background(), w))
	return w
}

// seedHighRisk gives user five limit rejections in the last five hours,
// enough for HIGH_FAILURE_RATE, RECENT_REJECTIONS and POLICY_VIOLATION_DENSITY
// to fire at HIGH severity. The latest attempt is one hour old.
func (f *fixture) seedHighRisk(t *testing.T, user string) {
	t.Helper()
	for h := 1; h <= 5; h++ {
		f.seed(t, user, time.Duration(h)*time.Hour, model.StatusRejected, "500", "daily limit exceeded")
	}
}

func (f *fixture) globalPolicy(t *testing.T, limits model.PolicyLimits) *model.WithdrawalPolicy {
	t.Helper()
	p, err := f.policySvc.Create(context.Background(), model.PolicyInput{
		Name:         "global inr",
		ScopeType:    model.ScopeGlobal,
		Currency:     "INR",
		PolicyLimits: limits,
	}, admin.ID)
	require.NoError(t, err)
	return p
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// brokenHistory fails every history read.
type brokenHistory struct {
	*repository.MemoryWithdrawalRepo
}

func (brokenHistory) ListByUser(context.Context, string, *time.Time) ([]model.Withdrawal, error) {
	return nil, errors.New("connection refused")
}
