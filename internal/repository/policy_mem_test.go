package repository

import (
	"context"
	"testing"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(id string, scope model.PolicyScope, role string, enabled bool) *model.WithdrawalPolicy {
	return &model.WithdrawalPolicy{
		ID:        id,
		Name:      id,
		ScopeType: scope,
		Role:      role,
		Currency:  "INR",
		Enabled:   enabled,
		PolicyLimits: model.PolicyLimits{
			DailyAmountLimit: model.DecimalPtr(decimal.NewFromInt(1000)),
		},
		CreatedAt: repoNow,
		UpdatedAt: repoNow,
	}
}

func TestMemoryPolicyRepoEnabledUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPolicyRepo()

	require.NoError(t, repo.Create(ctx, testPolicy("g1", model.ScopeGlobal, "", true)))
	assert.ErrorIs(t, repo.Create(ctx, testPolicy("g2", model.ScopeGlobal, "", true)), model.ErrPolicyConflict)
	require.NoError(t, repo.Create(ctx, testPolicy("g3", model.ScopeGlobal, "", false)), "disabled policies never conflict")
	require.NoError(t, repo.Create(ctx, testPolicy("r1", model.ScopeRole, model.RoleSeller, true)))

	enable := testPolicy("g3", model.ScopeGlobal, "", true)
	assert.ErrorIs(t, repo.Update(ctx, enable), model.ErrPolicyConflict)

	found, err := repo.FindEnabled(ctx, model.ScopeRole, model.RoleSeller, "INR")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "r1", found.ID)

	found, err = repo.FindEnabled(ctx, model.ScopeRole, model.RoleBuyer, "INR")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMemoryPolicyRepoIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPolicyRepo()
	p := testPolicy("g1", model.ScopeGlobal, "", true)
	require.NoError(t, repo.Create(ctx, p))

	*p.DailyAmountLimit = decimal.NewFromInt(1)
	got, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(*got.DailyAmountLimit))

	require.NoError(t, repo.Delete(ctx, "g1"))
	assert.ErrorIs(t, repo.Delete(ctx, "g1"), model.ErrPolicyNotFound)
	_, err = repo.Get(ctx, "g1")
	assert.ErrorIs(t, err, model.ErrPolicyNotFound)
}
