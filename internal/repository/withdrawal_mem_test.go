package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedWithdrawal(id, user string, ago time.Duration, status model.WithdrawalStatus, amount string) *model.Withdrawal {
	return &model.Withdrawal{
		ID:          id,
		UserID:      user,
		WalletID:    "wallet-" + user,
		Amount:      decimal.RequireFromString(amount),
		Currency:    "INR",
		Status:      status,
		RequestedAt: repoNow.Add(-ago),
		UpdatedAt:   repoNow.Add(-ago),
	}
}

func TestMemoryWithdrawalRepoAggregate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryWithdrawalRepo()
	require.NoError(t, repo.Create(ctx, seedWithdrawal("w1", "u1", time.Hour, model.StatusRequested, "100")))
	require.NoError(t, repo.Create(ctx, seedWithdrawal("w2", "u1", 2*time.Hour, model.StatusCompleted, "250.50")))
	require.NoError(t, repo.Create(ctx, seedWithdrawal("w3", "u1", 3*time.Hour, model.StatusRejected, "999")))
	require.NoError(t, repo.Create(ctx, seedWithdrawal("w4", "u1", 48*time.Hour, model.StatusCompleted, "70")))
	require.NoError(t, repo.Create(ctx, seedWithdrawal("w5", "u2", time.Hour, model.StatusCompleted, "5000")))

	count, sum, err := repo.AggregateSince(ctx, "u1", repoNow.Add(-24*time.Hour), model.ActiveStatuses)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, decimal.RequireFromString("350.50").Equal(sum), sum.String())

	count, _, err = repo.AggregateSince(ctx, "u1", repoNow.Add(-7*24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	since := repoNow.Add(-24 * time.Hour)
	list, err := repo.ListByUser(ctx, "u1", &since)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "w3", list[0].ID, "oldest first")
}

func TestMemoryWithdrawalRepoCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryWithdrawalRepo()
	require.NoError(t, repo.Create(ctx, seedWithdrawal("w1", "u1", time.Hour, model.StatusRequested, "100")))

	updated, err := repo.UpdateStatus(ctx, "w1", model.StatusRequested, model.StatusApproved, model.StatusPatch{
		At: repoNow, ActorID: "admin-1", Reason: "looks fine",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, updated.Status)
	assert.Equal(t, "admin-1", updated.ApprovedBy)
	require.NotNil(t, updated.ApprovedAt)

	_, err = repo.UpdateStatus(ctx, "w1", model.StatusRequested, model.StatusCancelled, model.StatusPatch{At: repoNow})
	assert.ErrorIs(t, err, model.ErrStatusConflict)

	_, err = repo.UpdateStatus(ctx, "missing", model.StatusRequested, model.StatusCancelled, model.StatusPatch{At: repoNow})
	assert.ErrorIs(t, err, model.ErrWithdrawalNotFound)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrWithdrawalNotFound)
}
