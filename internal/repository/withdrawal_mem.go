package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/shopspring/decimal"
)

// MemoryWithdrawalRepo 用于本地运行和测试
type MemoryWithdrawalRepo struct {
	mu   sync.RWMutex
	rows map[string]model.Withdrawal
}

func NewMemoryWithdrawalRepo() *MemoryWithdrawalRepo {
	return &MemoryWithdrawalRepo{rows: make(map[string]model.Withdrawal)}
}

func (r *MemoryWithdrawalRepo) Create(_ context.Context, w *model.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[w.ID] = *w
	return nil
}

func (r *MemoryWithdrawalRepo) GetByID(_ context.Context, id string) (*model.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.rows[id]
	if !ok {
		return nil, model.ErrWithdrawalNotFound
	}
	return &w, nil
}

func (r *MemoryWithdrawalRepo) ListByUser(_ context.Context, userID string, since *time.Time) ([]model.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Withdrawal
	for _, w := range r.rows {
		if w.UserID != userID {
			continue
		}
		if since != nil && w.RequestedAt.Before(*since) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out, nil
}

func (r *MemoryWithdrawalRepo) AggregateSince(_ context.Context, userID string, since time.Time, statuses []model.WithdrawalStatus) (int, decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	allowed := make(map[model.WithdrawalStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	count, total := 0, decimal.Zero
	for _, w := range r.rows {
		if w.UserID != userID || w.RequestedAt.Before(since) {
			continue
		}
		if len(allowed) > 0 && !allowed[w.Status] {
			continue
		}
		count++
		total = total.Add(w.Amount)
	}
	return count, total, nil
}

func (r *MemoryWithdrawalRepo) UpdateStatus(_ context.Context, id string, from, to model.WithdrawalStatus, patch model.StatusPatch) (*model.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[id]
	if !ok {
		return nil, model.ErrWithdrawalNotFound
	}
	if w.Status != from {
		return nil, model.ErrStatusConflict
	}
	applyStatus(&w, to, patch)
	r.rows[id] = w
	return &w, nil
}

func applyStatus(w *model.Withdrawal, to model.WithdrawalStatus, patch model.StatusPatch) {
	at := patch.At
	w.Status = to
	w.UpdatedAt = at
	switch to {
	case model.StatusApproved:
		w.ApprovedAt = &at
		w.ApprovedBy = patch.ActorID
		w.ApprovalReason = patch.Reason
	case model.StatusProcessing:
		w.ProcessedAt = &at
	case model.StatusCompleted:
		w.CompletedAt = &at
	case model.StatusRejected:
		w.RejectedAt = &at
		w.RejectionReason = patch.RejectionReason
	case model.StatusCancelled:
		w.CancelledAt = &at
	case model.StatusFailed:
		w.FailedAt = &at
		w.FailureReason = patch.FailureReason
	}
}
