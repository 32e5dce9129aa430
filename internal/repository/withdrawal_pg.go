package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PostgresWithdrawalRepo struct {
	db *gorm.DB
}

func NewPostgresWithdrawalRepo(db *gorm.DB) *PostgresWithdrawalRepo {
	return &PostgresWithdrawalRepo{db: db}
}

func (r *PostgresWithdrawalRepo) Create(ctx context.Context, w *model.Withdrawal) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *PostgresWithdrawalRepo) GetByID(ctx context.Context, id string) (*model.Withdrawal, error) {
	var w model.Withdrawal
	err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *PostgresWithdrawalRepo) ListByUser(ctx context.Context, userID string, since *time.Time) ([]model.Withdrawal, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if since != nil {
		q = q.Where("requested_at >= ?", *since)
	}
	var out []model.Withdrawal
	if err := q.Order("requested_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresWithdrawalRepo) AggregateSince(ctx context.Context, userID string, since time.Time, statuses []model.WithdrawalStatus) (int, decimal.Decimal, error) {
	var row struct {
		Count int64
		Total decimal.NullDecimal
	}
	q := r.db.WithContext(ctx).
		Model(&model.Withdrawal{}).
		Select("COUNT(*) AS count, SUM(amount) AS total").
		Where("user_id = ? AND requested_at >= ?", userID, since)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Scan(&row).Error; err != nil {
		return 0, decimal.Zero, err
	}
	total := decimal.Zero
	if row.Total.Valid {
		total = row.Total.Decimal
	}
	return int(row.Count), total, nil
}

// UpdateStatus moves a withdrawal from -> to only if it is still in from.
func (r *PostgresWithdrawalRepo) UpdateStatus(ctx context.Context, id string, from, to model.WithdrawalStatus, patch model.StatusPatch) (*model.Withdrawal, error) {
	updates := statusColumns(to, patch)
	res := r.db.WithContext(ctx).
		Model(&model.Withdrawal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, model.ErrStatusConflict
	}
	return r.GetByID(ctx, id)
}

func statusColumns(to model.WithdrawalStatus, patch model.StatusPatch) map[string]interface{} {
	at := patch.At
	cols := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case model.StatusApproved:
		cols["approved_at"] = at
		cols["approved_by"] = patch.ActorID
		cols["approval_reason"] = patch.Reason
	case model.StatusProcessing:
		cols["processed_at"] = at
	case model.StatusCompleted:
		cols["completed_at"] = at
	case model.StatusRejected:
		cols["rejected_at"] = at
		cols["rejection_reason"] = patch.RejectionReason
	case model.StatusCancelled:
		cols["cancelled_at"] = at
	case model.StatusFailed:
		cols["failed_at"] = at
		cols["failure_reason"] = patch.FailureReason
	}
	return cols
}
