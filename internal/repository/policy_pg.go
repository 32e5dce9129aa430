package repository

import (
	"context"
	"errors"

	"github.com/rachelfoods/payoutgate/internal/model"
	"gorm.io/gorm"
)

type PostgresPolicyRepo struct {
	db *gorm.DB
}

func NewPostgresPolicyRepo(db *gorm.DB) *PostgresPolicyRepo {
	return &PostgresPolicyRepo{db: db}
}

func (r *PostgresPolicyRepo) Create(ctx context.Context, p *model.WithdrawalPolicy) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return model.ErrPolicyConflict
	}
	return err
}

func (r *PostgresPolicyRepo) Get(ctx context.Context, id string) (*model.WithdrawalPolicy, error) {
	var p model.WithdrawalPolicy
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPolicyRepo) List(ctx context.Context, filter model.PolicyFilter) ([]model.WithdrawalPolicy, error) {
	q := r.db.WithContext(ctx).Model(&model.WithdrawalPolicy{})
	if filter.ScopeType != "" {
		q = q.Where("scope_type = ?", filter.ScopeType)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Currency != "" {
		q = q.Where("currency = ?", filter.Currency)
	}
	if filter.Enabled != nil {
		q = q.Where("enabled = ?", *filter.Enabled)
	}
	var out []model.WithdrawalPolicy
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites every mutable column, including limits cleared to NULL.
func (r *PostgresPolicyRepo) Update(ctx context.Context, p *model.WithdrawalPolicy) error {
	res := r.db.WithContext(ctx).
		Model(&model.WithdrawalPolicy{}).
		Where("id = ?", p.ID).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(p)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return model.ErrPolicyConflict
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrPolicyNotFound
	}
	return nil
}

func (r *PostgresPolicyRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.WithdrawalPolicy{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrPolicyNotFound
	}
	return nil
}

// FindEnabled returns (nil, nil) when no enabled policy matches.
func (r *PostgresPolicyRepo) FindEnabled(ctx context.Context, scope model.PolicyScope, role, currency string) (*model.WithdrawalPolicy, error) {
	q := r.db.WithContext(ctx).
		Where("scope_type = ? AND currency = ? AND enabled = ?", scope, currency, true)
	if scope == model.ScopeRole {
		q = q.Where("role = ?", role)
	}
	var p model.WithdrawalPolicy
	err := q.Order("updated_at DESC").Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
