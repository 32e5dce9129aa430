package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PolicyScope decides whether a policy applies to every role or a single one.
type PolicyScope string

const (
	ScopeGlobal PolicyScope = "GLOBAL"
	ScopeRole   PolicyScope = "ROLE"
)

func (s PolicyScope) Valid() bool {
	return s == ScopeGlobal || s == ScopeRole
}

// PolicyLimits holds the nullable caps of a policy. A nil field means "no limit".
type PolicyLimits struct {
	DailyAmountLimit    *decimal.Decimal `json:"daily_amount_limit" gorm:"type:numeric(20,2)"`
	WeeklyAmountLimit   *decimal.Decimal `json:"weekly_amount_limit" gorm:"type:numeric(20,2)"`
	MonthlyAmountLimit  *decimal.Decimal `json:"monthly_amount_limit" gorm:"type:numeric(20,2)"`
	DailyCountLimit     *int             `json:"daily_count_limit"`
	WeeklyCountLimit    *int             `json:"weekly_count_limit"`
	MonthlyCountLimit   *int             `json:"monthly_count_limit"`
	MinSingleWithdrawal *decimal.Decimal `json:"min_single_withdrawal" gorm:"type:numeric(20,2)"`
	MaxSingleWithdrawal *decimal.Decimal `json:"max_single_withdrawal" gorm:"type:numeric(20,2)"`
}

// Clone returns a copy that shares no pointers with l.
func (l PolicyLimits) Clone() PolicyLimits {
	return PolicyLimits{
		DailyAmountLimit:    cloneDecimal(l.DailyAmountLimit),
		WeeklyAmountLimit:   cloneDecimal(l.WeeklyAmountLimit),
		MonthlyAmountLimit:  cloneDecimal(l.MonthlyAmountLimit),
		DailyCountLimit:     cloneInt(l.DailyCountLimit),
		WeeklyCountLimit:    cloneInt(l.WeeklyCountLimit),
		MonthlyCountLimit:   cloneInt(l.MonthlyCountLimit),
		MinSingleWithdrawal: cloneDecimal(l.MinSingleWithdrawal),
		MaxSingleWithdrawal: cloneDecimal(l.MaxSingleWithdrawal),
	}
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// DecimalPtr and IntPtr are small helpers for building limits.
func DecimalPtr(v decimal.Decimal) *decimal.Decimal { return &v }

func IntPtr(v int) *int { return &v }

// WithdrawalPolicy 提现限额策略 (persisted)
type WithdrawalPolicy struct {
	ID          string      `json:"id" gorm:"primaryKey;type:text"`
	Name        string      `json:"name" gorm:"type:text;not null"`
	Description string      `json:"description,omitempty" gorm:"type:text"`
	ScopeType   PolicyScope `json:"scope_type" gorm:"type:varchar(8);not null;index:idx_policy_scope,priority:1"`
	Role        string      `json:"role,omitempty" gorm:"type:varchar(32);index:idx_policy_scope,priority:2"`
	Currency    string      `json:"currency" gorm:"type:varchar(8);not null;index:idx_policy_scope,priority:3"`
	Enabled     bool        `json:"enabled" gorm:"not null;default:true"`

	PolicyLimits `gorm:"embedded"`

	CreatedBy string    `json:"created_by,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectivePolicy is the read-only view of the policy chosen by the resolver.
type EffectivePolicy struct {
	PolicyID  string      `json:"policy_id"`
	Name      string      `json:"name"`
	ScopeType PolicyScope `json:"scope_type"`
	Role      string      `json:"role,omitempty"`
	Currency  string      `json:"currency"`
	PolicyLimits
}

// Effective converts a stored policy into its evaluation view.
func (p *WithdrawalPolicy) Effective() *EffectivePolicy {
	if p == nil {
		return nil
	}
	return &EffectivePolicy{
		PolicyID:     p.ID,
		Name:         p.Name,
		ScopeType:    p.ScopeType,
		Role:         p.Role,
		Currency:     p.Currency,
		PolicyLimits: p.PolicyLimits.Clone(),
	}
}

// LimitField names an adjustable policy field.
type LimitField string

const (
	FieldMaxSingleWithdrawal LimitField = "max_single_withdrawal"
	FieldDailyAmountLimit    LimitField = "daily_amount_limit"
	FieldWeeklyAmountLimit   LimitField = "weekly_amount_limit"
	FieldMonthlyAmountLimit  LimitField = "monthly_amount_limit"
	FieldDailyCountLimit     LimitField = "daily_count_limit"
	FieldWeeklyCountLimit    LimitField = "weekly_count_limit"
	FieldMonthlyCountLimit   LimitField = "monthly_count_limit"
)

// AdaptiveLimitAdjustment records one field shrunk because of risk.
type AdaptiveLimitAdjustment struct {
	Field         LimitField      `json:"field"`
	OriginalValue decimal.Decimal `json:"original_value"`
	AdjustedValue decimal.Decimal `json:"adjusted_value"`
	Reason        string          `json:"reason"`
}

// AdaptivePolicy is an in-memory, risk-shrunk EffectivePolicy. Never persisted.
type AdaptivePolicy struct {
	EffectivePolicy
	IsAdapted      bool                      `json:"is_adapted"`
	RiskLevel      RiskLevel                 `json:"risk_level,omitempty"`
	OriginalLimits PolicyLimits              `json:"original_limits"`
	Adjustments    []AdaptiveLimitAdjustment `json:"adjustments"`
}

// Adjustment returns the adjustment for field, if one was applied.
func (p *AdaptivePolicy) Adjustment(field LimitField) (AdaptiveLimitAdjustment, bool) {
	if p == nil {
		return AdaptiveLimitAdjustment{}, false
	}
	for _, a := range p.Adjustments {
		if a.Field == field {
			return a, true
		}
	}
	return AdaptiveLimitAdjustment{}, false
}

// PolicyFilter narrows a policy listing.
type PolicyFilter struct {
	ScopeType PolicyScope
	Role      string
	Currency  string
	Enabled   *bool
}
