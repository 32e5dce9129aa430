package risk

import (
	"errors"
	"fmt"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/shopspring/decimal"
)

// AdaptiveFactors shrink one tier's limits. Amount factors multiply, count
// reductions subtract.
type AdaptiveFactors struct {
	MaxSingle             decimal.Decimal
	DailyAmount           decimal.Decimal
	WeeklyAmount          decimal.Decimal
	MonthlyAmount         decimal.Decimal
	DailyCountReduction   int
	WeeklyCountReduction  int
	MonthlyCountReduction int
}

func (f AdaptiveFactors) validate() error {
	for _, v := range []decimal.Decimal{f.MaxSingle, f.DailyAmount, f.WeeklyAmount, f.MonthlyAmount} {
		if !v.IsPositive() || v.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("amount factor %s outside (0, 1]", v)
		}
	}
	if f.DailyCountReduction < 0 || f.WeeklyCountReduction < 0 || f.MonthlyCountReduction < 0 {
		return errors.New("count reductions must not be negative")
	}
	return nil
}

// AdaptiveFactorTable is built once at startup and only read afterwards.
type AdaptiveFactorTable struct {
	factors map[model.RiskLevel]AdaptiveFactors
}

// DefaultAdaptiveFactors returns the stock HIGH/MEDIUM table.
func DefaultAdaptiveFactors() AdaptiveFactorTable {
	return AdaptiveFactorTable{factors: map[model.RiskLevel]AdaptiveFactors{
		model.RiskHigh: {
			MaxSingle:             decimal.RequireFromString("0.5"),
			DailyAmount:           decimal.RequireFromString("0.6"),
			WeeklyAmount:          decimal.RequireFromString("0.7"),
			MonthlyAmount:         decimal.RequireFromString("0.8"),
			DailyCountReduction:   1,
			WeeklyCountReduction:  2,
			MonthlyCountReduction: 3,
		},
		model.RiskMedium: {
			MaxSingle:             decimal.RequireFromString("0.75"),
			DailyAmount:           decimal.RequireFromString("0.8"),
			WeeklyAmount:          decimal.RequireFromString("0.85"),
			MonthlyAmount:         decimal.RequireFromString("0.9"),
			WeeklyCountReduction:  1,
			MonthlyCountReduction: 1,
		},
	}}
}

// NewAdaptiveFactorTable validates and freezes the factors for HIGH and MEDIUM.
func NewAdaptiveFactorTable(high, medium AdaptiveFactors) (AdaptiveFactorTable, error) {
	if err := high.validate(); err != nil {
		return AdaptiveFactorTable{}, fmt.Errorf("adaptive HIGH: %w", err)
	}
	if err := medium.validate(); err != nil {
		return AdaptiveFactorTable{}, fmt.Errorf("adaptive MEDIUM: %w", err)
	}
	return AdaptiveFactorTable{factors: map[model.RiskLevel]AdaptiveFactors{
		model.RiskHigh:   high,
		model.RiskMedium: medium,
	}}, nil
}

// Lookup returns the factors for a tier; LOW and unknown tiers have none.
func (t AdaptiveFactorTable) Lookup(level model.RiskLevel) (AdaptiveFactors, bool) {
	f, ok := t.factors[level]
	return f, ok
}

// Unadapted wraps an effective policy without touching any limit.
func Unadapted(base *model.EffectivePolicy) *model.AdaptivePolicy {
	if base == nil {
		return nil
	}
	p := *base
	p.PolicyLimits = base.PolicyLimits.Clone()
	return &model.AdaptivePolicy{
		EffectivePolicy: p,
		OriginalLimits:  base.PolicyLimits.Clone(),
		Adjustments:     []model.AdaptiveLimitAdjustment{},
	}
}

// ApplyAdaptiveLimits shrinks the policy's caps for the given risk. The base
// policy is never mutated and MinSingleWithdrawal is never touched.
func (t AdaptiveFactorTable) ApplyAdaptiveLimits(base *model.EffectivePolicy, rc *model.RiskContext) *model.AdaptivePolicy {
	out := Unadapted(base)
	if out == nil || rc == nil {
		return out
	}
	out.RiskLevel = rc.RiskLevel
	f, ok := t.Lookup(rc.RiskLevel)
	if !ok {
		return out
	}

	a := adjuster{level: rc.RiskLevel, policy: out}
	a.amount(model.FieldMaxSingleWithdrawal, out.MaxSingleWithdrawal, f.MaxSingle)
	a.amount(model.FieldDailyAmountLimit, out.DailyAmountLimit, f.DailyAmount)
	a.amount(model.FieldWeeklyAmountLimit, out.WeeklyAmountLimit, f.WeeklyAmount)
	a.amount(model.FieldMonthlyAmountLimit, out.MonthlyAmountLimit, f.MonthlyAmount)
	a.count(model.FieldDailyCountLimit, out.DailyCountLimit, f.DailyCountReduction)
	a.count(model.FieldWeeklyCountLimit, out.WeeklyCountLimit, f.WeeklyCountReduction)
	a.count(model.FieldMonthlyCountLimit, out.MonthlyCountLimit, f.MonthlyCountReduction)

	out.IsAdapted = len(out.Adjustments) > 0
	return out
}

type adjuster struct {
	level  model.RiskLevel
	policy *model.AdaptivePolicy
}

// amount floors v*factor in place and records the change, if any.
func (a adjuster) amount(field model.LimitField, v *decimal.Decimal, factor decimal.Decimal) {
	if v == nil {
		return
	}
	original := *v
	adjusted := original.Mul(factor).Floor()
	if adjusted.Equal(original) {
		return
	}
	*v = adjusted
	a.policy.Adjustments = append(a.policy.Adjustments, model.AdaptiveLimitAdjustment{
		Field:         field,
		OriginalValue: original,
		AdjustedValue: adjusted,
		Reason: fmt.Sprintf("%s risk: %s reduced to %s%% (%s -> %s)",
			a.level, field, factor.Mul(decimal.NewFromInt(100)).String(), original.String(), adjusted.String()),
	})
}

// count subtracts reduction in place only while the result stays positive.
func (a adjuster) count(field model.LimitField, v *int, reduction int) {
	if v == nil || reduction <= 0 || *v <= reduction {
		return
	}
	original := *v
	*v = original - reduction
	a.policy.Adjustments = append(a.policy.Adjustments, model.AdaptiveLimitAdjustment{
		Field:         field,
		OriginalValue: decimal.NewFromInt(int64(original)),
		AdjustedValue: decimal.NewFromInt(int64(*v)),
		Reason:        fmt.Sprintf("%s risk: %s reduced by %d (%d -> %d)", a.level, field, reduction, original, *v),
	})
}
