package risk

import (
	"fmt"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/shopspring/decimal"
)

// EvaluateLimits runs every limit check against the requested amount and the
// consumed usage. All checks run; nothing short-circuits. Count checks use >=
// so that a window at capacity blocks the next withdrawal, amount checks use >
// on the projected total.
func EvaluateLimits(policy *model.AdaptivePolicy, amount decimal.Decimal, usage model.UsageSnapshot) []model.LimitViolation {
	violations := []model.LimitViolation{}
	if policy == nil {
		return violations
	}
	add := func(t model.ViolationType, field model.LimitField, msg string, current, limit decimal.Decimal) {
		violations = append(violations, model.LimitViolation{
			ViolationType: t,
			Message:       msg + originalSuffix(policy, field),
			CurrentValue:  current,
			LimitValue:    limit,
		})
	}
	lim := policy.PolicyLimits

	if lim.MinSingleWithdrawal != nil && amount.LessThan(*lim.MinSingleWithdrawal) {
		add(model.ViolationBelowMinSingle, "",
			fmt.Sprintf("amount %s is below the minimum single withdrawal of %s", amount, lim.MinSingleWithdrawal),
			amount, *lim.MinSingleWithdrawal)
	}
	if lim.MaxSingleWithdrawal != nil && amount.GreaterThan(*lim.MaxSingleWithdrawal) {
		add(model.ViolationExceedsMaxSingle, model.FieldMaxSingleWithdrawal,
			fmt.Sprintf("amount %s exceeds the maximum single withdrawal of %s", amount, lim.MaxSingleWithdrawal),
			amount, *lim.MaxSingleWithdrawal)
	}

	windows := []struct {
		name        string
		usage       model.WindowUsage
		countLimit  *int
		amountLimit *decimal.Decimal
		countType   model.ViolationType
		amountType  model.ViolationType
		countField  model.LimitField
		amountField model.LimitField
	}{
		{"daily", usage.Daily, lim.DailyCountLimit, lim.DailyAmountLimit,
			model.ViolationDailyCountExceeded, model.ViolationDailyAmountExceeded,
			model.FieldDailyCountLimit, model.FieldDailyAmountLimit},
		{"weekly", usage.Weekly, lim.WeeklyCountLimit, lim.WeeklyAmountLimit,
			model.ViolationWeeklyCountExceeded, model.ViolationWeeklyAmountExceeded,
			model.FieldWeeklyCountLimit, model.FieldWeeklyAmountLimit},
		{"monthly", usage.Monthly, lim.MonthlyCountLimit, lim.MonthlyAmountLimit,
			model.ViolationMonthlyCountExceeded, model.ViolationMonthlyAmountExceeded,
			model.FieldMonthlyCountLimit, model.FieldMonthlyAmountLimit},
	}
	for _, w := range windows {
		if w.countLimit != nil && w.usage.Count >= *w.countLimit {
			add(w.countType, w.countField,
				fmt.Sprintf("%s withdrawal count limit reached: %d of %d", w.name, w.usage.Count, *w.countLimit),
				decimal.NewFromInt(int64(w.usage.Count)), decimal.NewFromInt(int64(*w.countLimit)))
		}
		if w.amountLimit != nil {
			projected := w.usage.Amount.Add(amount)
			if projected.GreaterThan(*w.amountLimit) {
				add(w.amountType, w.amountField,
					fmt.Sprintf("%s amount limit exceeded: %s already withdrawn plus %s requested exceeds %s",
						w.name, w.usage.Amount, amount, w.amountLimit),
					projected, *w.amountLimit)
			}
		}
	}
	return violations
}

func originalSuffix(policy *model.AdaptivePolicy, field model.LimitField) string {
	if !policy.IsAdapted || field == "" {
		return ""
	}
	adj, ok := policy.Adjustment(field)
	if !ok {
		return ""
	}
	return fmt.Sprintf(" (original limit %s, reduced for %s risk)", adj.OriginalValue, policy.RiskLevel)
}
