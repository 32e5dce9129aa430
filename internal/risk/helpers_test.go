package risk

import (
	"fmt"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var seq int

func withdrawal(ago time.Duration, status model.WithdrawalStatus, amount string) model.Withdrawal {
	seq++
	return model.Withdrawal{
		ID:          fmt.Sprintf("w-%d", seq),
		UserID:      "user-1",
		Amount:      decimal.RequireFromString(amount),
		Currency:    "INR",
		Status:      status,
		RequestedAt: testNow.Add(-ago),
	}
}

func daysAgo(n float64) time.Duration {
	return time.Duration(n * float64(24*time.Hour))
}

func completedDaysAgo(days ...float64) []model.Withdrawal {
	out := make([]model.Withdrawal, 0, len(days))
	for _, d := range days {
		out = append(out, withdrawal(daysAgo(d), model.StatusCompleted, "100"))
	}
	return out
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
