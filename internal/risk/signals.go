package risk

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/shopspring/decimal"
)

const (
	day         = 24 * time.Hour
	recentSpan  = 7 * day
	rollingSpan = 30 * day
)

// Data-sufficiency gates and trigger thresholds of the signal computers.
const (
	frequencyMinHistory   = 10
	frequencyTriggerRatio = 1.5

	failureMinCount = 2

	deviationMinHistory = 5
	deviationUpperGate  = 2.0
	deviationLowerGate  = 0.5

	bankAccountTrigger = 2
)

var violationKeywords = []string{"limit", "exceeded", "policy"}

// SignalComputer inspects one user's history and emits zero or one signal.
type SignalComputer func(history []model.Withdrawal, now time.Time) *model.RiskSignal

// Computers lists every signal computer in evaluation order.
var Computers = []SignalComputer{
	FrequencyAcceleration,
	HighFailureRate,
	AmountDeviation,
	MultipleBankAccounts,
	RecentRejections,
	PolicyViolationDensity,
}

// ComputeSignals runs every computer independently and keeps the non-nil results.
func ComputeSignals(history []model.Withdrawal, now time.Time) []model.RiskSignal {
	signals := make([]model.RiskSignal, 0, len(Computers))
	for _, compute := range Computers {
		if s := compute(history, now); s != nil {
			signals = append(signals, *s)
		}
	}
	return signals
}

func within(w model.Withdrawal, now time.Time, span time.Duration) bool {
	return !w.RequestedAt.Before(now.Add(-span)) && !w.RequestedAt.After(now)
}

func countWithin(history []model.Withdrawal, now time.Time, span time.Duration) int {
	n := 0
	for _, w := range history {
		if within(w, now, span) {
			n++
		}
	}
	return n
}

func clampScore(v float64) int {
	s := int(math.Round(v))
	if s > 100 {
		return 100
	}
	if s < 0 {
		return 0
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FrequencyAcceleration compares the last 7 days against the user's historical weekly average.
func FrequencyAcceleration(history []model.Withdrawal, now time.Time) *model.RiskSignal {
	total := len(history)
	if total < frequencyMinHistory {
		return nil
	}

	first := history[0].RequestedAt
	for _, w := range history[1:] {
		if w.RequestedAt.Before(first) {
			first = w.RequestedAt
		}
	}
	weeks := now.Sub(first).Hours() / 24 / 7
	if weeks < 1 {
		weeks = 1
	}
	weeklyAvg := float64(total) / weeks
	recent := countWithin(history, now, recentSpan)
	ratio := float64(recent) / weeklyAvg
	if ratio < frequencyTriggerRatio {
		return nil
	}

	var severity model.RiskLevel
	var score float64
	switch {
	case ratio >= 3:
		severity, score = model.RiskHigh, 60+(ratio-3)*10
	case ratio >= 2:
		severity, score = model.RiskMedium, 40+(ratio-2)*20
	default:
		severity, score = model.RiskLow, 20+(ratio-frequencyTriggerRatio)*40
	}

	return &model.RiskSignal{
		SignalType: model.SignalFrequencyAcceleration,
		Severity:   severity,
		Score:      clampScore(score),
		Explanation: fmt.Sprintf("%d withdrawals in the last 7 days is %.1fx the historical weekly average of %.1f",
			recent, ratio, weeklyAvg),
		Metadata: map[string]interface{}{
			"recent_count":       recent,
			"historical_average": round2(weeklyAvg),
			"ratio":              round2(ratio),
			"total_withdrawals":  total,
		},
	}
}

// HighFailureRate flags users whose withdrawals frequently end failed or rejected.
func HighFailureRate(history []model.Withdrawal, _ time.Time) *model.RiskSignal {
	failed, rejected := 0, 0
	for _, w := range history {
		switch w.Status {
		case model.StatusFailed:
			failed++
		case model.StatusRejected:
			rejected++
		}
	}
	bad := failed + rejected
	if bad < failureMinCount {
		return nil
	}
	rate := float64(bad) / float64(len(history))

	var severity model.RiskLevel
	var score float64
	switch {
	case rate >= 0.4:
		severity, score = model.RiskHigh, 70+(rate-0.4)*50
	case rate >= 0.2:
		severity, score = model.RiskMedium, 45+(rate-0.2)*100
	case rate >= 0.1:
		severity, score = model.RiskLow, 25+(rate-0.1)*100
	default:
		return nil
	}

	return &model.RiskSignal{
		SignalType:  model.SignalHighFailureRate,
		Severity:    severity,
		Score:       clampScore(score),
		Explanation: fmt.Sprintf("%d of %d withdrawals failed or were rejected (%.0f%%)", bad, len(history), rate*100),
		Metadata: map[string]interface{}{
			"failed_count":   failed,
			"rejected_count": rejected,
			"total":          len(history),
			"failure_rate":   round2(rate),
		},
	}
}

// AmountDeviation compares the average amount of the last 7 days against older withdrawals.
func AmountDeviation(history []model.Withdrawal, now time.Time) *model.RiskSignal {
	if len(history) < deviationMinHistory {
		return nil
	}

	recentSum, histSum := decimal.Zero, decimal.Zero
	recentN, histN := 0, 0
	for _, w := range history {
		if within(w, now, recentSpan) {
			recentSum = recentSum.Add(w.Amount)
			recentN++
		} else if w.RequestedAt.Before(now) {
			histSum = histSum.Add(w.Amount)
			histN++
		}
	}
	if recentN == 0 || histN == 0 {
		return nil
	}
	recentAvg := recentSum.Div(decimal.NewFromInt(int64(recentN)))
	histAvg := histSum.Div(decimal.NewFromInt(int64(histN)))
	if !histAvg.IsPositive() {
		return nil
	}
	ratio := recentAvg.Div(histAvg).InexactFloat64()
	if ratio <= deviationUpperGate && ratio >= deviationLowerGate {
		return nil
	}

	var severity model.RiskLevel
	var score int
	switch {
	case ratio >= 3 || ratio <= 0.3:
		severity, score = model.RiskHigh, 70
	case ratio >= 2 || ratio <= 0.5:
		severity, score = model.RiskMedium, 50
	default:
		severity, score = model.RiskLow, 30
	}

	direction := "above"
	if ratio < 1 {
		direction = "below"
	}
	return &model.RiskSignal{
		SignalType: model.SignalAmountDeviation,
		Severity:   severity,
		Score:      score,
		Explanation: fmt.Sprintf("recent average amount %s is %.2fx %s the historical average %s",
			recentAvg.StringFixed(2), ratio, direction, histAvg.StringFixed(2)),
		Metadata: map[string]interface{}{
			"recent_average":     recentAvg.StringFixed(2),
			"historical_average": histAvg.StringFixed(2),
			"ratio":              round2(ratio),
			"recent_count":       recentN,
			"historical_count":   histN,
		},
	}
}

// MultipleBankAccounts counts distinct destination accounts ever used.
func MultipleBankAccounts(history []model.Withdrawal, _ time.Time) *model.RiskSignal {
	seen := make(map[string]struct{})
	for _, w := range history {
		if ref := strings.TrimSpace(w.BankAccountRef); ref != "" {
			seen[ref] = struct{}{}
		}
	}
	n := len(seen)
	if n <= bankAccountTrigger {
		return nil
	}

	var severity model.RiskLevel
	var score int
	switch {
	case n >= 5:
		severity, score = model.RiskHigh, clampScore(float64(70+5*(n-5)))
	case n >= 4:
		severity, score = model.RiskMedium, 50
	default:
		severity, score = model.RiskLow, 30
	}

	return &model.RiskSignal{
		SignalType:  model.SignalMultipleBankAccounts,
		Severity:    severity,
		Score:       score,
		Explanation: fmt.Sprintf("withdrawals sent to %d distinct bank accounts", n),
		Metadata: map[string]interface{}{
			"distinct_accounts": n,
		},
	}
}

// RecentRejections looks at rejections inside the trailing 30 days.
func RecentRejections(history []model.Withdrawal, now time.Time) *model.RiskSignal {
	total, rejected := 0, 0
	for _, w := range history {
		if !within(w, now, rollingSpan) {
			continue
		}
		total++
		if w.Status == model.StatusRejected {
			rejected++
		}
	}
	if rejected == 0 {
		return nil
	}
	rate := float64(rejected) / float64(total)

	var severity model.RiskLevel
	var score int
	switch {
	case rejected >= 5 || rate >= 0.3:
		severity, score = model.RiskHigh, 80
	case rejected >= 3 || rate >= 0.2:
		severity, score = model.RiskMedium, 55
	default:
		severity, score = model.RiskLow, 35
	}

	return &model.RiskSignal{
		SignalType:  model.SignalRecentRejections,
		Severity:    severity,
		Score:       score,
		Explanation: fmt.Sprintf("%d of %d withdrawals rejected in the last 30 days", rejected, total),
		Metadata: map[string]interface{}{
			"rejected_count": rejected,
			"total_last_30d": total,
			"rejection_rate": round2(rate),
		},
	}
}

func isPolicyViolation(reason string) bool {
	r := strings.ToLower(reason)
	for _, kw := range violationKeywords {
		if strings.Contains(r, kw) {
			return true
		}
	}
	return false
}

// PolicyViolationDensity counts recent rejections whose reason points at a limit or policy.
func PolicyViolationDensity(history []model.Withdrawal, now time.Time) *model.RiskSignal {
	total, violations := 0, 0
	for _, w := range history {
		if !within(w, now, rollingSpan) {
			continue
		}
		total++
		if w.Status == model.StatusRejected && isPolicyViolation(w.RejectionReason) {
			violations++
		}
	}
	if violations == 0 {
		return nil
	}
	rate := float64(violations) / float64(total)

	var severity model.RiskLevel
	var score int
	switch {
	case violations >= 5 || rate >= 0.4:
		severity, score = model.RiskHigh, 75
	case violations >= 3 || rate >= 0.25:
		severity, score = model.RiskMedium, 50
	default:
		severity, score = model.RiskLow, 30
	}

	return &model.RiskSignal{
		SignalType:  model.SignalPolicyViolationDensity,
		Severity:    severity,
		Score:       score,
		Explanation: fmt.Sprintf("%d policy-related rejections in the last 30 days", violations),
		Metadata: map[string]interface{}{
			"violation_count": violations,
			"total_last_30d":  total,
			"violation_rate":  round2(rate),
		},
	}
}
