package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
)

// CoolingRules configure the velocity cooldown per tier.
type CoolingRules struct {
	Window            time.Duration
	HighCooldown      time.Duration
	HighMinAttempts   int
	MediumCooldown    time.Duration
	MediumMinAttempts int
}

func DefaultCoolingRules() CoolingRules {
	return CoolingRules{
		Window:            24 * time.Hour,
		HighCooldown:      12 * time.Hour,
		HighMinAttempts:   1,
		MediumCooldown:    2 * time.Hour,
		MediumMinAttempts: 2,
	}
}

func (c CoolingRules) forLevel(level model.RiskLevel) (time.Duration, int, bool) {
	switch level {
	case model.RiskHigh:
		return c.HighCooldown, c.HighMinAttempts, true
	case model.RiskMedium:
		return c.MediumCooldown, c.MediumMinAttempts, true
	default:
		return 0, 0, false
	}
}

// EvaluateCooling counts attempts of any status inside the window and, when
// the tier's attempt threshold is met, imposes a cooldown from the last one.
func (c CoolingRules) EvaluateCooling(userID string, level model.RiskLevel, history []model.Withdrawal, now time.Time) model.CoolingPeriodResult {
	res := model.CoolingPeriodResult{UserID: userID, RiskLevel: level}

	var last *time.Time
	for i := range history {
		at := history[i].RequestedAt
		if at.Before(now.Add(-c.Window)) || at.After(now) {
			continue
		}
		res.AttemptsLast24h++
		if last == nil || at.After(*last) {
			t := at
			last = &t
		}
	}
	res.LastAttemptAt = last

	cooldown, minAttempts, ok := c.forLevel(level)
	if !ok || cooldown <= 0 {
		res.Reason = fmt.Sprintf("%s risk, no cooling period", level)
		return res
	}
	res.CooldownHours = cooldown.Hours()
	if last == nil || res.AttemptsLast24h < minAttempts {
		res.Reason = fmt.Sprintf("%s risk, %d attempts in the last 24h is below the threshold of %d",
			level, res.AttemptsLast24h, minAttempts)
		return res
	}

	ends := last.Add(cooldown)
	res.CooldownEndsAt = &ends
	if !ends.After(now) {
		res.Reason = fmt.Sprintf("%s risk cooling period ended at %s", level, ends.Format(time.RFC3339))
		return res
	}
	res.CoolingRequired = true
	res.RemainingMinutes = int(math.Ceil(ends.Sub(now).Minutes()))
	res.Reason = fmt.Sprintf("%s risk requires %.0fh between withdrawals; %d minutes remaining",
		level, cooldown.Hours(), res.RemainingMinutes)
	return res
}
