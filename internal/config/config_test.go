package config

import (
	"testing"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("PAYOUTGATE_SERVER_PORT", "9090")
	t.Setenv("PAYOUTGATE_COOLING_HIGH_COOLDOWN_HOURS", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, risk.BaselinePersisted, cfg.Escalation.BaselineMode)
	assert.Equal(t, 20, cfg.Escalation.ScoreDeltaThreshold)
	assert.Equal(t, risk.DefaultGuardRules(), cfg.GuardRules())

	rules := cfg.CoolingRules()
	assert.Equal(t, 6*time.Hour, rules.HighCooldown)
	assert.Equal(t, 2*time.Hour, rules.MediumCooldown)
	assert.Equal(t, 2, rules.MediumMinAttempts)

	table, err := cfg.AdaptiveTable()
	require.NoError(t, err)
	high, ok := table.Lookup(model.RiskHigh)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("0.5").Equal(high.MaxSingle))
	assert.Equal(t, 3, high.MonthlyCountReduction)
	_, ok = table.Lookup(model.RiskLow)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Escalation: EscalationConfig{BaselineMode: risk.BaselineDefault},
			Adaptive: AdaptiveConfig{
				High:   AdaptiveTierConfig{MaxSingleFactor: "0.5", DailyAmountFactor: "0.6", WeeklyAmountFactor: "0.7", MonthlyAmountFactor: "0.8"},
				Medium: AdaptiveTierConfig{MaxSingleFactor: "0.75", DailyAmountFactor: "0.8", WeeklyAmountFactor: "0.85", MonthlyAmountFactor: "0.9"},
			},
			Accounts: []AccountConfig{{ID: "a1", APIKey: "k1", Role: "seller"}},
		}
	}
	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Escalation.BaselineMode = "cached"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Adaptive.High.DailyAmountFactor = "abc"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Adaptive.Medium.MaxSingleFactor = "1.2"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Accounts = append(cfg.Accounts, AccountConfig{ID: "a2", APIKey: "k1"})
	assert.Error(t, cfg.Validate())

	accounts := base().AccountModels()
	require.Len(t, accounts, 1)
	assert.Equal(t, model.RoleSeller, accounts[0].Role)
}
