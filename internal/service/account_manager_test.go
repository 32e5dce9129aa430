package service

import (
	"testing"

	"github.com/rachelfoods/payoutgate/internal/config"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testConfig(requireKey bool) *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{RequireAPIKey: requireKey},
		Accounts: []config.AccountConfig{
			{ID: "seller-1", APIKey: "sk-seller", Role: "seller", RateLimit: config.RateLimitConfig{QPS: 5, Burst: 2}},
			{ID: "ops", APIKey: "sk-ops", Role: "ADMIN"},
		},
	}
}

func TestAccountManagerLookup(t *testing.T) {
	am := NewAccountManager(testConfig(true))

	acct, ok := am.GetByApiKey("sk-seller")
	require.True(t, ok)
	assert.Equal(t, "seller-1", acct.ID)
	assert.Equal(t, model.RoleSeller, acct.Role)

	ops, ok := am.GetByID("ops")
	require.True(t, ok)
	assert.True(t, ops.IsAdmin())

	_, ok = am.GetByApiKey("nope")
	assert.False(t, ok)
	assert.Nil(t, am.Default())

	_, ok = am.GetByID("ghost")
	assert.False(t, ok)
}

func TestAccountManagerLimiters(t *testing.T) {
	am := NewAccountManager(testConfig(true))

	l := am.LimiterFor("seller-1")
	require.NotNil(t, l)
	assert.Equal(t, rate.Limit(5), l.Limit())
	assert.Equal(t, 2, l.Burst())

	unlimited := am.LimiterFor("ops")
	require.NotNil(t, unlimited)
	assert.Equal(t, rate.Inf, unlimited.Limit())
}

func TestAccountManagerDefaultAccount(t *testing.T) {
	am := NewAccountManager(testConfig(false))
	require.NotNil(t, am.Default())
	assert.Equal(t, "seller-1", am.Default().ID)
	assert.Nil(t, am.LimiterFor("ghost"))
}
