package service

import (
	"sync"

	"github.com/rachelfoods/payoutgate/internal/config"
	"github.com/rachelfoods/payoutgate/internal/model"
	"golang.org/x/time/rate"
)

// AccountManager 管理账户信息以及限流器
type AccountManager struct {
	mu             sync.RWMutex
	accounts       map[string]*model.Account // Key: ApiKey
	limiters       map[string]*rate.Limiter  // Key: AccountID
	defaultAccount *model.Account
}

func NewAccountManager(cfg *config.Config) *AccountManager {
	am := &AccountManager{
		accounts: make(map[string]*model.Account),
		limiters: make(map[string]*rate.Limiter),
	}
	if cfg == nil {
		return am
	}
	for i, acct := range cfg.AccountModels() {
		am.Register(acct)
		// 未强制 API Key 时，第一个账户作为默认账户 (本地开发)
		if i == 0 && !cfg.Auth.RequireAPIKey {
			am.defaultAccount = acct
		}
	}
	return am
}

func (am *AccountManager) Register(a *model.Account) {
	if a == nil {
		return
	}
	am.mu.Lock()
	defer am.mu.Unlock()
	am.accounts[a.ApiKey] = a

	// QPS 为 0 表示不限流
	limit := rate.Limit(a.Rate.QPS)
	if limit == 0 {
		limit = rate.Inf
	}
	burst := a.Rate.Burst
	if burst == 0 {
		burst = 1
	}
	am.limiters[a.ID] = rate.NewLimiter(limit, burst)
}

func (am *AccountManager) GetByApiKey(apiKey string) (*model.Account, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	a, ok := am.accounts[apiKey]
	return a, ok
}

func (am *AccountManager) GetByID(id string) (*model.Account, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	for _, a := range am.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

func (am *AccountManager) Default() *model.Account {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.defaultAccount
}

// LimiterFor 获取账户的限流器
func (am *AccountManager) LimiterFor(accountID string) *rate.Limiter {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.limiters[accountID]
}
