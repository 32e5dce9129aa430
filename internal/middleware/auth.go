package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/config"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/service"
)

const (
	HeaderApiKey      = "X-Api-Key"
	ContextAccountKey = "account"
)

func AuthMiddleware(cfg *config.Config, am *service.AccountManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderApiKey)
		if apiKey == "" {
			if cfg != nil && !cfg.Auth.RequireAPIKey {
				if acct := am.Default(); acct != nil {
					c.Set(ContextAccountKey, acct)
					c.Next()
					return
				}
			}
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "missing API key", nil))
			c.Abort()
			return
		}

		acct, ok := am.GetByApiKey(apiKey)
		if !ok {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid API key", nil))
			c.Abort()
			return
		}

		// 将账户信息存入上下文
		c.Set(ContextAccountKey, acct)
		c.Next()
	}
}

// CurrentAccount returns the account AuthMiddleware attached to the request.
func CurrentAccount(c *gin.Context) (*model.Account, bool) {
	val, exists := c.Get(ContextAccountKey)
	if !exists {
		return nil, false
	}
	acct, ok := val.(*model.Account)
	return acct, ok && acct != nil
}
