package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/service"
)

func RateLimitMiddleware(am *service.AccountManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 获取当前账户 (必须在 AuthMiddleware 之后使用)
		acct, ok := CurrentAccount(c)
		if !ok {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "unauthorized", nil))
			c.Abort()
			return
		}

		// 2. 获取限流器; 没有限流器的账户直接放行
		limiter := am.LimiterFor(acct.ID)
		if limiter == nil {
			c.Next()
			return
		}

		// 3. 尝试获取令牌
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.Error(apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil))
			c.Abort()
			return
		}

		c.Next()
	}
}
