package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
)

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		acct, ok := CurrentAccount(c)
		if !ok {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "unauthorized", nil))
			c.Abort()
			return
		}
		if !acct.IsAdmin() {
			c.Error(apperrors.New(apperrors.ErrForbidden, "admin role required", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
