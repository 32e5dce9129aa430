package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/pkg/logger"
)

// ErrorHandler renders the last error attached with c.Error as an AppError body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			appErr = apperrors.New(apperrors.ErrInternal, "internal error", err)
		}

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", appErr.Type,
			"client_ip", c.ClientIP(),
		}
		if acct, ok := CurrentAccount(c); ok {
			logFields = append(logFields, "account_id", acct.ID)
		}

		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), appErr, "request failed", logFields...)
		} else {
			logger.Debug(appErr.Message, logFields...)
		}

		c.JSON(appErr.HTTPStatus, appErr)
	}
}
