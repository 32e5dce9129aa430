package handler

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/middleware"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
)

func currentAccount(c *gin.Context) (*model.Account, bool) {
	acct, ok := middleware.CurrentAccount(c)
	if !ok {
		c.Error(apperrors.New(apperrors.ErrAuthFailed, "unauthorized: missing account context", nil))
		return nil, false
	}
	return acct, true
}

// bindJSON binds the body and reports malformed input as INVALID_REQUEST.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return false
	}
	return true
}

// bindOptionalJSON tolerates an empty body, including an empty chunked one.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 || c.Request.Body == nil {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.Error(apperrors.NewInvalidRequest(fmt.Sprintf("%s must be a non-negative integer", key)))
		return 0, false
	}
	return v, true
}

func queryTime(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := parseTime(raw)
	if err != nil {
		c.Error(apperrors.NewInvalidRequest(fmt.Sprintf("%s: %v", key, err)))
		return nil, false
	}
	return &t, true
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
