package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/config"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAccounts(requireKey bool) (*config.Config, *service.AccountManager) {
	cfg := &config.Config{
		Auth: config.AuthConfig{RequireAPIKey: requireKey},
		Accounts: []config.AccountConfig{
			{ID: "seller-1", APIKey: "sk-seller", Role: "SELLER", RateLimit: config.RateLimitConfig{QPS: 1, Burst: 1}},
			{ID: "ops", APIKey: "sk-ops", Role: "ADMIN"},
		},
	}
	return cfg, service.NewAccountManager(cfg)
}

func whoami(c *gin.Context) {
	acct, _ := CurrentAccount(c)
	c.JSON(http.StatusOK, gin.H{"id": acct.ID})
}

func do(r http.Handler, method, path, apiKey string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	if apiKey != "" {
		req.Header.Set(HeaderApiKey, apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorType {
	t.Helper()
	var body struct {
		Code apperrors.ErrorType `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestAuthMiddleware(t *testing.T) {
	cfg, am := testAccounts(true)
	r := gin.New()
	r.Use(ErrorHandler(), AuthMiddleware(cfg, am))
	r.GET("/me", whoami)

	w := do(r, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.ErrAuthFailed, errorCode(t, w))

	w = do(r, http.MethodGet, "/me", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/me", "sk-seller", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"seller-1"}`, w.Body.String())
}

func TestAuthMiddlewareDefaultAccount(t *testing.T) {
	cfg, am := testAccounts(false)
	r := gin.New()
	r.Use(ErrorHandler(), AuthMiddleware(cfg, am))
	r.GET("/me", whoami)

	w := do(r, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"seller-1"}`, w.Body.String())
}

func TestAdminMiddleware(t *testing.T) {
	cfg, am := testAccounts(true)
	r := gin.New()
	r.Use(ErrorHandler(), AuthMiddleware(cfg, am), AdminMiddleware())
	r.GET("/admin", whoami)

	w := do(r, http.MethodGet, "/admin", "sk-seller", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.ErrForbidden, errorCode(t, w))

	w = do(r, http.MethodGet, "/admin", "sk-ops", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg, am := testAccounts(true)
	r := gin.New()
	r.Use(ErrorHandler(), AuthMiddleware(cfg, am), RateLimitMiddleware(am))
	r.GET("/me", whoami)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", "sk-seller", nil).Code)
	w := do(r, http.MethodGet, "/me", "sk-seller", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperrors.ErrRateLimited, errorCode(t, w))

	// unlimited account
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", "sk-ops", nil).Code)
	}
}

func TestReadOnlyMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), ReadOnlyMiddleware(true))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusCreated) })

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/x", "", nil).Code)
	w := do(r, http.MethodPost, "/x", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.ErrReadOnly, errorCode(t, w))
}

func TestErrorHandlerRendersDetails(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/deny", func(c *gin.Context) {
		c.Error(apperrors.New(apperrors.ErrTransitionDenied, "HIGH risk needs confirmation", nil).
			WithDetails(gin.H{"min_reason_length": 10}))
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Error(assert.AnError)
	})

	w := do(r, http.MethodGet, "/deny", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{
		"code": "TRANSITION_DENIED",
		"message": "HIGH risk needs confirmation",
		"suggestion": "Provide an admin id and a confirmation reason of the required length.",
		"details": {"min_reason_length": 10}
	}`, w.Body.String())

	w = do(r, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.ErrInternal, errorCode(t, w))
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestIdempotencyMiddlewareReplays(t *testing.T) {
	cfg, am := testAccounts(true)
	store := NewMemoryIdempotencyStore(time.Hour)
	calls := 0

	r := gin.New()
	r.Use(ErrorHandler(), AuthMiddleware(cfg, am), IdempotencyMiddleware(store))
	r.POST("/withdrawals", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"n": calls})
	})
	r.POST("/fail", func(c *gin.Context) {
		calls++
		c.Error(apperrors.NewInvalidRequest("bad"))
	})

	key := map[string]string{HeaderIdempotencyKey: "k1"}
	first := do(r, http.MethodPost, "/withdrawals", "sk-ops", key)
	second := do(r, http.MethodPost, "/withdrawals", "sk-ops", key)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)

	// keys are scoped per account
	do(r, http.MethodPost, "/withdrawals", "sk-seller", key)
	assert.Equal(t, 2, calls)

	// failures are not cached
	failKey := map[string]string{HeaderIdempotencyKey: "k2"}
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/fail", "sk-ops", failKey).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/fail", "sk-ops", failKey).Code)
	assert.Equal(t, 4, calls)
}

func TestMemoryIdempotencyStoreLocks(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	rec, hit := store.GetOrLock("a:1")
	assert.Nil(t, rec)
	assert.False(t, hit)

	rec, hit = store.GetOrLock("a:1")
	require.True(t, hit)
	assert.True(t, rec.Processing)

	store.Unlock("a:1")
	_, hit = store.GetOrLock("a:1")
	assert.False(t, hit)
}

func TestAuditMiddlewareRecordsAccount(t *testing.T) {
	cfg, am := testAccounts(true)
	auditSvc := service.NewAuditService(nil, 10)
	defer auditSvc.Close()

	r := gin.New()
	r.Use(AuditMiddleware(auditSvc), ErrorHandler(), AuthMiddleware(cfg, am))
	r.POST("/v1/withdrawals", func(c *gin.Context) {
		AddAuditContext(c, "withdrawal_id", "w-1")
		c.JSON(http.StatusCreated, gin.H{"bank_account_ref": "HDFC000123456789"})
	})

	w := do(r, http.MethodPost, "/v1/withdrawals", "sk-seller", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	entries, err := auditSvc.List(t.Context(), model.AuditFilter{AccountID: "seller-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "SELLER", e.Role)
	assert.Equal(t, http.StatusCreated, e.StatusCode)
	assert.Equal(t, "w-1", e.Context["withdrawal_id"])
	assert.Contains(t, e.ResponseBody, "***6789")
	assert.NotContains(t, e.RequestHeader, "sk-seller")
}
