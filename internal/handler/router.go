package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rachelfoods/payoutgate/internal/config"
	"github.com/rachelfoods/payoutgate/internal/middleware"
	"github.com/rachelfoods/payoutgate/internal/service"
	"github.com/rachelfoods/payoutgate/internal/stream"
)

// Deps is everything the HTTP layer needs from the wiring in main.
type Deps struct {
	Accounts    *service.AccountManager
	Engine      *service.RiskEngine
	Policies    *service.PolicyService
	Limits      *service.LimitEvaluator
	Escalation  *service.EscalationService
	Guard       *service.TransitionGuard
	Withdrawals *service.WithdrawalService
	Audit       *service.AuditService
	Idempotency middleware.IdempotencyStore
	Hub         *stream.Hub
	// Storage is reported by /health, e.g. "postgres" or "memory".
	Storage string
}

func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Global Middleware
	// audit sits outside the error handler so rendered errors are recorded
	if d.Audit != nil {
		r.Use(middleware.AuditMiddleware(d.Audit))
	}
	r.Use(middleware.ErrorHandler())
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware())
	}
	r.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))

	r.GET("/health", HealthCheck(cfg.Server.ReadOnly, d.Storage))
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	riskH := NewRiskHandler(d.Engine)
	withdrawalH := NewWithdrawalHandler(d.Withdrawals, d.Escalation, d.Guard)
	policyH := NewPolicyHandler(d.Policies, d.Limits, d.Engine)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg, d.Accounts))
	v1.Use(middleware.RateLimitMiddleware(d.Accounts))
	if d.Idempotency != nil {
		v1.Use(middleware.IdempotencyMiddleware(d.Idempotency))
	}
	{
		v1.GET("/me/risk-profile", riskH.MyProfile)
		v1.GET("/me/cooling-period", riskH.MyCoolingPeriod)
		v1.POST("/withdrawals", withdrawalH.Create)
		v1.POST("/withdrawals/simulate", withdrawalH.Simulate)
		v1.POST("/withdrawals/:id/cancel", withdrawalH.Cancel)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("/users/:id/risk-profile", riskH.UserProfile)
		admin.GET("/users/:id/approval-context", riskH.UserApprovalContext)
		admin.GET("/users/:id/cooling-period", riskH.UserCoolingPeriod)

		admin.GET("/policies", policyH.List)
		admin.POST("/policies", policyH.Create)
		admin.GET("/policies/resolve", policyH.Resolve)
		admin.GET("/policies/:id", policyH.Get)
		admin.PUT("/policies/:id", policyH.Update)
		admin.DELETE("/policies/:id", policyH.Delete)

		admin.POST("/withdrawals/:id/approve", withdrawalH.Approve())
		admin.POST("/withdrawals/:id/reject", withdrawalH.Reject())
		admin.POST("/withdrawals/:id/process", withdrawalH.Process())
		admin.POST("/withdrawals/:id/complete", withdrawalH.Complete())
		admin.POST("/withdrawals/:id/fail", withdrawalH.Fail())
		admin.GET("/withdrawals/:id/escalation", withdrawalH.Escalation)
		admin.GET("/withdrawals/:id/guard", withdrawalH.Guard)

		if d.Audit != nil {
			admin.GET("/audit", NewAuditHandler(d.Audit).List)
		}
		if d.Hub != nil {
			admin.GET("/escalations/stream", NewStreamHandler(d.Hub).Escalations)
		}
	}

	return r
}
