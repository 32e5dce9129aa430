package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/risk"
	"github.com/rachelfoods/payoutgate/internal/service"
)

type PolicyHandler struct {
	svc    *service.PolicyService
	limits *service.LimitEvaluator
	engine *service.RiskEngine
}

func NewPolicyHandler(svc *service.PolicyService, limits *service.LimitEvaluator, engine *service.RiskEngine) *PolicyHandler {
	return &PolicyHandler{svc: svc, limits: limits, engine: engine}
}

func (h *PolicyHandler) List(c *gin.Context) {
	filter := model.PolicyFilter{
		ScopeType: model.PolicyScope(strings.ToUpper(c.Query("scope_type"))),
		Role:      c.Query("role"),
		Currency:  c.Query("currency"),
	}
	if raw := c.Query("enabled"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			c.Error(apperrors.NewInvalidRequest("enabled must be true or false"))
			return
		}
		filter.Enabled = &enabled
	}
	policies, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, policies)
}

func (h *PolicyHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PolicyHandler) Create(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var in model.PolicyInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.svc.Create(c.Request.Context(), in, acct.ID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PolicyHandler) Update(c *gin.Context) {
	var in model.PolicyInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PolicyHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Resolve GET /v1/admin/policies/resolve?role=&currency=[&user_id=]
// With user_id the policy is adapted to that user's live risk.
func (h *PolicyHandler) Resolve(c *gin.Context) {
	ctx := c.Request.Context()
	role, currency := c.Query("role"), c.Query("currency")

	var rc *model.RiskContext
	if userID := c.Query("user_id"); userID != "" {
		profile, err := h.engine.Profile(ctx, userID)
		if err != nil {
			c.Error(err)
			return
		}
		rc = risk.ContextOf(profile)
	}

	policy, err := h.limits.AdaptivePolicy(ctx, role, currency, rc)
	if err != nil {
		c.Error(err)
		return
	}
	if policy == nil {
		c.JSON(http.StatusOK, gin.H{"policy": nil, "constrained": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"policy": policy, "constrained": true})
}
