package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/service"
)

type RiskHandler struct {
	engine *service.RiskEngine
}

func NewRiskHandler(engine *service.RiskEngine) *RiskHandler {
	return &RiskHandler{engine: engine}
}

func (h *RiskHandler) MyProfile(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	h.profile(c, acct.ID)
}

func (h *RiskHandler) MyCoolingPeriod(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	h.cooling(c, acct.ID)
}

func (h *RiskHandler) UserProfile(c *gin.Context) {
	h.profile(c, c.Param("id"))
}

func (h *RiskHandler) UserCoolingPeriod(c *gin.Context) {
	h.cooling(c, c.Param("id"))
}

// UserApprovalContext 404s on an unknown user; otherwise an unavailable
// profile yields the manual-review fallback.
func (h *RiskHandler) UserApprovalContext(c *gin.Context) {
	userID := c.Param("id")
	if err := h.engine.RequireUser(userID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.engine.ApprovalContext(c.Request.Context(), userID))
}

func (h *RiskHandler) profile(c *gin.Context, userID string) {
	p, err := h.engine.Profile(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *RiskHandler) cooling(c *gin.Context, userID string) {
	res, err := h.engine.CoolingPeriod(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
