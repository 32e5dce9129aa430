package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/middleware"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/apperrors"
	"github.com/rachelfoods/payoutgate/internal/service"
)

type WithdrawalHandler struct {
	svc        *service.WithdrawalService
	escalation *service.EscalationService
	guard      *service.TransitionGuard
}

func NewWithdrawalHandler(svc *service.WithdrawalService, escalation *service.EscalationService, guard *service.TransitionGuard) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc, escalation: escalation, guard: guard}
}

func (h *WithdrawalHandler) Create(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var req model.WithdrawalRequest
	if !bindJSON(c, &req) {
		return
	}
	w, err := h.svc.Request(c.Request.Context(), acct, req)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "withdrawal_id", w.ID)
	c.JSON(http.StatusCreated, w)
}

func (h *WithdrawalHandler) Simulate(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	var req model.SimulateRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Simulate(c.Request.Context(), acct, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *WithdrawalHandler) Cancel(c *gin.Context) {
	acct, ok := currentAccount(c)
	if !ok {
		return
	}
	w, err := h.svc.Cancel(c.Request.Context(), acct, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// transition adapts one admin lifecycle action to a gin handler.
func (h *WithdrawalHandler) transition(action func(c *gin.Context, admin *model.Account, id, reason string) (*service.TransitionOutcome, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAccount(c)
		if !ok {
			return
		}
		var req model.TransitionRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		id := c.Param("id")
		middleware.AddAuditContext(c, "withdrawal_id", id)

		out, err := action(c, admin, id, req.Reason)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrTransitionDenied) {
				middleware.AddAuditContext(c, "guard_denied", apperrors.Wrap(err).Message)
			}
			c.Error(err)
			return
		}
		if out.Guard != nil {
			middleware.AddAuditContext(c, "guard_reason", out.Guard.Reason)
		}
		if out.Escalation != nil && out.Escalation.Escalated {
			middleware.AddAuditContext(c, "escalation_type", out.Escalation.EscalationType)
		}
		c.JSON(http.StatusOK, out)
	}
}

func (h *WithdrawalHandler) Approve() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, admin *model.Account, id, reason string) (*service.TransitionOutcome, error) {
		return h.svc.Approve(c.Request.Context(), admin, id, reason)
	})
}

func (h *WithdrawalHandler) Reject() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, admin *model.Account, id, reason string) (*service.TransitionOutcome, error) {
		return h.svc.Reject(c.Request.Context(), admin, id, reason)
	})
}

func (h *WithdrawalHandler) Process() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, admin *model.Account, id, reason string) (*service.TransitionOutcome, error) {
		return h.svc.Process(c.Request.Context(), admin, id, reason)
	})
}

func (h *WithdrawalHandler) Complete() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, admin *model.Account, id, reason string) (*service.TransitionOutcome, error) {
		return h.svc.Complete(c.Request.Context(), admin, id, reason)
	})
}

func (h *WithdrawalHandler) Fail() gin.HandlerFunc {
	return h.transition(func(c *gin.Context, admin *model.Account, id, reason string) (*service.TransitionOutcome, error) {
		return h.svc.Fail(c.Request.Context(), admin, id, reason)
	})
}

// Escalation GET /v1/admin/withdrawals/:id/escalation
// An explicit baseline may be passed as baseline_level, baseline_score and
// baseline_signals (comma separated); otherwise the stored or default one is used.
func (h *WithdrawalHandler) Escalation(c *gin.Context) {
	supplied, ok := suppliedBaseline(c)
	if !ok {
		return
	}
	d, err := h.escalation.Check(c.Request.Context(), c.Param("id"), supplied)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func suppliedBaseline(c *gin.Context) (*model.RiskSnapshot, bool) {
	level := strings.ToUpper(c.Query("baseline_level"))
	if level == "" {
		return nil, true
	}
	snap := &model.RiskSnapshot{RiskLevel: model.RiskLevel(level), ActiveSignals: []model.SignalType{}}
	if snap.RiskLevel.Rank() == 0 {
		c.Error(apperrors.NewInvalidRequest(fmt.Sprintf("unknown baseline_level %q", level)))
		return nil, false
	}
	if raw := c.Query("baseline_score"); raw != "" {
		score, err := strconv.Atoi(raw)
		if err != nil || score < 0 || score > 100 {
			c.Error(apperrors.NewInvalidRequest("baseline_score must be an integer between 0 and 100"))
			return nil, false
		}
		snap.RiskScore = score
	}
	if raw := c.Query("baseline_signals"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				snap.ActiveSignals = append(snap.ActiveSignals, model.SignalType(strings.ToUpper(s)))
			}
		}
	}
	return snap, true
}

// Guard GET /v1/admin/withdrawals/:id/guard?to=PROCESSING&reason=
func (h *WithdrawalHandler) Guard(c *gin.Context) {
	admin, ok := currentAccount(c)
	if !ok {
		return
	}
	to := model.WithdrawalStatus(strings.ToUpper(c.Query("to")))
	d, err := h.guard.Preview(c.Request.Context(), c.Param("id"), to, admin.ID, c.Query("reason"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, d)
}
