package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/service"
)

type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List GET /v1/admin/audit?account_id=&from=&to=&limit=&offset=
func (h *AuditHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 100)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	from, ok := queryTime(c, "from")
	if !ok {
		return
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return
	}

	records, err := h.svc.List(c.Request.Context(), model.AuditFilter{
		AccountID: c.Query("account_id"),
		Start:     from,
		End:       to,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, records)
}
