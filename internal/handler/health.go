package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceName = "payoutgate"

// HealthCheck reports liveness plus the mode the gateway runs in.
func HealthCheck(readOnly bool, storage string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   serviceName,
			"read_only": readOnly,
			"storage":   storage,
		})
	}
}
