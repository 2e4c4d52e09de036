// internal/handlers/security/security_handler.go
package security

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"secureauth-service/internal/audit"
	"secureauth-service/internal/pkg/response"
)

type SecurityHandler struct {
	trail  *audit.Trail
	logger *zap.Logger
}

func NewSecurityHandler(trail *audit.Trail, logger *zap.Logger) *SecurityHandler {
	return &SecurityHandler{trail: trail, logger: logger}
}

// ListEvents returns the retained audit entries, most recent first.
// ?limit= caps the result; the retention cap bounds it either way.
func (h *SecurityHandler) ListEvents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.ValidationError(c, "limit must be a non-negative integer", err)
			return
		}
		limit = parsed
	}

	events := h.trail.List(limit)
	response.Success(c, http.StatusOK, "security events", gin.H{
		"events": events,
		"total":  h.trail.Len(),
	})
}
