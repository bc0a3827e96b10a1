package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart_switch/internal/service"
)

// @Summary      Safety status
// @Tags         safety
// @Produce      json
// @Success      200  {object}  models.SafetyStatus
// @Router       /api/v1/safety [get]
// @Security     BearerAuth
func (h *Handler) getSafety(c *gin.Context) {
	st, err := h.services.SafetyStatus(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, err, "failed to evaluate safety", "safety_get_failed")
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Emergency shutdown
// @Description  Switches the relay and every device off and latches emergency mode.
// @Tags         safety
// @Produce      json
// @Success      200  {object}  models.FanOutReport
// @Failure      502  {object}  map[string]interface{}  "error, report"
// @Router       /api/v1/safety/shutdown [post]
// @Security     BearerAuth
func (h *Handler) emergencyShutdown(c *gin.Context) {
	report, err := h.services.EmergencyShutdown(c.Request.Context())
	h.respondReport(c, report, err, service.ErrShutdownIncomplete, "emergency_shutdown_failed")
}

// @Summary      Reset emergency mode
// @Tags         safety
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/v1/safety/reset [post]
// @Security     BearerAuth
func (h *Handler) resetEmergency(c *gin.Context) {
	if err := h.services.ResetEmergency(c.Request.Context()); err != nil {
		h.logAndJSONError(c, err, "failed to reset emergency", "emergency_reset_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
