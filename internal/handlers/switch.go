package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart_switch/internal/models"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errGetDashboard    = "failed to load switch state"
	errSetRelay        = "failed to switch relay"
	errInvalidBodyPref = "invalid body: "
)

// SetRelayRequest is the body of PUT /api/v1/switch.
type SetRelayRequest struct {
	On *bool `json:"on" binding:"required" example:"false"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get switch dashboard
// @Description  Relay, override, readings, safety, timers, devices and today's usage.
// @Tags         switch
// @Produce      json
// @Success      200  {object}  models.Dashboard
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/switch [get]
// @Security     BearerAuth
func (h *Handler) getSwitch(c *gin.Context) {
	d, err := h.services.Dashboard(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, err, errGetDashboard, "switch_get_failed")
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary      Set relay
// @Description  OFF suspends the scheduler for the override period; ON clears the override.
// @Tags         switch
// @Accept       json
// @Produce      json
// @Param        body  body      SetRelayRequest  true  "Relay payload"
// @Success      200   {object}  models.RelayResult
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string  "emergency mode active"
// @Failure      502   {object}  map[string]string  "write not acknowledged"
// @Router       /api/v1/switch [put]
// @Security     BearerAuth
func (h *Handler) setSwitch(c *gin.Context) {
	var req SetRelayRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	res, err := h.services.SetRelay(c.Request.Context(), *req.On)
	h.respondRelay(c, res, err)
}

// @Summary      Toggle relay
// @Tags         switch
// @Produce      json
// @Success      200  {object}  models.RelayResult
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/switch/toggle [post]
// @Security     BearerAuth
func (h *Handler) toggleSwitch(c *gin.Context) {
	res, err := h.services.ToggleRelay(c.Request.Context())
	h.respondRelay(c, res, err)
}

func (h *Handler) respondRelay(c *gin.Context, res models.RelayResult, err error) {
	if err != nil {
		h.logAndJSONError(c, err, errSetRelay, "relay_set_failed")
		return
	}
	c.JSON(http.StatusOK, res)
}
