package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smart_switch/internal/models"
)

// CreateTimerRequest is the body of POST /api/v1/timers. Only the
// time-of-day of startTime and endTime matters.
type CreateTimerRequest struct {
	Name         string    `json:"name" binding:"required" example:"Geyser morning"`
	StartTime    time.Time `json:"startTime" binding:"required" example:"2025-01-01T06:00:00+05:00"`
	EndTime      time.Time `json:"endTime" binding:"required" example:"2025-01-01T07:30:00+05:00"`
	Days         []int     `json:"days" binding:"required" example:"1,2,3,4,5"`
	Enabled      bool      `json:"enabled"`
	ScheduleType string    `json:"scheduleType,omitempty"`
	DayType      string    `json:"dayType,omitempty"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// @Summary      List timers
// @Tags         timers
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, timers"
// @Router       /api/v1/timers [get]
// @Security     BearerAuth
func (h *Handler) listTimers(c *gin.Context) {
	timers, err := h.services.ListTimers(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, err, "failed to load timers", "timers_list_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(timers), "timers": timers})
}

// @Summary      Create timer
// @Tags         timers
// @Accept       json
// @Produce      json
// @Param        body  body      CreateTimerRequest  true  "Timer"
// @Success      201   {object}  models.Timer
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/timers [post]
// @Security     BearerAuth
func (h *Handler) createTimer(c *gin.Context) {
	var req CreateTimerRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	t, err := h.services.CreateTimer(c.Request.Context(), models.Timer{
		Name:         req.Name,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Days:         req.Days,
		Enabled:      req.Enabled,
		ScheduleType: req.ScheduleType,
		DayType:      req.DayType,
	})
	if err != nil {
		h.logAndJSONError(c, err, "failed to create timer", "timer_create_failed")
		return
	}
	c.JSON(http.StatusCreated, t)
}

// @Summary      Delete timer
// @Tags         timers
// @Param        id   path  string  true  "Timer id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/timers/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteTimer(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.DeleteTimer(c.Request.Context(), id); err != nil {
		h.logAndJSONError(c, err, "failed to delete timer", "timer_delete_failed", "id", id)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Enable or disable timer
// @Description  Enabling a timer whose window is open switches the relay on at once.
// @Tags         timers
// @Accept       json
// @Produce      json
// @Param        id    path      string  true  "Timer id"
// @Param        body  body      enabledRequest  true  "Flag"
// @Success      200   {object}  models.Timer
// @Failure      404   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/timers/{id}/enabled [put]
// @Security     BearerAuth
func (h *Handler) setTimerEnabled(c *gin.Context) {
	var req enabledRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	id := c.Param("id")
	t, err := h.services.SetTimerEnabled(c.Request.Context(), id, *req.Enabled)
	if err != nil {
		h.logAndJSONError(c, err, "failed to update timer", "timer_enable_failed", "id", id)
		return
	}
	c.JSON(http.StatusOK, t)
}
