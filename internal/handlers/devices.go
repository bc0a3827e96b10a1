package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smart_switch/internal/models"
	"smart_switch/internal/service"
)

type deviceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=on off" example:"off"`
}

// @Summary      List devices
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, devices"
// @Router       /api/v1/devices [get]
// @Security     BearerAuth
func (h *Handler) listDevices(c *gin.Context) {
	devices, err := h.services.ListDevices(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, err, "failed to load devices", "devices_list_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(devices), "devices": devices})
}

// @Summary      Switch one device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id    path      string  true  "Device id"
// @Param        body  body      deviceStatusRequest  true  "Status"
// @Success      200   {object}  models.Device
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/devices/{id}/status [put]
// @Security     BearerAuth
func (h *Handler) setDeviceStatus(c *gin.Context) {
	var req deviceStatusRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	id := c.Param("id")
	d, err := h.services.SetDeviceStatus(c.Request.Context(), id, req.Status == models.StatusOn)
	if err != nil {
		h.logAndJSONError(c, err, "failed to switch device", "device_set_failed", "id", id)
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary      Switch all devices
// @Description  The report lists which devices were reached. 502 with the report when some failed.
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      deviceStatusRequest  true  "Status"
// @Success      200   {object}  models.FanOutReport
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]interface{}  "error, report"
// @Router       /api/v1/devices [put]
// @Security     BearerAuth
func (h *Handler) setAllDevices(c *gin.Context) {
	var req deviceStatusRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	report, err := h.services.SetAllDevices(c.Request.Context(), req.Status == models.StatusOn)
	h.respondReport(c, report, err, service.ErrPartialWrite, "devices_set_all_failed")
}

// respondReport writes a fan-out report. When err is partial, the report
// rides along with the error.
func (h *Handler) respondReport(c *gin.Context, report models.FanOutReport, err, partial error, logKey string) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, partial):
		h.log.Errorw(logKey, "err", err, "outcome", report.Outcome, "failed", report.Failed)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
	default:
		h.logAndJSONError(c, err, "fan-out failed", logKey)
	}
}
