package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smart_switch/internal/service"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidTimer),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidSubscription):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTimerNotFound),
		errors.Is(err, service.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmergencyActive):
		return http.StatusConflict
	case errors.Is(err, service.ErrWriteFailed),
		errors.Is(err, service.ErrShutdownIncomplete),
		errors.Is(err, service.ErrPartialWrite):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrControllerStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Centralized error logging and response. Client errors carry the service
// message; server errors carry userMsg and are logged under logKey.
func (h *Handler) logAndJSONError(c *gin.Context, err error, userMsg, logKey string, kv ...any) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		fields := append([]any{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	msg := userMsg
	if code < http.StatusInternalServerError || code == http.StatusBadGateway {
		msg = err.Error()
	}
	c.JSON(code, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
