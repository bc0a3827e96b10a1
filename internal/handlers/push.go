package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart_switch/internal/models"
)

// PushSubscriptionRequest mirrors the browser's PushSubscription.toJSON().
type PushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256DH string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys"`
}

// @Summary      VAPID public key
// @Tags         push
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/v1/push/vapid-key [get]
// @Security     BearerAuth
func (h *Handler) getVAPIDKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.services.VAPIDPublicKey()})
}

// @Summary      Register a push subscription
// @Tags         push
// @Accept       json
// @Produce      json
// @Param        body  body      PushSubscriptionRequest  true  "Subscription"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/push/subscriptions [post]
// @Security     BearerAuth
func (h *Handler) subscribePush(c *gin.Context) {
	var req PushSubscriptionRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	err := h.services.SubscribePush(c.Request.Context(), models.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.Keys.P256DH,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		h.logAndJSONError(c, err, "failed to save subscription", "push_subscribe_failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "subscribed"})
}
