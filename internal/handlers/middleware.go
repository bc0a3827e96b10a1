package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smart_switch/internal/models"
)

// userCtx is the gin context key holding the authenticated user id.
const userCtx = "userId"

// userIdMiddleware admits requests carrying a valid Bearer token. The user id
// is kept on the gin context and on the request context, where the
// controller reads it to attribute manual relay changes.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	userId, err := h.services.ParseToken(parts[1])
	if err != nil {
		h.log.Debugw("auth_token_rejected", "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(userCtx, userId)
	c.Request = c.Request.WithContext(models.WithUserID(c.Request.Context(), userId))
	c.Next()
}

// currentUser returns the id set by userIdMiddleware, 0 on public routes.
func currentUser(c *gin.Context) int {
	return c.GetInt(userCtx)
}
