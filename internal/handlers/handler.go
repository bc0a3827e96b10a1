package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"smart_switch/internal/logger"
	"smart_switch/internal/mw"
	"smart_switch/internal/service"
)

// Options tunes the HTTP middleware. Zero values disable the feature.
type Options struct {
	RateLimit float64 // requests per second per IP on /auth
	RateBurst int
	CacheTTL  time.Duration // GET cache for tariff and usage history
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	opts     Options
	cache    *cache.Cache
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Options) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{services: services, log: log}
	if len(opts) > 0 {
		h.opts = opts[0]
	}
	if h.opts.CacheTTL > 0 {
		h.cache = mw.NewCache(h.opts.CacheTTL)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// dashboard stream, authenticated like the API
	router.GET("/ws", h.userIdMiddleware, h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	if h.opts.RateLimit > 0 {
		auth.Use(mw.RateLimiter(h.opts.RateLimit, max(h.opts.RateBurst, 1)))
	}
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerSwitchRoutes(api)
		h.registerTimerRoutes(api)
		h.registerDeviceRoutes(api)
		h.registerSafetyRoutes(api)
		h.registerBillingRoutes(api)
		h.registerPushRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerSwitchRoutes(api *gin.RouterGroup) {
	sw := api.Group("/switch")
	{
		sw.GET("", h.getSwitch)
		// Body example: {"on":false}
		sw.PUT("", h.setSwitch)
		sw.POST("/toggle", h.toggleSwitch)
	}
}

func (h *Handler) registerTimerRoutes(api *gin.RouterGroup) {
	timers := api.Group("/timers")
	{
		timers.GET("", h.listTimers)
		timers.POST("", h.createTimer)
		timers.DELETE("/:id", h.deleteTimer)
		timers.PUT("/:id/enabled", h.setTimerEnabled)
	}
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	devices := api.Group("/devices")
	{
		devices.GET("", h.listDevices)
		devices.PUT("", h.setAllDevices)
		devices.PUT("/:id/status", h.setDeviceStatus)
	}
}

func (h *Handler) registerSafetyRoutes(api *gin.RouterGroup) {
	safety := api.Group("/safety")
	{
		safety.GET("", h.getSafety)
		safety.POST("/shutdown", h.emergencyShutdown)
		safety.POST("/reset", h.resetEmergency)
	}
}

func (h *Handler) registerBillingRoutes(api *gin.RouterGroup) {
	billing := api.Group("/billing")
	{
		billing.GET("/tariff", h.cached(), h.getTariff)
		billing.GET("/quote", h.getQuote)
	}
	api.GET("/usage/history", h.cached(), h.getUsageHistory)
}

func (h *Handler) registerPushRoutes(api *gin.RouterGroup) {
	push := api.Group("/push")
	{
		push.GET("/vapid-key", h.getVAPIDKey)
		push.POST("/subscriptions", h.subscribePush)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}

func (h *Handler) cached() gin.HandlerFunc {
	if h.cache == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return mw.Cache(h.cache, h.opts.CacheTTL)
}
