package handlers

import (
	"pumpcontrol/internal/eventbus"
	"pumpcontrol/internal/logger"
	"pumpcontrol/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services, the event bus and logging.
type Handler struct {
	services *service.Service
	bus      eventbus.Bus
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// NewHandlerWithBus additionally attaches the event bus used by the
// websocket sink endpoint.
func NewHandlerWithBus(services *service.Service, bus eventbus.Bus, log *logger.Logger) *Handler {
	return &Handler{services: services, bus: bus, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// WebSocket sink (HTTP upgrade) — same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerPumpRoutes(api)
		h.registerScheduleRoutes(api)
		h.registerTelemetryRoutes(api)
		h.registerEventRoutes(api)
	}
}

func (h *Handler) registerPumpRoutes(api *gin.RouterGroup) {
	pump := api.Group("/pump")
	{
		// Body example: {"action":"start"}
		pump.POST("/command", h.pumpCommand)
		pump.GET("/state", h.getPumpState)
	}
	// Read-only poll for low-capability devices that cannot hold a socket.
	api.GET("/device/pump", h.devicePoll)
}

func (h *Handler) registerScheduleRoutes(api *gin.RouterGroup) {
	schedules := api.Group("/schedules")
	{
		schedules.POST("", h.submitSchedule)
		schedules.GET("", h.listSchedules)
		schedules.DELETE("/:id", h.removeSchedule)
	}
}

func (h *Handler) registerTelemetryRoutes(api *gin.RouterGroup) {
	telemetry := api.Group("/telemetry")
	{
		telemetry.POST("", h.postTelemetry)
		telemetry.GET("", h.getTelemetry)
	}
}

func (h *Handler) registerEventRoutes(api *gin.RouterGroup) {
	events := api.Group("/events")
	{
		events.GET("", h.getEvents)
	}
}
