// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"facturier/internal/core/numerator"
	"facturier/internal/domain/invoice"
	"facturier/internal/domain/numbering"
	"facturier/internal/infrastructure/http/v1/handlers"
	"facturier/internal/infrastructure/http/v1/middleware"
	"facturier/internal/infrastructure/storage/postgres"
	"facturier/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	Numbering *numbering.Service
	Invoices  *invoice.Service

	// DefaultFormat applies when a request names no numbering format
	DefaultFormat numerator.Format

	// HealthChecks are pinged by /health/ready
	HealthChecks map[string]handlers.Pinger

	// Pool adds connection stats to /health/ready. Nil with in-memory storage.
	Pool *postgres.Pool

	// Debug switches gin to debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks, cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))

	base := handlers.NewBaseHandler(cfg.DefaultFormat)
	registerNumberingRoutes(v1, handlers.NewNumberingHandler(base, cfg.Numbering))
	registerInvoiceRoutes(v1, handlers.NewInvoiceHandler(base, cfg.Invoices))

	return router
}

func registerNumberingRoutes(rg *gin.RouterGroup, h *handlers.NumberingHandler) {
	numbering := rg.Group("/invoices/numbering")
	{
		numbering.GET("/next", h.Next)
		numbering.POST("/validate", h.Validate)
		numbering.GET("/stats", h.Stats)
	}
}

func registerInvoiceRoutes(rg *gin.RouterGroup, h *handlers.InvoiceHandler) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/:id", h.Get)
		invoices.PATCH("/:id/number", h.UpdateNumber)
	}
}
