// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/security"
	"stockbook/internal/domain/closing"
	"stockbook/internal/domain/declaration"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/domain/product"
	"stockbook/internal/domain/reports"
	"stockbook/internal/domain/stock"
	"stockbook/internal/infrastructure/http/v1/handlers"
	"stockbook/internal/infrastructure/http/v1/middleware"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/pkg/logger"
)

// RouterConfig holds services and infrastructure for the router.
type RouterConfig struct {
	// Pool is the database connection pool (health checks only)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// TokenValidator validates bearer tokens
	TokenValidator middleware.TokenValidator

	Products     *product.Service
	Ledger       *ledger.Service
	Stock        *stock.Service
	Closing      *closing.Service
	Declarations *declaration.Service
	Reports      *reports.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1, everything behind bearer auth
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.TokenValidator))

	base := handlers.NewBaseHandler()

	registerProductRoutes(api, base, cfg)
	registerLedgerRoutes(api, base, cfg)
	registerStockRoutes(api, base, cfg)
	registerDeclarationRoutes(api, base, cfg)
	registerClosingRoutes(api, base, cfg)
	registerReportRoutes(api, base, cfg)

	return router
}

func registerProductRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewProductHandler(base, cfg.Products)
	write := middleware.RequirePermission(security.PermProductWrite)

	g := rg.Group("/products")
	{
		g.POST("", write, h.Create)
		g.PUT("/:id", write, h.Update)
		g.PUT("/:id/status", write, h.SetStatus)
		g.GET("/:id", h.Get)
		g.GET("/by-code/:code", h.GetByCode)
		g.GET("", h.List)
	}
}

func registerLedgerRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewLedgerHandler(base, cfg.Ledger)
	post := middleware.RequirePermission(security.PermLedgerPost)

	g := rg.Group("/ledger")
	{
		g.POST("/inbound", post, h.PostInbound)
		g.POST("/adjustment", post, h.PostAdjustment)
		g.POST("/conversion", post, h.PostConversion)
		g.GET("/transactions/:id", h.Get)
		g.GET("/transactions", h.List)
	}
}

func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewStockHandler(base, cfg.Stock)

	g := rg.Group("/stock")
	{
		g.GET("/:productId", h.Get)
		g.GET("", h.GetBulk)
	}
}

func registerDeclarationRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewDeclarationHandler(base, cfg.Declarations)
	write := middleware.RequirePermission(security.PermDeclarationWrite)

	g := rg.Group("/declarations")
	{
		g.POST("", write, h.Create)
		g.GET("/:id", h.Get)
		g.GET("", h.List)
		g.POST("/:id/submit", write, h.SubmitOutbound)
		g.DELETE("/:id", write, h.Abandon)
	}

	s := rg.Group("/shipments")
	{
		s.GET("/:id", h.GetArchive)
		s.GET("", h.ListArchives)
		s.POST("/:id/activity", write, h.Annotate)
	}
}

func registerClosingRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewClosingHandler(base, cfg.Closing)

	g := rg.Group("/closing")
	{
		g.GET("/report", middleware.RequirePermission(security.PermReportsView), h.MonthlyReport)
		g.POST("/perform", middleware.RequirePermission(security.PermClosingRun), h.PerformClosing)
	}
}

func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewReportsHandler(base, cfg.Reports)
	view := middleware.RequirePermission(security.PermReportsView)

	g := rg.Group("/reports", view)
	{
		g.GET("/daily", h.DailyMatrix)
		g.GET("/monthly", h.MonthlySummary)
		g.GET("/account-weight", h.AccountWeightMovement)
	}
}
