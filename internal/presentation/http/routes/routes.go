package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vistaoptics/pos-api/internal/config"
	"github.com/vistaoptics/pos-api/internal/presentation/http/handler"
	"github.com/vistaoptics/pos-api/internal/presentation/http/middleware"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Checkout *handler.CheckoutHandler
	Printer  *handler.PrinterHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	Cfg              *config.Config
	Log              *zap.Logger
	IdempotencyStore *middleware.IdempotencyStore
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Log))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Every route needs the operator's backend session
		protected := v1.Group("")
		protected.Use(middleware.SessionMiddleware())

		// Per-branch rate limiter
		rateLimiter := middleware.NewBranchRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(deps.Cfg.RateLimit.Requests) / float64(deps.Cfg.RateLimit.Duration),
			BurstSize:         deps.Cfg.RateLimit.Requests,
			CleanupInterval:   5 * time.Minute,
			EntryTTL:          10 * time.Minute,
		})
		protected.Use(rateLimiter.Middleware())

		registerCheckoutRoutes(protected, h, deps)
		registerPrinterRoutes(protected, h)
	}

	return router
}

func registerCheckoutRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	checkouts := protected.Group("/checkouts")
	{
		checkouts.POST("", h.Checkout.Open)

		current := checkouts.Group("/current")
		{
			current.GET("", h.Checkout.Get)
			current.DELETE("", h.Checkout.Close)

			current.POST("/payments", h.Checkout.AddPayment)
			current.DELETE("/payments/:index", h.Checkout.RemovePayment)

			current.POST("/qr", h.Checkout.StartQR)
			current.POST("/terminal", h.Checkout.StartTerminal)
			current.POST("/cancel", h.Checkout.CancelAsync)

			current.POST("/insurance", h.Checkout.ApplyInsurance)

			// Settlement uses idempotency middleware to prevent duplicates
			current.POST("/submit", middleware.IdempotencyRequired(deps.IdempotencyStore), h.Checkout.Submit)
			current.POST("/override", h.Checkout.AuthorizeOverride)
		}
	}

	protected.GET("/devices", h.Checkout.ListDevices)
}

func registerPrinterRoutes(protected *gin.RouterGroup, h *Handlers) {
	printerGroup := protected.Group("/printer")
	{
		printerGroup.GET("/status", h.Printer.GetStatus)
		printerGroup.POST("/receipt", h.Printer.PrintReceipt)
	}
}
