package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vistaoptics/pos-api/internal/application/service"
	"github.com/vistaoptics/pos-api/internal/config"
	"github.com/vistaoptics/pos-api/internal/infrastructure/backend"
	"github.com/vistaoptics/pos-api/internal/infrastructure/repository"
	"github.com/vistaoptics/pos-api/internal/presentation/http/handler"
	"github.com/vistaoptics/pos-api/internal/presentation/http/middleware"
	"github.com/vistaoptics/pos-api/internal/presentation/http/routes"
	"github.com/vistaoptics/pos-api/pkg/override"
	"github.com/vistaoptics/pos-api/pkg/printer"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize structured logger
	var logger *zap.Logger
	var err error
	if cfg.App.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize retail backend client and repositories
	backendClient := backend.NewClient(&cfg.Backend, logger)
	saleRepo := repository.NewSaleRepository(backendClient)
	paymentRepo := repository.NewPaymentRepository(backendClient)
	ticketRepo := repository.NewTicketRepository(backendClient)

	// Initialize thermal printer
	thermalPrinter, err := printer.NewPrinterFromConfig(
		cfg.Printer.Type,
		cfg.Printer.USBPath,
		cfg.Printer.Address,
	)
	if err != nil {
		logger.Warn("printer initialization failed, printing disabled", zap.Error(err))
		thermalPrinter = printer.NewNullPrinter()
	}
	printerService := service.NewPrinterService(thermalPrinter, cfg.Store, cfg.Printer.Type, logger)

	// Supervisor override manager
	overrideManager := override.NewManager(
		cfg.Supervisor.PINHash,
		cfg.Supervisor.TokenSecret,
		cfg.Supervisor.TokenTTL,
	)

	// Initialize services
	checkoutService := service.NewCheckoutService(
		saleRepo,
		paymentRepo,
		ticketRepo,
		printerService,
		overrideManager,
		cfg.Checkout,
		logger,
	)

	// Initialize handlers
	handlers := &routes.Handlers{
		Checkout: handler.NewCheckoutHandler(checkoutService),
		Printer:  handler.NewPrinterHandler(printerService, checkoutService),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		Cfg:              cfg,
		Log:              logger,
		IdempotencyStore: middleware.NewIdempotencyStore(),
	})

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	logger.Info("starting server",
		zap.String("service", cfg.App.Name),
		zap.String("port", port),
		zap.String("env", cfg.App.Env),
	)

	if err := router.Run(":" + port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
