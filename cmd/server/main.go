package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ikkim/churchbook-backend/config"
	"github.com/ikkim/churchbook-backend/internal/app/controller"
	"github.com/ikkim/churchbook-backend/internal/app/repository"
	"github.com/ikkim/churchbook-backend/internal/app/service"
	"github.com/ikkim/churchbook-backend/internal/db"
	"github.com/ikkim/churchbook-backend/internal/router"
	"github.com/ikkim/churchbook-backend/internal/scheduler"
	"github.com/ikkim/churchbook-backend/internal/storage"
	"github.com/ikkim/churchbook-backend/pkg/cache"
	"github.com/ikkim/churchbook-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting CHURCHBOOK Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Initialize cache (optional, summary endpoint works without it)
	if err := cache.Init(&cfg.Redis); err != nil {
		logger.Warn("Cache unavailable, continuing without it", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Error("Failed to close cache connection", err)
		}
	}()

	// Initialize receipt storage
	store, err := storage.New(&cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize receipt storage", err)
	}

	// Initialize repositories
	memberRepo := repository.NewMemberRepository(db.GetDB())
	categoryRepo := repository.NewCategoryRepository(db.GetDB())
	incomeRepo := repository.NewIncomeRepository(db.GetDB())
	receiptRepo := repository.NewReceiptRepository(db.GetDB())
	charityRepo := repository.NewCharityRepository(db.GetDB())

	// Initialize services
	memberService := service.NewMemberService(memberRepo)
	incomeService := service.NewIncomeService(incomeRepo, memberRepo, categoryRepo, db.GetDB())
	receiptService := service.NewReceiptService(receiptRepo, incomeRepo, memberRepo, charityRepo, store, db.GetDB())

	// Initialize controllers
	incomeController := controller.NewIncomeController(incomeService)
	memberController := controller.NewMemberController(memberService)
	receiptController := controller.NewReceiptController(receiptService)

	// Start the orphan file sweeper (local storage only)
	if cfg.Storage.Driver == "local" || cfg.Storage.Driver == "" {
		sweeper := scheduler.NewOrphanSweeper(db.GetDB(), cfg.Storage.LocalDir, cfg.Storage.BasePath)
		if err := sweeper.Start(); err != nil {
			logger.Warn("Orphan sweeper not started", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer sweeper.Stop()
		}
	}

	// Setup router
	r := router.NewRouter(
		incomeController,
		memberController,
		receiptController,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
