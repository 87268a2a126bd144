package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesforge-api/internal/adapters/http/middleware"
	"salesforge-api/internal/adapters/http/routes"
	"salesforge-api/internal/adapters/persistence/models"
	"salesforge-api/internal/adapters/persistence/repositories"
	"salesforge-api/internal/adapters/revocation"
	"salesforge-api/internal/config"
	"salesforge-api/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "salesforge-api/docs" // Swagger docs
)

// @title Salesforge API
// @version 1.0
// @description Lead tracking API with bearer-token authentication and role-based access control

// @contact.name API Support

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// Connect to database
	db, err := config.ConnectDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer config.CloseDatabase()

	deps := routes.Deps{Health: map[string]repositories.HealthChecker{}}

	if db != nil {
		if err := models.AutoMigrate(db); err != nil {
			logger.Fatal("Failed to auto migrate", zap.Error(err))
		}
		logger.Info("Database migration completed")

		leads := repositories.NewLeadRepository(db)
		deps.Users = repositories.NewUserRepository(db)
		deps.Leads = leads
		deps.Health["database"] = leads
	} else {
		leads := repositories.NewMemoryLeadStore(nil)
		deps.Users = repositories.NewMemoryUserRepository(nil)
		deps.Leads = leads
		deps.Health["database"] = leads
	}

	// Revocation set
	switch cfg.Revocation.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Revocation.RedisAddr,
			Password: cfg.Revocation.RedisPassword,
			DB:       cfg.Revocation.RedisDB,
		})
		defer client.Close()

		set := revocation.NewRedisSet(client, cfg.Revocation.RedisPrefix)
		deps.Revoked = set
		deps.Health["revocation"] = set
	default:
		deps.Revoked = revocation.NewMemorySet(nil)
	}

	sweeper := services.NewRevocationSweeper(deps.Revoked, cfg.Revocation.Sweep, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start revocation sweeper", zap.Error(err))
	}

	// Seed bootstrap accounts
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := config.NewSeeder(deps.Users, cfg.Seed, logger).Run(seedCtx); err != nil {
		logger.Warn("Failed to seed users", zap.Error(err))
	}
	cancelSeed()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Salesforge API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, cfg, logger, deps)

	// Graceful shutdown
	go gracefulShutdown(app, sweeper, logger)

	// Start server
	logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, sweeper *services.RevocationSweeper, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sweeper.Stop(ctx)
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
}
