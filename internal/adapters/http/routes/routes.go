package routes

import (
	"time"

	"salesforge-api/internal/adapters/http/handlers"
	"salesforge-api/internal/adapters/http/middleware"
	"salesforge-api/internal/adapters/persistence/repositories"
	"salesforge-api/internal/config"
	"salesforge-api/internal/core/query"
	"salesforge-api/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the stores the HTTP layer is built on
type Deps struct {
	Users   repositories.UserRepository
	Leads   repositories.LeadStore
	Revoked services.RevocationSet
	// Health maps a component name to its check for GET /health
	Health map[string]repositories.HealthChecker
	// Now overrides the clock of the services, for tests
	Now func() time.Time
}

// Setup configures all routes for the application
func Setup(app *fiber.App, cfg *config.Config, log *zap.Logger, deps Deps) {
	// Initialize services
	authService := services.NewAuthService(deps.Users, deps.Revoked, cfg.JWT, log)
	engine := query.NewEngine(deps.Leads, deps.Now)
	leadService := services.NewLeadService(deps.Leads, engine, log).WithOwners(deps.Users)
	if deps.Now != nil {
		authService.WithClock(deps.Now)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.AppMode, deps.Health)
	authHandler := handlers.NewAuthHandler(authService, log)
	leadHandler := handlers.NewLeadHandler(leadService, log)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger documentation
	app.Get("/swagger/*", middleware.CacheControl(time.Hour), swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	authn := middleware.AuthMiddleware(authService)

	// Auth routes
	authRoutes := apiV1.Group("/auth", middleware.NoStore())
	setupAuthRoutes(authRoutes, authHandler, authn)

	// Lead routes (authenticated; the lead service applies the access policy)
	leadRoutes := apiV1.Group("/leads", authn, middleware.NoStore())
	setupLeadRoutes(leadRoutes, leadHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, authn fiber.Handler) {
	// Public routes
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)

	// Protected routes
	router.Post("/logout", authn, handler.Logout)
	router.Get("/me", authn, handler.Me)
}

// setupLeadRoutes configures lead routes; fixed paths go before /:id
func setupLeadRoutes(router fiber.Router, handler *handlers.LeadHandler) {
	router.Get("/", handler.List)
	router.Post("/", handler.Create)
	router.Get("/search", handler.Search)
	router.Get("/stats", handler.Stats)
	router.Get("/count", handler.Count)
	router.Get("/status/:status", handler.ByStatus)
	router.Get("/source/:source", handler.BySource)

	router.Get("/:id", handler.Get)
	router.Put("/:id", handler.Update)
	router.Patch("/:id", handler.Patch)
	router.Delete("/:id", handler.Delete)
}
