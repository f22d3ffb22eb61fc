package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/freightchain/tracking-system/docs"
	"github.com/freightchain/tracking-system/internal/api/handler"
	"github.com/freightchain/tracking-system/internal/api/middleware"
	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/core/ports"
	"github.com/freightchain/tracking-system/internal/core/service"
	mongodb "github.com/freightchain/tracking-system/internal/infrastructure/db/mongo"
)

// RouterDeps carries everything the HTTP surface needs. The ledger-facing
// dependencies are ports so tests can swap in stubs.
type RouterDeps struct {
	Reconciler ports.Reconciler
	Resolver   ports.DuplicateResolver
	Ledger     ports.LedgerClient
	Mirror     ports.MirrorRepository
	Mongo      *mongo.Database
	Redis      *redis.Client
	JWTSecret  string
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("tracking"))

	// --- Dependencies ---
	authRepo := mongodb.NewAuthRepository(deps.Mongo)
	authService := service.NewAuthService(authRepo, deps.JWTSecret, 24*time.Hour)
	authHandler := handler.NewAuthHandler(authService)
	shipmentHandler := handler.NewShipmentHandler(deps.Reconciler, deps.Mirror, deps.Ledger)
	checkpointHandler := handler.NewCheckpointHandler(deps.Ledger)
	adminHandler := handler.NewAdminHandler(deps.Ledger, deps.Resolver)
	healthHandler := handler.NewHealthHandler(deps.Mongo, deps.Redis)

	// --- Public routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Authenticated routes ---
	v1 := e.Group("/v1", middleware.Auth(deps.JWTSecret))

	anyRole := middleware.RBAC(domain.RoleOwner, domain.RoleManager, domain.RoleCustomer)
	staff := middleware.RBAC(domain.RoleOwner, domain.RoleManager)
	ownerOnly := middleware.RBAC(domain.RoleOwner)

	shipments := v1.Group("/shipments")
	shipments.POST("", shipmentHandler.Create, anyRole)
	shipments.GET("", shipmentHandler.List, anyRole)
	shipments.GET("/count", shipmentHandler.Count, anyRole)
	shipments.GET("/:id", shipmentHandler.Get, anyRole)
	shipments.POST("/:id/assign", shipmentHandler.Assign, staff)
	shipments.PUT("/:id/status", shipmentHandler.UpdateStatus, staff)
	shipments.POST("/:id/checkpoints", checkpointHandler.Add, staff)
	shipments.GET("/:id/checkpoints", checkpointHandler.List, anyRole)

	admin := v1.Group("/admin", ownerOnly)
	admin.POST("/managers", adminHandler.AddManager)
	admin.DELETE("/managers/:address", adminHandler.RemoveManager)
	admin.POST("/whitelist", adminHandler.AddToWhitelist)
	admin.PUT("/settings", adminHandler.UpdateSettings)
	admin.PUT("/fee", adminHandler.SetFee)
	admin.POST("/withdraw", adminHandler.Withdraw)
	admin.POST("/duplicates/scan", adminHandler.ScanDuplicates)

	return e
}
