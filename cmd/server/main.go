package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/freightchain/tracking-system/internal/api"
	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/core/service"
	"github.com/freightchain/tracking-system/internal/infrastructure/config"
	mongodb "github.com/freightchain/tracking-system/internal/infrastructure/db/mongo"
	redisdb "github.com/freightchain/tracking-system/internal/infrastructure/db/redis"
	"github.com/freightchain/tracking-system/internal/infrastructure/ledgerclient"
	"github.com/freightchain/tracking-system/internal/infrastructure/queue"
	"github.com/freightchain/tracking-system/internal/ledger"
	"github.com/freightchain/tracking-system/pkg/logger"
)

// @title         FreightChain Tracking API
// @version       1.0
// @description   Ledger-backed shipment tracking with a reconciled read mirror.
// @BasePath      /
// @securityDefinitions.apikey BearerAuth
// @in            header
// @name          Authorization
func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	owner, err := domain.ParsePrincipal(cfg.Ledger.Owner)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid LEDGER_OWNER")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	mirrorRepo := mongodb.NewMirrorRepository(db)
	if err := mirrorRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mirror index creation failed")
	}
	authRepo := mongodb.NewAuthRepository(db)
	if err := authRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("auth index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	// --- Ledger and projection pipeline ---
	// Enqueue is bound after the dispatcher exists; the sink indirection lets
	// the ledger be constructed first.
	var dispatcher *queue.Dispatcher
	ldg := ledger.New(owner, ledger.WithEventSink(func(event domain.Event) {
		dispatcher.Enqueue(event)
	}))

	applyStartupPolicy(ldg, owner, cfg.Ledger, log)

	ledgerClient := ledgerclient.NewInProcess(ldg)
	seen := redisdb.NewProcessedMarker(rdb)
	reconciler := service.NewReconciler(ledgerClient, mirrorRepo, seen, service.RetryPolicy{
		MaxAttempts: cfg.Reconciler.RetryMaxAttempts,
		BaseBackoff: time.Duration(cfg.Reconciler.RetryBaseBackoffMS) * time.Millisecond,
		MaxBackoff:  time.Duration(cfg.Reconciler.RetryMaxBackoffMS) * time.Millisecond,
	}, log)
	resolver := service.NewResolver(mirrorRepo, log)

	dispatcher = queue.NewDispatcher(cfg.Reconciler.Workers, reconciler, log)
	dispatcher.Start(ctx)

	// --- HTTP ---
	e := api.NewRouter(api.RouterDeps{
		Reconciler: reconciler,
		Resolver:   resolver,
		Ledger:     ledgerClient,
		Mirror:     mirrorRepo,
		Mongo:      db,
		Redis:      rdb,
		JWTSecret:  cfg.JWTSecret,
		Log:        log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}

// applyStartupPolicy replays the configured fee and whitelist policy as owner
// operations so the boot state is reached through the same audited path as
// runtime changes.
func applyStartupPolicy(ldg *ledger.Ledger, owner domain.Principal, cfg config.LedgerConfig, log zerolog.Logger) {
	if cfg.FeeAmount > 0 {
		if _, err := ldg.SetFee(owner, cfg.FeeAmount); err != nil {
			log.Fatal().Err(err).Msg("startup fee policy failed")
		}
	}
	if cfg.FeeRequired {
		if _, err := ldg.SetFeeRequired(owner, true); err != nil {
			log.Fatal().Err(err).Msg("startup fee policy failed")
		}
	}
	if cfg.WhitelistRequired {
		if _, err := ldg.SetWhitelistRequired(owner, true); err != nil {
			log.Fatal().Err(err).Msg("startup whitelist policy failed")
		}
	}
}
