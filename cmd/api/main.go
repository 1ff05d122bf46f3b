package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/adapter/storage"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	migrate := flag.Bool("migrate", false, "apply the database schema before serving")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting Wallet Ledger")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set (WLG_JWT_SECRET)")
	}

	ctx := context.Background()

	// Ledger store
	backend, err := storage.Open(ctx, cfg, *migrate, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer backend.Close()

	healthCheckers := []ports.HealthChecker{backend.Health}

	// Redis is optional: without it requests are not rate limited and
	// failed logins are not counted.
	var (
		limiter middleware.Limiter
		guard   ports.LoginGuard
	)
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, rate limiting and login lockout disabled")
	} else {
		defer rdb.Close()
		limiter = redisStorage.NewRateLimitStore(rdb)
		guard = redisStorage.NewLoginLockout(rdb, cfg.Security.LoginFailureLimit, cfg.Security.LoginCooloff)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Core services
	policy := service.PolicyFromConfig(cfg.Ledger)
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.RefreshExpiry, cfg.JWT.Issuer)

	// Business services
	bonusSvc := service.NewBonusService(backend.Users, backend.Wallets, backend.Transactions, backend.Transactor, policy, nil, logger.Component(log, "bonus"))
	authSvc := service.NewAuthService(backend.Users, backend.Transactor, bonusSvc, hashSvc, tokenSvc, guard, logger.Component(log, "auth"))
	ledgerSvc := service.NewLedgerService(backend.Users, backend.Wallets, backend.Transactions, backend.Transactor, policy, nil, logger.Component(log, "ledger"))
	querySvc := service.NewQueryService(backend.Wallets, backend.Transactions, policy.Location)

	gin.SetMode(cfg.Server.Mode)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		LedgerSvc:      ledgerSvc,
		QuerySvc:       querySvc,
		TokenSvc:       tokenSvc,
		RateLimiter:    limiter,
		HealthCheckers: healthCheckers,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
