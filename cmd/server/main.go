// Package main is the entry point for the facturier API server.
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

	"facturier/internal/config"
	"facturier/internal/domain/auth"
	"facturier/internal/domain/invoice"
	"facturier/internal/domain/numbering"
	v1 "facturier/internal/infrastructure/http/v1"
	"facturier/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: !cfg.App.IsProduction(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting facturier server",
		"env", cfg.App.Env,
		"storage", cfg.DB.Driver,
		"lock", cfg.Lock.Driver,
	)

	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize dependencies", "error", err)
	}
	defer deps.Close()

	// --- JWT Service ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtConfig.Issuer = cfg.JWT.Issuer
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Numbering and invoices ---
	// one UTC clock picks the number scope and stamps createdAt
	clock := func() time.Time { return time.Now().UTC() }
	numberingService := numbering.NewService(invoice.NewNumberingSource(deps.repo), numbering.WithClock(clock))
	invoiceService := invoice.NewService(invoice.ServiceConfig{
		Repo:          deps.repo,
		Numbering:     numberingService,
		Locker:        deps.locker,
		TxManager:     deps.txManager,
		DefaultFormat: cfg.Numbering.DefaultFormat,
		MaxRetries:    cfg.Numbering.MaxRetries,
		Now:           clock,
	})

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:        log,
		JWTValidator:  jwtService,
		Numbering:     numberingService,
		Invoices:      invoiceService,
		DefaultFormat: cfg.Numbering.DefaultFormat,
		HealthChecks:  deps.healthChecks,
		Pool:          deps.pool,
		Debug:         !cfg.App.IsProduction() && cfg.Log.Level == "debug",
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr, "default_format", cfg.Numbering.DefaultFormat)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	if deps.pool != nil {
		deps.pool.LogStats(ctx)
	}
	log.Info("server stopped")
}
