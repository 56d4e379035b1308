package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/openroost/gatehouse/internal/adapter/fsm"
	handler "github.com/openroost/gatehouse/internal/adapter/http"
	"github.com/openroost/gatehouse/internal/adapter/otel"
	riveradapter "github.com/openroost/gatehouse/internal/adapter/river"
	"github.com/openroost/gatehouse/internal/adapter/secret"
	"github.com/openroost/gatehouse/internal/adapter/sqlite"
	"github.com/openroost/gatehouse/internal/adapter/wallet"
	"github.com/openroost/gatehouse/internal/app"
	"github.com/openroost/gatehouse/internal/auth"
	"github.com/openroost/gatehouse/internal/config"
	"github.com/openroost/gatehouse/internal/domain"
)

func main() {
	configPath := flag.String("config", envOrDefault("GATEHOUSE_CONFIG", "config.yaml"), "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("gatehouse exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	setupLogging(cfg.Logging)

	ctx := context.Background()

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	riverClient, err := riveradapter.Setup(ctx, db)
	if err != nil {
		return fmt.Errorf("river setup: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			slog.Error("river stop", "error", err)
		}
	}()

	tokens := auth.NewJWTCodec([]byte(cfg.Auth.JWTSecret))
	codec := secret.New(cfg.Reservation.TTL)
	publisher := otel.NewTracingPublisher(riveradapter.NewPublisher(riverClient))
	reservations := otel.NewTracingRepository(store.Reservations())

	walletSvc := wallet.New(store.Wallets(), tokens, codec, wallet.Config{
		TokenTTL:  cfg.Auth.TokenTTL,
		Unmanaged: cfg.Wallet.KeyManagement == "unmanaged",
	})

	// --- Application ---
	tenantSvc := app.NewTenantService(store.Tenants(), walletSvc)
	reservationSvc := app.NewReservationService(reservations, codec, fsm.New(), publisher, tenantSvc)

	if err := bootstrapInnkeeper(ctx, walletSvc, tenantSvc, cfg.Innkeeper.WalletName); err != nil {
		return fmt.Errorf("bootstrapping innkeeper: %w", err)
	}

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware("gatehouse", otelchi.WithChiRoutes(router)))
	router.Use(handler.Authenticate(tokens, walletSvc, tenantSvc))

	api := humachi.New(router, huma.DefaultConfig("gatehouse", "0.1.0"))
	handler.Register(api, reservationSvc, tenantSvc)

	// --- Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("gatehouse listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("stopped")
	return nil
}

// bootstrapInnkeeper provisions the operator tenant and wallet on first start.
// The fresh token is logged so the operator can reach the innkeeper API; the
// wallet key is not.
func bootstrapInnkeeper(ctx context.Context, wallets *wallet.Service, tenants *app.TenantService, name string) error {
	existing, err := wallets.EnsureInnkeeper(ctx)
	if err == nil {
		slog.Info("innkeeper wallet present", "wallet_id", existing.ID)
		return nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return err
	}

	tenant, w, token, err := tenants.Provision(ctx, name)
	if err != nil {
		return fmt.Errorf("provisioning innkeeper: %w", err)
	}
	if err := wallets.MarkInnkeeper(ctx, w.ID); err != nil {
		return fmt.Errorf("marking innkeeper wallet: %w", err)
	}

	slog.Info("innkeeper provisioned",
		"tenant_id", tenant.ID,
		"wallet_id", w.ID,
		"token", token,
	)
	return nil
}

func setupLogging(cfg config.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
