package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/payschool/platform/pkg/accounts"
	"github.com/payschool/platform/pkg/api"
	"github.com/payschool/platform/pkg/billing"
	"github.com/payschool/platform/pkg/config"
	"github.com/payschool/platform/pkg/identity"
	"github.com/payschool/platform/pkg/observability"
	"github.com/payschool/platform/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "payschool: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"port":        cfg.Server.Port,
		"health_port": cfg.Server.HealthPort,
		"db_driver":   cfg.Storage.Driver,
	}).Info("starting payschool platform")

	ctx := context.Background()

	// Tracing
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// Metrics
	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// Storage
	db, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	store := accounts.NewSQLStore(db)

	// Billing
	provider, err := billing.NewStripeProvider(cfg.Stripe, metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize billing provider: %w", err)
	}
	billingService := billing.NewService(store, provider, cfg.Invoice, logger, metrics)

	// Identity
	authenticator, err := identity.NewOIDCAuthenticator(ctx, identity.Config{
		IssuerURL:    cfg.Identity.Issuer,
		ClientID:     cfg.Identity.ClientID,
		ClientSecret: cfg.Identity.ClientSecret,
		RedirectURL:  cfg.Identity.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OIDC authenticator: %w", err)
	}

	tokens := identity.NewTokenManager(cfg.Identity.JWTSecret, cfg.Identity.JWTTTL)
	provisioner := identity.NewProvisioner(store, billingService, logger)
	authHandler := identity.NewHandler(authenticator, provisioner, tokens,
		cfg.Identity.FrontendCallbackURL, logger)

	// API server
	apiServer := api.NewServer(api.Options{
		Billing:        billingService,
		Store:          store,
		Auth:           authHandler,
		Tokens:         tokens,
		Logger:         logger,
		Metrics:        metrics,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TracingEnabled: cfg.Observability.OTelEnabled,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics server on a separate port for probes
	healthChecker := observability.NewHealthChecker(db)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout,
		httpServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return otelProviders.Shutdown(ctx)
	})

	// Periodically copy pool stats into gauges
	if metrics != nil {
		statsCtx, cancelStats := context.WithCancel(ctx)
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			cancelStats()
			return nil
		})
		go pollDBStats(statsCtx, db, store, metrics)
	}

	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	return group.Wait()
}

// pollDBStats refreshes pool and account gauges until ctx is cancelled
func pollDBStats(ctx context.Context, db *sql.DB, store *accounts.SQLStore, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			metrics.UpdateDBStats(stats.InUse, stats.Idle)
			if count, err := store.Count(ctx); err == nil {
				metrics.AccountsTotal.Set(float64(count))
			}
		}
	}
}
