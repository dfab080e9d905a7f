package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"wine-dashboard/internal/assets"
	"wine-dashboard/internal/config"
	"wine-dashboard/internal/middleware"
	"wine-dashboard/internal/observability"
	"wine-dashboard/internal/server"
	"wine-dashboard/internal/services"
	"wine-dashboard/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"data_source", cfg.Data.Source,
		"features", cfg.Features,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := services.NewCatalog(cfg.Query.MemoSize, logger)
	provider := assets.NewProvider(cfg.Assets, logger)

	loadManifest(ctx, provider, catalog, logger)

	if err := loadRecords(ctx, cfg, catalog, logger); err != nil {
		// The dashboard still serves the overview from the manifest and
		// placeholders for everything else.
		logger.Error("failed to load wine records", "error", err)
	}

	srv := server.NewServer(catalog, provider, cfg, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("catalog", func(ctx context.Context) error {
		logger.Info("shutting down catalog", "stats", catalog.Stats())
		return nil
	})

	if err := gracefulServer.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

// loadManifest makes the precomputed summary available, regenerating it if
// a command is configured. A missing manifest is not fatal.
func loadManifest(ctx context.Context, provider *assets.Provider, catalog *services.Catalog, logger *slog.Logger) {
	availability := provider.EnsureAvailable(ctx)
	if !availability.Available {
		logger.Warn("summary assets unavailable", "error", availability.Err, "path", provider.ManifestPath())
		return
	}

	manifest, err := provider.Load()
	if err != nil {
		logger.Warn("failed to read summary manifest", "error", err)
		return
	}
	catalog.SetManifest(manifest)
	logger.Info("summary manifest loaded", "assets", len(manifest.Assets), "ranking", len(manifest.Ranking))
}

func loadRecords(ctx context.Context, cfg *config.Config, catalog *services.Catalog, logger *slog.Logger) error {
	source, err := storage.Open(cfg.Data, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Data.LoadTimeout)
	defer cancel()

	if err := catalog.Load(ctx, source); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Error("record load timed out", "timeout", cfg.Data.LoadTimeout)
		}
		return err
	}
	return nil
}
