package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"resumeflow/internal/activities"
	"resumeflow/internal/blob"
	"resumeflow/internal/cache"
	"resumeflow/internal/config"
	"resumeflow/internal/logging"
	"resumeflow/internal/pipeline"
	"resumeflow/internal/providers"
	"resumeflow/internal/raster"
	"resumeflow/internal/storage"
	"resumeflow/internal/workflows"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger := logging.New("resumeflow-worker", cfg.LogLevel, cfg.LogFormat)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("dial temporal")
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ensure schema")
	}

	store, err := blob.NewFromConfig(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open blob store")
	}
	pm, err := providers.NewManager(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("build providers")
	}

	var pageCache pipeline.PageCache
	if cfg.RedisAddr != "" {
		rc, err := cache.Dial(ctx, cfg.RedisAddr, time.Duration(cfg.PageCacheTTLSeconds)*time.Second)
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("page cache disabled")
		} else {
			defer rc.Close()
			pageCache = rc
		}
	}

	a := activities.NewFromDB(cfg, db, activities.Deps{
		Store:      store,
		Rasterizer: raster.Pdftoppm{Binary: cfg.PdftoppmPath, DPI: cfg.RasterDPI},
		Providers:  pm,
		PageCache:  pageCache,
		Logger:     logger,
	})

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, a)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server stopped")
		}
	}()

	logger.Info().
		Str("temporal", cfg.TemporalAddress).
		Str("queue", cfg.TemporalTaskQueue).
		Str("vision_providers", cfg.VisionProviders).
		Str("structured_providers", cfg.StructuredProviders).
		Str("blob_backend", cfg.BlobBackend).
		Bool("page_cache", pageCache != nil).
		Msg("resumeflow worker listening")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}
