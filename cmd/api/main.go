package main

import (
	"context"
	"net/http"
	"time"

	"resumeflow/internal/api"
	"resumeflow/internal/config"
	"resumeflow/internal/logging"
	"resumeflow/internal/storage"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger := logging.New("resumeflow-api", cfg.LogLevel, cfg.LogFormat)

	tc, err := tclient.Dial(tclient.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("dial temporal")
	}
	defer tc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()

	h := api.NewServer(cfg, tc, storage.NewRunRepo(db), storage.NewProfileRepo(db), logger)
	logger.Info().Str("addr", cfg.APIAddr).Str("queue", cfg.TemporalTaskQueue).Msg("resumeflow api listening")
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		logger.Fatal().Err(err).Msg("api server stopped")
	}
}
