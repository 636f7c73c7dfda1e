package main

import (
	"encoding/json"
	"fmt"
	"io"

	"resumeflow/internal/config"
	"resumeflow/internal/logging"
	"resumeflow/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	tclient "go.temporal.io/sdk/client"
)

var (
	envFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "resumectl",
	Short: "Operate the résumé ingestion pipeline",
	Long: `resumectl starts pipeline runs on the Temporal task queue, reads their
live status and re-runs profile extraction from a stored consolidated document.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(envFile)
		cfg = config.Load()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")
}

func dialTemporal() (tclient.Client, error) {
	logger := logging.New("resumectl", "warn", "console")
	c, err := tclient.Dial(tclient.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal: %w", err)
	}
	return c, nil
}

func parseMode(raw string) (models.Mode, error) {
	switch models.Mode(raw) {
	case "", models.ModeFull:
		return models.ModeFull, nil
	case models.ModeOnboarding:
		return models.ModeOnboarding, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want full or onboarding)", raw)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
