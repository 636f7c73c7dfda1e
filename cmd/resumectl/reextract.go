package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"resumeflow/internal/metrics"
	"resumeflow/internal/models"
	"resumeflow/internal/workflows"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	tclient "go.temporal.io/sdk/client"
)

var (
	reextractOwner      string
	reextractPath       string
	reextractConfidence float64
	reextractMode       string
	reextractStructured string
	reextractWait       bool
)

var reextractCmd = &cobra.Command{
	Use:   "reextract",
	Short: "Re-run profile extraction from a consolidated markdown document",
	RunE:  runReextract,
}

func init() {
	reextractCmd.Flags().StringVar(&reextractOwner, "owner", "", "owner id (required)")
	reextractCmd.Flags().StringVar(&reextractPath, "path", "", "storage path of the consolidated document (required)")
	reextractCmd.Flags().Float64Var(&reextractConfidence, "confidence", 1, "average page confidence recorded for the document")
	reextractCmd.Flags().StringVar(&reextractMode, "mode", string(models.ModeFull), "full or onboarding")
	reextractCmd.Flags().StringVar(&reextractStructured, "structured-provider", "", "structured provider name or index")
	reextractCmd.Flags().BoolVar(&reextractWait, "wait", false, "block until the run finishes and print the result")
	_ = reextractCmd.MarkFlagRequired("owner")
	_ = reextractCmd.MarkFlagRequired("path")
	rootCmd.AddCommand(reextractCmd)
}

func runReextract(cmd *cobra.Command, _ []string) error {
	mode, err := parseMode(reextractMode)
	if err != nil {
		return err
	}
	if reextractConfidence < 0 || reextractConfidence > 1 {
		return fmt.Errorf("confidence must be within [0,1], got %v", reextractConfidence)
	}
	c, err := dialTemporal()
	if err != nil {
		return err
	}
	defer c.Close()

	runID := uuid.NewString()
	ctx := context.Background()
	we, err := c.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:        workflows.WorkflowID(runID),
		TaskQueue: cfg.TemporalTaskQueue,
	}, workflows.ReextractProfileWorkflow, workflows.ReextractProfileInput{
		RunID:                 runID,
		OwnerID:               reextractOwner,
		OriginalFileName:      strings.TrimSuffix(filepath.Base(reextractPath), ".md") + ".pdf",
		ConsolidatedPath:      reextractPath,
		AverageConfidence:     reextractConfidence,
		Mode:                  mode,
		StructuredProviderRef: reextractStructured,
	})
	if err != nil {
		return fmt.Errorf("start reextract: %w", err)
	}
	metrics.IncRunStarted(string(mode))
	fmt.Fprintf(cmd.OutOrStdout(), "run %s started (workflow %s)\n", runID, we.GetID())
	if !reextractWait {
		return nil
	}
	var result models.PdfProcessingResult
	if err := we.Get(ctx, &result); err != nil {
		return fmt.Errorf("wait for run: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), result)
}
