package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"resumeflow/internal/metrics"
	"resumeflow/internal/models"
	"resumeflow/internal/workflows"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

var (
	processOwner      string
	processMode       string
	processWait       bool
	processVision     string
	processStructured string
)

var processCmd = &cobra.Command{
	Use:   "process <file.pdf>",
	Short: "Start a pipeline run for a résumé PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processOwner, "owner", "", "owner id the profile belongs to (required)")
	processCmd.Flags().StringVar(&processMode, "mode", string(models.ModeFull), "full or onboarding")
	processCmd.Flags().BoolVar(&processWait, "wait", false, "block until the run finishes and print the result")
	processCmd.Flags().StringVar(&processVision, "vision-provider", "", "vision provider name or index")
	processCmd.Flags().StringVar(&processStructured, "structured-provider", "", "structured provider name or index")
	_ = processCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(processCmd)
}

func buildProcessInput(path, owner string, mode models.Mode, maxBytes int) (workflows.ProcessDocumentInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return workflows.ProcessDocumentInput{}, err
	}
	if maxBytes > 0 && info.Size() > int64(maxBytes) {
		return workflows.ProcessDocumentInput{}, fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), maxBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return workflows.ProcessDocumentInput{}, err
	}
	return workflows.ProcessDocumentInput{
		RunID:       uuid.NewString(),
		OwnerID:     owner,
		FileName:    filepath.Base(path),
		ContentType: "application/pdf",
		Content:     content,
		Mode:        mode,
	}, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(processMode)
	if err != nil {
		return err
	}
	in, err := buildProcessInput(args[0], processOwner, mode, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}
	in.VisionProviderRef = processVision
	in.StructuredProviderRef = processStructured

	c, err := dialTemporal()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()
	we, err := c.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       workflows.WorkflowID(in.RunID),
		TaskQueue:                                cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.ProcessDocumentWorkflow, in)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	metrics.IncRunStarted(string(mode))
	fmt.Fprintf(cmd.OutOrStdout(), "run %s started (workflow %s)\n", in.RunID, we.GetID())
	if !processWait {
		return nil
	}

	var result models.PdfProcessingResult
	if err := we.Get(ctx, &result); err != nil {
		return fmt.Errorf("wait for run: %w", err)
	}
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("run failed at %s: %s", result.FailedStage, result.Error)
	}
	return nil
}
