package main

import (
	"context"
	"fmt"

	"resumeflow/internal/models"
	"resumeflow/internal/workflows"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the live stage map of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialTemporal()
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.QueryWorkflow(context.Background(), workflows.WorkflowID(args[0]), "", workflows.QueryGetPipelineStatus)
		if err != nil {
			return fmt.Errorf("query run %s: %w", args[0], err)
		}
		var run models.PipelineRun
		if err := resp.Get(&run); err != nil {
			return fmt.Errorf("decode run status: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), run)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
