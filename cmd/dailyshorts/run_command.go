package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dailyshorts/internal/history"
	"dailyshorts/internal/notifications"
	"dailyshorts/internal/pipeline"
	"dailyshorts/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store, err := ctx.openHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			r, err := runner.New(cfg, logger, store, notifications.NewService(cfg))
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			result, err := r.Run(runCtx, history.TriggerManual)
			if errors.Is(err, runner.ErrRunInProgress) {
				return fmt.Errorf("another run is in progress (lock %s)", cfg.LockPath())
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, history.FromResult(result, history.TriggerManual)); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), formatRunSummary(result))
			}
			if !result.Succeeded {
				return fmt.Errorf("run %s failed at %s: %s", result.RunID, result.FailedStage, result.ErrorKind())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run result as JSON")
	return cmd
}

func formatRunSummary(result pipeline.RunResult) string {
	var b strings.Builder
	status := "succeeded"
	if !result.Succeeded {
		status = "failed"
	}
	fmt.Fprintf(&b, "Run %s %s in %s (state %s)\n", result.RunID, status, result.Duration().Round(time.Second), result.State)
	if result.Plan != nil {
		fmt.Fprintf(&b, "Title: %s (%d scenes)\n", result.Plan.Title, result.Plan.Scenes)
	}
	if result.ArtifactPath != "" {
		fmt.Fprintf(&b, "Artifact: %s\n", result.ArtifactPath)
	}
	if result.StorageURL != "" {
		fmt.Fprintf(&b, "Storage: %s\n", result.StorageURL)
	}
	if result.Publish != nil {
		for _, outcome := range result.Publish.Outcomes {
			line := fmt.Sprintf("Publish %s: %s", outcome.Platform, outcome.Status)
			if outcome.RemoteID != "" {
				line += " (" + outcome.RemoteID + ")"
			}
			if outcome.Detail != "" {
				line += " - " + outcome.Detail
			}
			b.WriteString(line + "\n")
		}
	}
	if result.ArchivePath != "" {
		fmt.Fprintf(&b, "Archived: %s\n", result.ArchivePath)
	}
	for _, diag := range result.Diagnostics {
		fmt.Fprintf(&b, "Warning [%s/%s]: %s\n", diag.Stage, diag.Kind, diag.Message)
	}
	if result.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", result.Err)
	}
	return b.String()
}
