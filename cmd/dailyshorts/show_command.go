package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dailyshorts/internal/history"
)

const showPrefixSearchLimit = 200

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			run, err := findRun(cmd, store, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, run)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatRunDetail(run))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run as JSON")
	return cmd
}

// findRun resolves an exact id first, then a unique prefix among recent runs.
func findRun(cmd *cobra.Command, store *history.Store, id string) (history.Run, error) {
	run, err := store.Get(cmd.Context(), id)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, history.ErrNotFound) {
		return history.Run{}, err
	}
	runs, listErr := store.List(cmd.Context(), showPrefixSearchLimit)
	if listErr != nil {
		return history.Run{}, listErr
	}
	var matches []history.Run
	for _, candidate := range runs {
		if strings.HasPrefix(candidate.ID, id) {
			matches = append(matches, candidate)
		}
	}
	switch len(matches) {
	case 0:
		return history.Run{}, fmt.Errorf("run %q not found", id)
	case 1:
		return matches[0], nil
	default:
		return history.Run{}, fmt.Errorf("run id %q is ambiguous (%d matches)", id, len(matches))
	}
}

func formatRunDetail(run history.Run) string {
	var b strings.Builder
	finished := ""
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Local().Format(time.RFC3339)
	}
	b.WriteString(renderFields([][2]string{
		{"Run", run.ID},
		{"Status", string(run.Status)},
		{"State", run.State},
		{"Failed stage", run.FailedStage},
		{"Trigger", string(run.Trigger)},
		{"Started", run.StartedAt.Local().Format(time.RFC3339)},
		{"Finished", finished},
		{"Duration", formatDuration(run.Duration())},
		{"Title", run.Title},
		{"Description", run.Description},
		{"Tags", strings.Join(run.Tags, ", ")},
		{"Scenes", formatCount(run.SceneCount)},
		{"Render job", run.JobID},
		{"Artifact", run.ArtifactPath},
		{"Storage key", run.StorageKey},
		{"Storage URL", run.StorageURL},
		{"Strategy", run.Strategy},
		{"Request", run.RequestID},
		{"Archive", run.ArchivePath},
		{"Archive URL", run.ArchiveURL},
		{"Error kind", run.ErrorKind},
		{"Error", run.ErrorMessage},
	}))
	b.WriteString("\n")

	if len(run.Outcomes) > 0 {
		rows := make([][]string, 0, len(run.Outcomes))
		for _, outcome := range run.Outcomes {
			rows = append(rows, []string{outcome.Platform, string(outcome.Status), yesNo(outcome.Primary), outcome.RemoteID, outcome.Detail})
		}
		b.WriteString("\nPublish outcomes\n")
		b.WriteString(renderTable([]string{"Platform", "Status", "Primary", "Remote ID", "Detail"}, rows, nil))
		b.WriteString("\n")
	}
	if len(run.Diagnostics) > 0 {
		rows := make([][]string, 0, len(run.Diagnostics))
		for _, diag := range run.Diagnostics {
			rows = append(rows, []string{diag.Stage, diag.Kind, diag.Message})
		}
		b.WriteString("\nDiagnostics\n")
		b.WriteString(renderTable([]string{"Stage", "Kind", "Message"}, rows, nil))
		b.WriteString("\n")
	}
	return b.String()
}
