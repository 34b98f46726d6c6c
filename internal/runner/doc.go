// Package runner executes one pipeline run end to end.
//
// It builds every collaborator from configuration, holds the single-run file
// lock so the CLI and the daemon never overlap, records the run in history,
// and sends notifications for the result. Both `dailyshorts run` and the
// daemon scheduler go through Runner.Run.
package runner
