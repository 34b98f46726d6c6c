// Package daemon runs dailyshorts as a long-lived process.
//
// It schedules pipeline runs on the configured cron expression, skips a tick
// when a run is still in flight, marks runs interrupted by a previous crash,
// and optionally serves a small HTTP API for health, run history, and manual
// triggers. Pipeline semantics live in the pipeline and runner packages; the
// daemon only decides when to start a run.
package daemon
