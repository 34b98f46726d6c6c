// Package logging assembles structured slog loggers and formatting helpers used
// across dailyshorts.
//
// It owns the console and JSON handlers, tees output into a JSON log file,
// and exposes context-aware helpers so stage code automatically tags log lines
// with run IDs and stage names. The package also provides a no-op logger for
// tests and a sampler that keeps render polling logs readable.
package logging
