// Package history persists pipeline runs in SQLite so the CLI and the daemon
// API can report what happened on previous days.
//
// A run is inserted as running when it starts and rewritten with the final
// RunResult when it finishes. Rows still marked running when the process
// starts again are flipped to interrupted by MarkInterrupted. Schema changes
// bump the version in schema.go; users delete history.db to adopt the new
// schema.
package history
