package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneFiles removes files in dir matching pattern whose modification time is
// older than retentionDays. The active file is never removed. A retentionDays
// value of 0 disables pruning. It returns the number of files removed.
func PruneFiles(logger *slog.Logger, dir, pattern, active string, retentionDays int, now time.Time) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	activeAbs, _ := filepath.Abs(active)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(fullPath); err == nil && abs == activeAbs {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "retention remove failed; file remains", "retention_failed",
				String("path", fullPath),
				Error(err),
				String(FieldErrorHint, "check file permissions on the directory"),
				String(FieldImpact, "old file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("file pruned", String("path", fullPath), String(FieldEventType, "file_pruned"))
		}
	}
	return removed
}
