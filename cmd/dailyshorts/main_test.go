package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestExecuteReportsErrorsWithExitCode(t *testing.T) {
	env := setupCLITestEnv(t)
	var stdout, stderr bytes.Buffer
	code := execute([]string{"--config", env.configPath, "show", "missing"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	requireContains(t, stderr.String(), "dailyshorts: run \"missing\" not found")

	stdout.Reset()
	stderr.Reset()
	if code := execute([]string{"--config", env.configPath, "history"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr.String())
	}
	requireContains(t, stdout.String(), "No runs recorded")
}

func TestWriteJSONKeepsURLsReadable(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	if err := writeJSON(cmd, map[string]string{"url": "https://cdn.example/v.mp4?a=1&b=2"}); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if !strings.Contains(out.String(), "a=1&b=2") {
		t.Fatalf("expected unescaped query, got %q", out.String())
	}
}
