package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"dailyshorts/internal/services"
	"dailyshorts/internal/services/gemini"
	"dailyshorts/internal/services/renderer"
	"dailyshorts/internal/services/youtube"
)

// CheckGemini verifies that the generation API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckGemini(ctx context.Context, client *gemini.Client) Result {
	const name = "Gemini"
	if client == nil || !client.Configured() {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckRenderer performs a single liveness probe against the render service.
func CheckRenderer(ctx context.Context, client *renderer.Client) Result {
	const name = "Renderer"
	if client == nil {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := client.Health(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", client.BaseURL(), summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: client.BaseURL() + " (healthy)"}
}

// CheckYouTube verifies that direct publishing has credentials and a saved token.
func CheckYouTube(client *youtube.Client) Result {
	const name = "YouTube"
	if client == nil || !client.Configured() {
		return Result{Name: name, Detail: "client id/secret missing"}
	}
	if !client.HasToken() {
		return Result{Name: name, Detail: fmt.Sprintf("no token at %s (run `dailyshorts auth youtube`)", client.TokenPath())}
	}
	return Result{Name: name, Passed: true, Detail: "token present"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeError returns a concise description of a check failure.
func summarizeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, services.ErrNotConfigured):
		return "not configured"
	case errors.Is(err, services.ErrDependencyUnavailable):
		return "unreachable"
	}
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 && idx+2 < len(msg) {
		msg = msg[idx+2:]
	}
	if len(msg) > 120 {
		msg = msg[:120] + "..."
	}
	return msg
}
