package services

import (
	"errors"
	"fmt"
	"strings"
)

// Run-level failure markers. Mandatory-path failures abort a run; the others
// surface as diagnostics.
var (
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrPlanGeneration        = errors.New("plan generation failed")
	ErrRenderFailed          = errors.New("render failed")
	ErrTimeout               = errors.New("timeout")
	ErrArtifactFetch         = errors.New("artifact fetch failed")
	ErrPublishFailed         = errors.New("publish failed")
	ErrArchivalFailed        = errors.New("archival failed")
	ErrStorageFailed         = errors.New("storage upload failed")
)

// Collaborator markers returned by the remote service clients.
var (
	ErrNotConfigured   = errors.New("not configured")
	ErrInvalidResponse = errors.New("invalid response")
	ErrUnsupported     = errors.New("unsupported")
	ErrNotFound        = errors.New("not found")
	ErrTransient       = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// kinds is ordered most specific first so nested markers classify by their leaf.
var kinds = []struct {
	marker error
	name   string
}{
	{ErrDependencyUnavailable, "dependency_unavailable"},
	{ErrTimeout, "timeout"},
	{ErrArtifactFetch, "artifact_fetch_failed"},
	{ErrRenderFailed, "render_failed"},
	{ErrPlanGeneration, "plan_generation_failed"},
	{ErrPublishFailed, "publish_failed"},
	{ErrArchivalFailed, "archival_failed"},
	{ErrStorageFailed, "storage_failed"},
	{ErrNotConfigured, "not_configured"},
	{ErrUnsupported, "unsupported"},
	{ErrInvalidResponse, "invalid_response"},
	{ErrNotFound, "not_found"},
	{ErrTransient, "transient"},
}

// Kind classifies err by the first matching marker. It returns "" for nil and
// "unknown" for errors that carry no marker.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, kind := range kinds {
		if errors.Is(err, kind.marker) {
			return kind.name
		}
	}
	return "unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
