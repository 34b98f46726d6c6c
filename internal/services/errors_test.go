package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"dailyshorts/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRenderFailed, "rendering", "submit", "renderer rejected job", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrRenderFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"rendering", "submit", "renderer rejected job", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindPrefersLeafMarker(t *testing.T) {
	timeout := services.Wrap(services.ErrTimeout, "rendering", "poll", "deadline exceeded", nil)
	nested := services.Wrap(services.ErrRenderFailed, "rendering", "await", "", timeout)

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("plain"), "unknown"},
		{nested, "timeout"},
		{services.Wrap(services.ErrPublishFailed, "publishing", "aggregator", "", nil), "publish_failed"},
		{fmt.Errorf("outer: %w", services.ErrDependencyUnavailable), "dependency_unavailable"},
		{services.Wrap(services.ErrPlanGeneration, "plan", "generate", "", services.ErrNotConfigured), "plan_generation_failed"},
	}
	for _, tc := range tests {
		if got := services.Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
