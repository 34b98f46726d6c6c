package social

import (
	"context"
	"errors"
	"testing"

	"dailyshorts/internal/content"
	"dailyshorts/internal/services"
)

func TestUploaders(t *testing.T) {
	tests := []struct {
		name     string
		uploader *Uploader
		platform string
		want     error
	}{
		{name: "tiktok without token", uploader: NewTikTok(""), platform: PlatformTikTok, want: services.ErrNotConfigured},
		{name: "tiktok with token", uploader: NewTikTok("sess"), platform: PlatformTikTok, want: services.ErrUnsupported},
		{name: "instagram without token", uploader: NewInstagram("  "), platform: PlatformInstagram, want: services.ErrNotConfigured},
		{name: "instagram with token", uploader: NewInstagram("sess"), platform: PlatformInstagram, want: services.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.uploader.Name() != tt.platform {
				t.Fatalf("name = %q", tt.uploader.Name())
			}
			id, err := tt.uploader.Upload(context.Background(), "clip.mp4", Metadata{Title: "t"})
			if id != "" || !errors.Is(err, tt.want) {
				t.Fatalf("Upload = %q, %v; want %v", id, err, tt.want)
			}
		})
	}
}

func TestMetadataFromPlanCopiesTags(t *testing.T) {
	plan := content.ContentPlan{Title: "T", Description: "D", Tags: []string{"a"}}
	meta := MetadataFromPlan(plan)
	meta.Tags[0] = "changed"
	if plan.Tags[0] != "a" {
		t.Fatal("metadata must not alias plan tags")
	}
}
