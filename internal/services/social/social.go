// Package social holds the best-effort TikTok and Instagram uploaders.
//
// Neither platform offers a maintained public upload API for personal
// accounts, so a configured session token yields services.ErrUnsupported
// rather than an attempt at browser automation. A missing token yields
// services.ErrNotConfigured so the publish step can report the platform as
// skipped.
package social

import (
	"context"
	"strings"

	"dailyshorts/internal/content"
	"dailyshorts/internal/services"
)

const (
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
)

// Metadata is the descriptive payload attached to a best-effort upload.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
}

// MetadataFromPlan derives upload metadata from a content plan.
func MetadataFromPlan(plan content.ContentPlan) Metadata {
	return Metadata{Title: plan.Title, Description: plan.Description, Tags: append([]string(nil), plan.Tags...)}
}

// Uploader publishes an artifact to a session-token platform.
type Uploader struct {
	platform string
	envName  string
	token    string
}

// NewTikTok returns the TikTok uploader.
func NewTikTok(sessionToken string) *Uploader {
	return &Uploader{platform: PlatformTikTok, envName: "TIKTOK_SESSION_TOKEN", token: strings.TrimSpace(sessionToken)}
}

// NewInstagram returns the Instagram uploader.
func NewInstagram(sessionToken string) *Uploader {
	return &Uploader{platform: PlatformInstagram, envName: "INSTAGRAM_SESSION_TOKEN", token: strings.TrimSpace(sessionToken)}
}

// Name returns the platform identifier.
func (u *Uploader) Name() string {
	return u.platform
}

// Configured reports whether a session token is present.
func (u *Uploader) Configured() bool {
	return u.token != ""
}

// Upload never returns a remote id today; see the package documentation.
func (u *Uploader) Upload(ctx context.Context, artifactPath string, meta Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !u.Configured() {
		return "", services.Wrap(services.ErrNotConfigured, "", u.platform, "set "+u.envName+" to enable", nil)
	}
	return "", services.Wrap(services.ErrUnsupported, "", u.platform, "no maintained public upload API for session-token accounts", nil)
}
