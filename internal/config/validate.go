package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"dailyshorts/internal/content"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRenderer(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAggregator(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRenderer() error {
	if err := validateHTTPURL("renderer.base_url", c.Renderer.BaseURL); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"renderer.poll_interval_seconds":      c.Renderer.PollIntervalSeconds,
		"renderer.deadline_seconds":           c.Renderer.DeadlineSeconds,
		"renderer.readiness_interval_seconds": c.Renderer.ReadinessIntervalSeconds,
		"renderer.readiness_deadline_seconds": c.Renderer.ReadinessDeadlineSeconds,
		"renderer.submit_timeout_seconds":     c.Renderer.SubmitTimeoutSeconds,
		"renderer.status_timeout_seconds":     c.Renderer.StatusTimeoutSeconds,
		"renderer.fetch_timeout_seconds":      c.Renderer.FetchTimeoutSeconds,
		"renderer.health_timeout_seconds":     c.Renderer.HealthTimeoutSeconds,
		"gemini.timeout_seconds":              c.Gemini.TimeoutSeconds,
		"notifications.request_timeout":       c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Renderer.DeadlineSeconds <= c.Renderer.PollIntervalSeconds {
		return errors.New("renderer.deadline_seconds must be greater than renderer.poll_interval_seconds")
	}
	if c.Renderer.ReadinessDeadlineSeconds < c.Renderer.ReadinessIntervalSeconds {
		return errors.New("renderer.readiness_deadline_seconds must be at least renderer.readiness_interval_seconds")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if !content.IsMusicTag(c.Video.MusicTag) {
		return fmt.Errorf("video.music_tag %q is not one of: %s", c.Video.MusicTag, strings.Join(content.MusicTags(), ", "))
	}
	switch c.Video.CaptionPosition {
	case "top", "center", "bottom":
	default:
		return fmt.Errorf("video.caption_position must be top, center, or bottom (got %q)", c.Video.CaptionPosition)
	}
	switch c.Video.Orientation {
	case "portrait", "landscape":
	default:
		return fmt.Errorf("video.orientation must be portrait or landscape (got %q)", c.Video.Orientation)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.URL == "" {
		return nil
	}
	if err := validateHTTPURL("storage.url", c.Storage.URL); err != nil {
		return err
	}
	if c.Storage.PublicBaseURL != "" {
		if err := validateHTTPURL("storage.public_base_url", c.Storage.PublicBaseURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateAggregator() error {
	if c.Aggregator.APIKey == "" {
		return nil
	}
	if c.Aggregator.User == "" {
		return errors.New("aggregator.user must be set when aggregator.api_key is set (or set UPLOADPOST_USER)")
	}
	if err := validateHTTPURL("aggregator.endpoint", c.Aggregator.Endpoint); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateYouTube() error {
	switch c.YouTube.PrivacyStatus {
	case "public", "unlisted", "private":
	default:
		return fmt.Errorf("youtube.privacy_status must be public, unlisted, or private (got %q)", c.YouTube.PrivacyStatus)
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.Token == "" {
		return nil
	}
	owner, repo := c.ArchiveOwnerRepo()
	if owner == "" || repo == "" {
		return fmt.Errorf("archive.repo must be in owner/repo form when archive.token is set (got %q)", c.Archive.Repo)
	}
	if c.Archive.APIBaseURL != "" {
		if err := validateHTTPURL("archive.api_base_url", c.Archive.APIBaseURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone %q: %w", c.Schedule.Timezone, err)
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL (got %q)", field, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host (got %q)", field, raw)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
