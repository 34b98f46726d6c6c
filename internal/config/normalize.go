package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRenderer()
	c.normalizeVideo()
	c.normalizeGemini()
	c.normalizeStorage()
	c.normalizeAggregator()
	if err := c.normalizeYouTube(); err != nil {
		return err
	}
	c.normalizeSocial()
	c.normalizeArchive()
	c.normalizeSchedule()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

// envFallback fills target from the first non-empty environment variable when target is empty.
func envFallback(target *string, names ...string) {
	*target = strings.TrimSpace(*target)
	if *target != "" {
		return
	}
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
			return
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	envFallback(&c.Paths.APIToken, "DAILYSHORTS_API_TOKEN")
	return nil
}

func (c *Config) normalizeRenderer() {
	envFallback(&c.Renderer.BaseURL, "RENDERER_URL")
	if c.Renderer.BaseURL == "" {
		c.Renderer.BaseURL = defaultRendererBaseURL
	}
	c.Renderer.BaseURL = strings.TrimRight(c.Renderer.BaseURL, "/")
	defaultInt(&c.Renderer.PollIntervalSeconds, defaultRenderPollInterval)
	defaultInt(&c.Renderer.DeadlineSeconds, defaultRenderDeadline)
	defaultInt(&c.Renderer.ReadinessIntervalSeconds, defaultReadinessInterval)
	defaultInt(&c.Renderer.ReadinessDeadlineSeconds, defaultReadinessDeadline)
	defaultInt(&c.Renderer.SubmitTimeoutSeconds, defaultRenderSubmitTimeout)
	defaultInt(&c.Renderer.StatusTimeoutSeconds, defaultRenderStatusTimeout)
	defaultInt(&c.Renderer.FetchTimeoutSeconds, defaultRenderFetchTimeout)
	defaultInt(&c.Renderer.HealthTimeoutSeconds, defaultRenderHealthTimeout)
}

func (c *Config) normalizeVideo() {
	// Environment overrides win over the file for the render defaults.
	if value, ok := os.LookupEnv("VIDEO_MUSIC_TAG"); ok && strings.TrimSpace(value) != "" {
		c.Video.MusicTag = value
	}
	if value, ok := os.LookupEnv("VIDEO_VOICE"); ok && strings.TrimSpace(value) != "" {
		c.Video.Voice = value
	}
	if value, ok := os.LookupEnv("VIDEO_PADDING_BACK_MS"); ok {
		if ms, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && ms >= 0 {
			c.Video.PaddingBackMS = ms
		}
	}
	c.Video.MusicTag = strings.ToLower(strings.TrimSpace(c.Video.MusicTag))
	if c.Video.MusicTag == "" {
		c.Video.MusicTag = defaultMusicTag
	}
	c.Video.Voice = strings.TrimSpace(c.Video.Voice)
	if c.Video.Voice == "" {
		c.Video.Voice = defaultVoice
	}
	c.Video.CaptionPosition = strings.ToLower(strings.TrimSpace(c.Video.CaptionPosition))
	if c.Video.CaptionPosition == "" {
		c.Video.CaptionPosition = defaultCaptionPosition
	}
	c.Video.MusicVolume = strings.ToLower(strings.TrimSpace(c.Video.MusicVolume))
	if c.Video.MusicVolume == "" {
		c.Video.MusicVolume = defaultMusicVolume
	}
	c.Video.Orientation = strings.ToLower(strings.TrimSpace(c.Video.Orientation))
	if c.Video.Orientation == "" {
		c.Video.Orientation = defaultOrientation
	}
	if c.Video.PaddingBackMS < 0 {
		c.Video.PaddingBackMS = defaultPaddingBackMS
	}
}

func (c *Config) normalizeGemini() {
	envFallback(&c.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	envFallback(&c.Gemini.Model, "GEMINI_MODEL")
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
	c.Gemini.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gemini.BaseURL), "/")
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	defaultInt(&c.Gemini.TimeoutSeconds, defaultGeminiTimeout)
}

func (c *Config) normalizeStorage() {
	envFallback(&c.Storage.URL, "SUPABASE_URL")
	envFallback(&c.Storage.Key, "SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_KEY")
	envFallback(&c.Storage.Bucket, "SUPABASE_BUCKET")
	envFallback(&c.Storage.PublicBaseURL, "STORAGE_PUBLIC_BASE_URL")
	c.Storage.URL = strings.TrimRight(c.Storage.URL, "/")
	c.Storage.PublicBaseURL = strings.TrimRight(c.Storage.PublicBaseURL, "/")
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = defaultStoragePrefix
	}
}

func (c *Config) normalizeAggregator() {
	envFallback(&c.Aggregator.APIKey, "UPLOADPOST_API_KEY")
	envFallback(&c.Aggregator.User, "UPLOADPOST_USER")
	envFallback(&c.Aggregator.Endpoint, "UPLOADPOST_ENDPOINT")
	if c.Aggregator.Endpoint == "" {
		c.Aggregator.Endpoint = defaultAggregatorEndpoint
	}
	platforms := make([]string, 0, len(c.Aggregator.Platforms))
	seen := make(map[string]struct{}, len(c.Aggregator.Platforms))
	for _, platform := range c.Aggregator.Platforms {
		normalized := strings.ToLower(strings.TrimSpace(platform))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		platforms = append(platforms, normalized)
	}
	if len(platforms) == 0 {
		platforms = append(platforms, defaultAggregatorPlatforms...)
	}
	c.Aggregator.Platforms = platforms
	defaultInt(&c.Aggregator.TimeoutSeconds, defaultAggregatorTimeout)
}

func (c *Config) normalizeYouTube() error {
	envFallback(&c.YouTube.ClientID, "GOOGLE_CLIENT_ID")
	envFallback(&c.YouTube.ClientSecret, "GOOGLE_CLIENT_SECRET")
	envFallback(&c.YouTube.RedirectURI, "GOOGLE_REDIRECT_URI")
	if c.YouTube.RedirectURI == "" {
		c.YouTube.RedirectURI = defaultYouTubeRedirectURI
	}
	if strings.TrimSpace(c.YouTube.TokenPath) == "" {
		c.YouTube.TokenPath = defaultYouTubeTokenPath
	}
	var err error
	if c.YouTube.TokenPath, err = expandPath(c.YouTube.TokenPath); err != nil {
		return fmt.Errorf("youtube.token_path: %w", err)
	}
	c.YouTube.CategoryID = strings.TrimSpace(c.YouTube.CategoryID)
	if c.YouTube.CategoryID == "" {
		c.YouTube.CategoryID = defaultYouTubeCategoryID
	}
	c.YouTube.PrivacyStatus = strings.ToLower(strings.TrimSpace(c.YouTube.PrivacyStatus))
	if c.YouTube.PrivacyStatus == "" {
		c.YouTube.PrivacyStatus = defaultYouTubePrivacyStatus
	}
	defaultInt(&c.YouTube.TimeoutSeconds, defaultYouTubeTimeout)
	return nil
}

func (c *Config) normalizeSocial() {
	envFallback(&c.Social.TikTokSessionToken, "TIKTOK_SESSION_TOKEN")
	envFallback(&c.Social.InstagramSessionToken, "INSTAGRAM_SESSION_TOKEN")
}

func (c *Config) normalizeArchive() {
	envFallback(&c.Archive.Token, "GITHUB_TOKEN")
	envFallback(&c.Archive.Repo, "GITHUB_REPO")
	envFallback(&c.Archive.Branch, "GITHUB_BRANCH")
	c.Archive.BaseDir = strings.Trim(strings.TrimSpace(c.Archive.BaseDir), "/")
	if c.Archive.BaseDir == "" {
		c.Archive.BaseDir = defaultArchiveBaseDir
	}
	c.Archive.APIBaseURL = strings.TrimSpace(c.Archive.APIBaseURL)
	defaultInt(&c.Archive.TimeoutSeconds, defaultArchiveTimeout)
}

func (c *Config) normalizeSchedule() {
	if value, ok := os.LookupEnv("CRON_SCHEDULE"); ok && strings.TrimSpace(value) != "" {
		c.Schedule.Cron = value
	}
	c.Schedule.Cron = strings.TrimSpace(c.Schedule.Cron)
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = defaultScheduleCron
	}
	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaultScheduleTimezone
	}
}

func (c *Config) normalizeNotifications() {
	envFallback(&c.Notifications.NtfyTopic, "NTFY_TOPIC")
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func defaultInt(target *int, fallback int) {
	if *target <= 0 {
		*target = fallback
	}
}
