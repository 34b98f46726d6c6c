package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Renderer contains configuration for the short-video render service.
type Renderer struct {
	BaseURL                  string `toml:"base_url"`
	PollIntervalSeconds      int    `toml:"poll_interval_seconds"`
	DeadlineSeconds          int    `toml:"deadline_seconds"`
	ReadinessIntervalSeconds int    `toml:"readiness_interval_seconds"`
	ReadinessDeadlineSeconds int    `toml:"readiness_deadline_seconds"`
	SubmitTimeoutSeconds     int    `toml:"submit_timeout_seconds"`
	StatusTimeoutSeconds     int    `toml:"status_timeout_seconds"`
	FetchTimeoutSeconds      int    `toml:"fetch_timeout_seconds"`
	HealthTimeoutSeconds     int    `toml:"health_timeout_seconds"`
}

// Video contains the render defaults applied when a plan omits them.
type Video struct {
	MusicTag        string `toml:"music_tag"`
	Voice           string `toml:"voice"`
	CaptionPosition string `toml:"caption_position"`
	MusicVolume     string `toml:"music_volume"`
	Orientation     string `toml:"orientation"`
	PaddingBackMS   int    `toml:"padding_back_ms"`
}

// Gemini contains configuration for the content generation API.
type Gemini struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Storage contains configuration for the Supabase object store.
type Storage struct {
	URL           string `toml:"url"`
	Key           string `toml:"key"`
	Bucket        string `toml:"bucket"`
	Prefix        string `toml:"prefix"`
	Public        bool   `toml:"public"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Aggregator contains configuration for the upload-post multi-platform API.
type Aggregator struct {
	APIKey         string   `toml:"api_key"`
	User           string   `toml:"user"`
	Endpoint       string   `toml:"endpoint"`
	Platforms      []string `toml:"platforms"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// YouTube contains OAuth and upload settings for direct YouTube publishing.
type YouTube struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	RedirectURI    string `toml:"redirect_uri"`
	TokenPath      string `toml:"token_path"`
	CategoryID     string `toml:"category_id"`
	PrivacyStatus  string `toml:"privacy_status"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Social contains session tokens for the best-effort platforms.
type Social struct {
	TikTokSessionToken    string `toml:"tiktok_session_token"`
	InstagramSessionToken string `toml:"instagram_session_token"`
}

// Archive contains configuration for pushing published videos to GitHub.
type Archive struct {
	Token          string `toml:"token"`
	Repo           string `toml:"repo"`
	BaseDir        string `toml:"base_dir"`
	Branch         string `toml:"branch"`
	APIBaseURL     string `toml:"api_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Schedule contains the daemon trigger cadence.
type Schedule struct {
	Cron       string `toml:"cron"`
	Timezone   string `toml:"timezone"`
	RunOnStart bool   `toml:"run_on_start"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunCompleted   bool   `toml:"run_completed"`
	RunFailed      bool   `toml:"run_failed"`
	Degraded       bool   `toml:"degraded"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for dailyshorts.
//
// Configuration sections by subsystem:
//   - Paths: output, log, and state directories plus the status API bind address
//   - Renderer: render service URL, poll cadence, and deadlines
//   - Video: music/voice/caption defaults forwarded to the renderer
//   - Gemini: content plan generation
//   - Storage: optional Supabase bucket for rendered artifacts
//   - Aggregator: optional upload-post multi-platform publishing
//   - YouTube/Social: direct publishing when no aggregator is configured
//   - Archive: optional GitHub archival of published videos
//   - Schedule: daemon cron cadence
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Renderer      Renderer      `toml:"renderer"`
	Video         Video         `toml:"video"`
	Gemini        Gemini        `toml:"gemini"`
	Storage       Storage       `toml:"storage"`
	Aggregator    Aggregator    `toml:"aggregator"`
	YouTube       YouTube       `toml:"youtube"`
	Social        Social        `toml:"social"`
	Archive       Archive       `toml:"archive"`
	Schedule      Schedule      `toml:"schedule"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dailyshorts/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory or next to
// the configuration file is loaded first; variables already set in the process win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(configDir string) error {
	candidates := []string{".env"}
	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, ".env"))
	}
	for _, candidate := range candidates {
		if err := godotenv.Load(candidate); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", candidate, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dailyshorts.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the location of the single-run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "run.lock")
}

// ArchiveOwnerRepo splits archive.repo into owner and repository name.
func (c *Config) ArchiveOwnerRepo() (string, string) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(c.Archive.Repo), "/")
	if !ok {
		return "", ""
	}
	return strings.TrimSpace(owner), strings.TrimSpace(repo)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
