package config

const (
	defaultOutputDir            = "~/.local/share/dailyshorts/output"
	defaultLogDir               = "~/.local/share/dailyshorts/logs"
	defaultStateDir             = "~/.local/share/dailyshorts/state"
	defaultAPIBind              = "127.0.0.1:7490"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultRendererBaseURL      = "http://localhost:3123"
	defaultRenderPollInterval   = 5
	defaultRenderDeadline       = 30 * 60
	defaultReadinessInterval    = 2
	defaultReadinessDeadline    = 60
	defaultRenderSubmitTimeout  = 60
	defaultRenderStatusTimeout  = 30
	defaultRenderFetchTimeout   = 120
	defaultRenderHealthTimeout  = 3
	defaultMusicTag             = "chill"
	defaultVoice                = "af_heart"
	defaultCaptionPosition      = "bottom"
	defaultMusicVolume          = "high"
	defaultOrientation          = "portrait"
	defaultPaddingBackMS        = 1500
	defaultGeminiBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel          = "gemini-1.5-flash"
	defaultGeminiTimeout        = 60
	defaultStoragePrefix        = "shorts"
	defaultAggregatorEndpoint   = "https://api.upload-post.com/api/upload"
	defaultAggregatorTimeout    = 300
	defaultYouTubeTokenPath     = "~/.config/dailyshorts/youtube_oauth_token.json"
	defaultYouTubeRedirectURI   = "urn:ietf:wg:oauth:2.0:oob"
	defaultYouTubeCategoryID    = "24"
	defaultYouTubePrivacyStatus = "public"
	defaultYouTubeTimeout       = 600
	defaultArchiveBaseDir       = "finished"
	defaultArchiveTimeout       = 120
	defaultScheduleCron         = "0 10 * * *"
	defaultScheduleTimezone     = "UTC"
	defaultNotifyRequestTimeout = 10
)

var defaultAggregatorPlatforms = []string{"youtube", "tiktok", "instagram"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
			APIBind:   defaultAPIBind,
		},
		Renderer: Renderer{
			BaseURL:                  defaultRendererBaseURL,
			PollIntervalSeconds:      defaultRenderPollInterval,
			DeadlineSeconds:          defaultRenderDeadline,
			ReadinessIntervalSeconds: defaultReadinessInterval,
			ReadinessDeadlineSeconds: defaultReadinessDeadline,
			SubmitTimeoutSeconds:     defaultRenderSubmitTimeout,
			StatusTimeoutSeconds:     defaultRenderStatusTimeout,
			FetchTimeoutSeconds:      defaultRenderFetchTimeout,
			HealthTimeoutSeconds:     defaultRenderHealthTimeout,
		},
		Video: Video{
			MusicTag:        defaultMusicTag,
			Voice:           defaultVoice,
			CaptionPosition: defaultCaptionPosition,
			MusicVolume:     defaultMusicVolume,
			Orientation:     defaultOrientation,
			PaddingBackMS:   defaultPaddingBackMS,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultGeminiModel,
			TimeoutSeconds: defaultGeminiTimeout,
		},
		Storage: Storage{
			Prefix: defaultStoragePrefix,
			Public: true,
		},
		Aggregator: Aggregator{
			Endpoint:       defaultAggregatorEndpoint,
			Platforms:      append([]string(nil), defaultAggregatorPlatforms...),
			TimeoutSeconds: defaultAggregatorTimeout,
		},
		YouTube: YouTube{
			RedirectURI:    defaultYouTubeRedirectURI,
			TokenPath:      defaultYouTubeTokenPath,
			CategoryID:     defaultYouTubeCategoryID,
			PrivacyStatus:  defaultYouTubePrivacyStatus,
			TimeoutSeconds: defaultYouTubeTimeout,
		},
		Archive: Archive{
			BaseDir:        defaultArchiveBaseDir,
			TimeoutSeconds: defaultArchiveTimeout,
		},
		Schedule: Schedule{
			Cron:     defaultScheduleCron,
			Timezone: defaultScheduleTimezone,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunCompleted:   true,
			RunFailed:      true,
			Degraded:       true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
