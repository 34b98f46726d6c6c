package config

// Features records which optional pipeline branches the configured credentials enable.
// It is computed once and passed by value so consumers never consult the environment.
type Features struct {
	Storage       bool
	Aggregator    bool
	Archive       bool
	Notifications bool
}

// Features derives the feature flags from credential presence.
func (c *Config) Features() Features {
	owner, repo := c.ArchiveOwnerRepo()
	return Features{
		Storage:       c.Storage.URL != "" && c.Storage.Key != "" && c.Storage.Bucket != "",
		Aggregator:    c.Aggregator.APIKey != "" && c.Aggregator.User != "",
		Archive:       c.Archive.Token != "" && owner != "" && repo != "",
		Notifications: c.Notifications.NtfyTopic != "",
	}
}

// PublishStrategy names the publish strategy the feature flags select.
func (f Features) PublishStrategy() string {
	if f.Aggregator {
		return "aggregated"
	}
	return "direct"
}
