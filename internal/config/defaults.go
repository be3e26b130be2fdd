package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Enabled:           true,
		SessionGapMinutes: 30,
		MaxSuggestions:    10,
		MaxHistoryDays:    90,
		BlockedDomains:    []string{},
		BlockedURLs:       []string{},
		LikedURLs:         []string{},
		ScoringWeights: WeightsConfig{
			CoOccurrence:   0.5,
			Recency:        0.3,
			VisitFrequency: 0.1,
			UserAffinity:   0.1,
		},
		Storage: StorageConfig{
			Path:       "~/.config/histrail",
			SQLiteFile: "histrail.db",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 7774,
		},
		Indexer: IndexerConfig{
			UpdateIntervalMinutes: 15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
