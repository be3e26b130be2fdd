// Package config loads and persists histrail user preferences.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runnerr0/histrail/internal/suggest"
	"github.com/runnerr0/histrail/internal/urlutil"
)

// DefaultConfigPath is the default config file location.
const DefaultConfigPath = "~/.config/histrail/config.yaml"

// Config holds all histrail configuration. Enabled is the master kill
// switch: when false the indexer must not run and the suggestion query
// path returns empty results.
type Config struct {
	Enabled           bool          `yaml:"enabled"`
	SessionGapMinutes int           `yaml:"session_gap_minutes"`
	MaxSuggestions    int           `yaml:"max_suggestions"`
	MaxHistoryDays    int           `yaml:"max_history_days"`
	BlockedDomains    []string      `yaml:"blocked_domains"`
	BlockedURLs       []string      `yaml:"blocked_urls"`
	LikedURLs         []string      `yaml:"liked_urls"`
	ScoringWeights    WeightsConfig `yaml:"scoring_weights"`
	Storage           StorageConfig `yaml:"storage"`
	Server            ServerConfig  `yaml:"server"`
	Indexer           IndexerConfig `yaml:"indexer"`
	Logging           LoggingConfig `yaml:"logging"`
}

type WeightsConfig struct {
	CoOccurrence   float64 `yaml:"co_occurrence"`
	Recency        float64 `yaml:"recency"`
	VisitFrequency float64 `yaml:"visit_frequency"`
	UserAffinity   float64 `yaml:"user_affinity"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type IndexerConfig struct {
	UpdateIntervalMinutes int `yaml:"update_interval_minutes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file at path and merges it with defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// LoadOrCreate loads the config from the default path, creating it with
// defaults when absent.
func LoadOrCreate() (*Config, string, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, "", err
	}
	cfg, err := LoadOrCreateAt(path)
	return cfg, path, err
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// Save writes the config as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Clone returns a copy whose list fields are independent of the receiver,
// so the copy can be mutated while other goroutines read the original.
func (c *Config) Clone() *Config {
	out := *c
	out.BlockedDomains = append([]string(nil), c.BlockedDomains...)
	out.BlockedURLs = append([]string(nil), c.BlockedURLs...)
	out.LikedURLs = append([]string(nil), c.LikedURLs...)
	return &out
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// DBPath resolves the SQLite database file location.
func (c *Config) DBPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// Gap converts the session gap setting to a duration.
func (c *Config) Gap() time.Duration {
	return time.Duration(c.SessionGapMinutes) * time.Minute
}

// UpdateInterval is the periodic incremental update cadence.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Indexer.UpdateIntervalMinutes) * time.Minute
}

// Weights maps the configured scoring weights to the engine's type.
func (c *Config) Weights() suggest.Weights {
	return suggest.Weights{
		CoOccurrence:   c.ScoringWeights.CoOccurrence,
		Recency:        c.ScoringWeights.Recency,
		VisitFrequency: c.ScoringWeights.VisitFrequency,
		UserAffinity:   c.ScoringWeights.UserAffinity,
	}
}

// BlockedURLSet returns the blocked URLs, normalized, as a set.
func (c *Config) BlockedURLSet() map[string]struct{} {
	return normalizedSet(c.BlockedURLs)
}

// LikedURLSet returns the liked URLs, normalized, as a set.
func (c *Config) LikedURLSet() map[string]struct{} {
	return normalizedSet(c.LikedURLs)
}

// BlockedDomainSet returns the blocked domains as a set.
func (c *Config) BlockedDomainSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.BlockedDomains))
	for _, d := range c.BlockedDomains {
		set[d] = struct{}{}
	}
	return set
}

func normalizedSet(urls []string) map[string]struct{} {
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[urlutil.Normalize(u)] = struct{}{}
	}
	return set
}

// AddLikedURL records a liked URL. Reports whether the list changed.
func (c *Config) AddLikedURL(url string) bool {
	var added bool
	c.LikedURLs, added = appendUnique(c.LikedURLs, urlutil.Normalize(url))
	return added
}

// RemoveLikedURL drops a liked URL. Reports whether the list changed.
func (c *Config) RemoveLikedURL(url string) bool {
	var removed bool
	c.LikedURLs, removed = removeValue(c.LikedURLs, urlutil.Normalize(url))
	return removed
}

// AddBlockedURL records a blocked URL. Reports whether the list changed.
func (c *Config) AddBlockedURL(url string) bool {
	var added bool
	c.BlockedURLs, added = appendUnique(c.BlockedURLs, urlutil.Normalize(url))
	return added
}

// RemoveBlockedURL drops a blocked URL. Reports whether the list changed.
func (c *Config) RemoveBlockedURL(url string) bool {
	var removed bool
	c.BlockedURLs, removed = removeValue(c.BlockedURLs, urlutil.Normalize(url))
	return removed
}

// AddBlockedDomain records a blocked domain. Reports whether the list changed.
func (c *Config) AddBlockedDomain(domain string) bool {
	var added bool
	c.BlockedDomains, added = appendUnique(c.BlockedDomains, urlutil.Domain(domain))
	return added
}

// RemoveBlockedDomain drops a blocked domain. Reports whether the list changed.
func (c *Config) RemoveBlockedDomain(domain string) bool {
	var removed bool
	c.BlockedDomains, removed = removeValue(c.BlockedDomains, urlutil.Domain(domain))
	return removed
}

func appendUnique(list []string, value string) ([]string, bool) {
	for _, v := range list {
		if v == value {
			return list, false
		}
	}
	return append(list, value), true
}

func removeValue(list []string, value string) ([]string, bool) {
	for i, v := range list {
		if v == value {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}
