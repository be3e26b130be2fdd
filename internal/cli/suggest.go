package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/histrail/internal/config"
	"github.com/runnerr0/histrail/internal/storage"
	"github.com/runnerr0/histrail/internal/suggest"
	"github.com/runnerr0/histrail/internal/urlutil"
)

// Execute implements the go-flags Commander interface for SuggestCommand.
func (c *SuggestCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for suggest command")
	}

	cfg, _, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(cfg, store)
}

// executeWithStore ranks suggestions against a provided store (used by tests).
func (c *SuggestCommand) executeWithStore(cfg *config.Config, store *storage.SQLiteStore) error {
	current := urlutil.Normalize(c.URL)

	if !cfg.Enabled || urlutil.IsExcluded(current) {
		return c.printResults(current, nil)
	}

	entries, err := store.GetEntries(context.Background(), current)
	if err != nil {
		return fmt.Errorf("looking up entries: %w", err)
	}

	limit := cfg.MaxSuggestions
	if c.Limit > 0 {
		limit = c.Limit
	}

	weights := cfg.Weights()
	results := suggest.Rank(time.Now(), current, entries, suggest.Options{
		Weights:        &weights,
		MaxResults:     limit,
		BlockedURLs:    cfg.BlockedURLSet(),
		BlockedDomains: cfg.BlockedDomainSet(),
		LikedURLs:      cfg.LikedURLSet(),
	})

	return c.printResults(current, results)
}

func (c *SuggestCommand) printResults(current string, results []suggest.Suggestion) error {
	if c.globals != nil && c.globals.JSON {
		if results == nil {
			results = []suggest.Suggestion{}
		}
		out := map[string]interface{}{
			"url":         current,
			"suggestions": results,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(results) == 0 {
		fmt.Printf("No suggestions for %s\n", current)
		return nil
	}

	fmt.Printf("Suggestions for %s:\n", current)
	for i, s := range results {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		fmt.Printf("%2d. %s\n", i+1, title)
		fmt.Printf("    %s  (score %.3f, seen together %d times)\n", s.URL, s.Score, s.MatchCount)
	}

	return nil
}
