package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/runnerr0/histrail/internal/session"
	"github.com/runnerr0/histrail/internal/storage"
	"github.com/runnerr0/histrail/internal/urlutil"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for add command")
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

	return c.executeWithStore(store)
}

// executeWithStore runs the add logic against a provided store (used by tests).
func (c *AddCommand) executeWithStore(store *storage.SQLiteStore) error {
	parsed, err := url.ParseRequestURI(c.URL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s", c.URL)
	}

	// Reject non-content URLs before they reach the store (the indexer
	// skips them anyway, but a manual add deserves an explicit error).
	if urlutil.IsExcluded(c.URL) {
		return fmt.Errorf("URL %q uses an excluded scheme", c.URL)
	}

	when := time.Now()
	if c.Time != "" {
		when, err = time.Parse(time.RFC3339, c.Time)
		if err != nil {
			return fmt.Errorf("invalid --time (want RFC3339): %w", err)
		}
	}

	visit := &session.Visit{
		URL:   c.URL,
		Title: c.Title,
		Time:  when,
	}

	if err := store.AddVisit(context.Background(), visit); err != nil {
		return fmt.Errorf("storing visit: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"url":   visit.URL,
			"title": visit.Title,
			"ts":    visit.Time.Format(time.RFC3339),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Added visit (%s)\n", visit.Time.Format(time.RFC3339))
	fmt.Printf("  URL: %s\n", visit.URL)
	if visit.Title != "" {
		fmt.Printf("  Title: %s\n", visit.Title)
	}

	return nil
}
