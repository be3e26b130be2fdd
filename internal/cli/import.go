package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/histrail/internal/session"
	"github.com/runnerr0/histrail/internal/storage"
	"github.com/runnerr0/histrail/internal/urlutil"
)

// importRecord matches one visit in a browser history JSON export.
type importRecord struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	VisitTime int64  `json:"visitTime"` // milliseconds since epoch
}

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	if c.File == "" {
		return fmt.Errorf("--file is required for import command")
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

// executeWithStore runs the import against a provided store (used by tests).
func (c *ImportCommand) executeWithStore(store *storage.SQLiteStore) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("reading export file: %w", err)
	}

	var records []importRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing export file: %w", err)
	}

	ctx := context.Background()
	imported, skipped := 0, 0

	for _, rec := range records {
		if rec.URL == "" || urlutil.IsExcluded(rec.URL) {
			skipped++
			continue
		}

		visit := &session.Visit{
			URL:   rec.URL,
			Title: rec.Title,
			Time:  time.UnixMilli(rec.VisitTime).UTC(),
		}
		if err := store.AddVisit(ctx, visit); err != nil {
			return fmt.Errorf("storing visit %q: %w", rec.URL, err)
		}
		imported++
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"imported": imported,
			"skipped":  skipped,
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	fmt.Printf("Imported %d visits (%d skipped)\n", imported, skipped)
	return nil
}
