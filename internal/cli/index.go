package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/histrail/internal/config"
	"github.com/runnerr0/histrail/internal/indexer"
	"github.com/runnerr0/histrail/internal/storage"
)

// Execute implements the go-flags Commander interface for IndexCommand.
func (c *IndexCommand) Execute(args []string) error {
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

// executeWithStore runs one index pass against a provided store (used by tests).
func (c *IndexCommand) executeWithStore(cfg *config.Config, store *storage.SQLiteStore) error {
	ctx := context.Background()

	ix := indexer.New(store, store, nil)
	icfg := indexer.Config{
		Enabled:        cfg.Enabled,
		Gap:            cfg.Gap(),
		MaxHistoryDays: cfg.MaxHistoryDays,
	}

	if !cfg.Enabled {
		fmt.Fprintln(os.Stderr, "histrail is disabled in config; nothing to do")
		return nil
	}

	start := time.Now()
	if err := ix.Run(ctx, icfg, c.Full); err != nil {
		return fmt.Errorf("index run: %w", err)
	}
	elapsed := time.Since(start)

	meta, err := store.GetMetadata(ctx)
	if err != nil {
		return fmt.Errorf("get metadata: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"full":       c.Full,
			"elapsed_ms": elapsed.Milliseconds(),
		}
		if meta != nil {
			out["sessions_processed"] = meta.Sessions
			out["urls_indexed"] = meta.URLs
			out["last_indexed"] = meta.LastIndexed.UTC().Format(time.RFC3339)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	mode := "incremental update"
	if c.Full {
		mode = "full rebuild"
	}
	fmt.Printf("Index %s finished in %s\n", mode, elapsed.Round(time.Millisecond))
	if meta != nil {
		fmt.Printf("  Sessions: %d\n", meta.Sessions)
		fmt.Printf("  URLs:     %d\n", meta.URLs)
	}

	return nil
}
