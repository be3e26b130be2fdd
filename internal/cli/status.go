package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/runnerr0/histrail/internal/config"
	"github.com/runnerr0/histrail/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	Enabled           bool              `json:"enabled"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	TotalVisits       int64             `json:"total_visits"`
	IndexedURLs       int64             `json:"indexed_urls"`
	SessionsProcessed int               `json:"sessions_processed"`
	LastIndexed       string            `json:"last_indexed,omitempty"`
	OldestVisit       string            `json:"oldest_visit,omitempty"`
	NewestVisit       string            `json:"newest_visit,omitempty"`
	TopDomains        []domainCountJSON `json:"top_domains"`
	DaemonRunning     bool              `json:"daemon_running"`
}

type domainCountJSON struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, _, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(cfg, store, db)
}

// executeWithStore runs status against a provided store and db (for testing).
func (c *StatusCommand) executeWithStore(cfg *config.Config, store *storage.SQLiteStore, db *sql.DB) error {
	ctx := context.Background()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	meta, err := store.GetMetadata(ctx)
	if err != nil {
		return fmt.Errorf("get metadata: %w", err)
	}

	dbPath, _ := cfg.DBPath()
	dbSize := getDatabaseSize(db, dbPath)
	daemonRunning := checkDaemon(cfg)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(cfg, stats, meta, dbPath, dbSize, daemonRunning)
	}
	return c.printStatusHuman(cfg, stats, meta, dbPath, dbSize, daemonRunning)
}

func (c *StatusCommand) printStatusHuman(cfg *config.Config, stats *storage.Stats, meta *storage.Metadata, dbPath string, dbSize int64, daemonRunning bool) error {
	fmt.Println("Histrail Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", c.version)
	if cfg.Enabled {
		fmt.Println("Enabled:       yes")
	} else {
		fmt.Println("Enabled:       no")
	}
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(dbSize))
	fmt.Printf("Visits:        %s\n", formatNumber(stats.TotalVisits))
	fmt.Printf("Indexed URLs:  %s\n", formatNumber(stats.IndexedURLs))

	if meta != nil {
		fmt.Printf("Sessions:      %s\n", formatNumber(int64(meta.Sessions)))
		fmt.Printf("Last indexed:  %s\n", meta.LastIndexed.Local().Format("2006-01-02 15:04"))
	} else {
		fmt.Println("Last indexed:  never")
	}

	if stats.TotalVisits > 0 {
		fmt.Printf("Oldest visit:  %s\n", stats.OldestVisit.Local().Format("2006-01-02"))
		fmt.Printf("Newest visit:  %s\n", stats.NewestVisit.Local().Format("2006-01-02"))
	}

	if len(stats.TopDomains) > 0 {
		fmt.Println()
		fmt.Println("Top Domains:")
		for _, d := range stats.TopDomains {
			fmt.Printf("  %-20s %s\n", d.Domain, formatNumber(d.Count))
		}
	}

	fmt.Println()
	if daemonRunning {
		fmt.Println("Daemon:        running")
	} else {
		fmt.Println("Daemon:        not running")
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(cfg *config.Config, stats *storage.Stats, meta *storage.Metadata, dbPath string, dbSize int64, daemonRunning bool) error {
	out := statusJSON{
		Version:           c.version,
		Enabled:           cfg.Enabled,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		TotalVisits:       stats.TotalVisits,
		IndexedURLs:       stats.IndexedURLs,
		TopDomains:        make([]domainCountJSON, len(stats.TopDomains)),
		DaemonRunning:     daemonRunning,
	}

	if meta != nil {
		out.SessionsProcessed = meta.Sessions
		out.LastIndexed = meta.LastIndexed.UTC().Format(time.RFC3339)
	}
	if stats.TotalVisits > 0 {
		out.OldestVisit = stats.OldestVisit.UTC().Format(time.RFC3339)
		out.NewestVisit = stats.NewestVisit.UTC().Format(time.RFC3339)
	}

	for i, d := range stats.TopDomains {
		out.TopDomains[i] = domainCountJSON{Domain: d.Domain, Count: d.Count}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// checkDaemon attempts an HTTP GET to the configured daemon endpoint.
// Returns true if the daemon responds within 1 second.
func checkDaemon(cfg *config.Config) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s:%d/healthz", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
