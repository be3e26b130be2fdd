package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/runnerr0/histrail/internal/cooccur"
	"github.com/runnerr0/histrail/internal/session"
	"github.com/runnerr0/histrail/internal/urlutil"
)

// metadataKey is the single row key for the index checkpoint.
const metadataKey = "index-metadata"

// visitBatchSize bounds how many visit rows are scanned per query so a
// large history is fetched in batches rather than one burst.
const visitBatchSize = 500

// Store defines the interface for histrail data operations.
type Store interface {
	AddVisit(ctx context.Context, v *session.Visit) error
	VisitsSince(ctx context.Context, since time.Time) ([]session.Visit, error)

	GetEntries(ctx context.Context, url string) ([]cooccur.Entry, error)
	PutEntries(ctx context.Context, url string, entries []cooccur.Entry) error
	MergeEntries(ctx context.Context, url string, entries []cooccur.Entry) error

	GetMetadata(ctx context.Context) (*Metadata, error)
	PutMetadata(ctx context.Context, meta *Metadata) error
	CountIndexedURLs(ctx context.Context) (int, error)

	ClearIndex(ctx context.Context) error
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	insertVisit *sql.Stmt
	getEntries  *sql.Stmt
	putEntries  *sql.Stmt
	getMeta     *sql.Stmt
	putMeta     *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertVisit, err = s.db.Prepare(`
		INSERT INTO visits (url, title, domain, ts_ms) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.getEntries, err = s.db.Prepare(`SELECT entries FROM cooccurrence WHERE url = ?`)
	if err != nil {
		return err
	}

	s.putEntries, err = s.db.Prepare(`
		INSERT INTO cooccurrence (url, entries, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(url) DO UPDATE SET entries = excluded.entries, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}

	s.getMeta, err = s.db.Prepare(`SELECT value FROM index_metadata WHERE key = ?`)
	if err != nil {
		return err
	}

	s.putMeta, err = s.db.Prepare(`
		INSERT INTO index_metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`)
	return err
}

// AddVisit inserts a raw visit. The domain column is populated from the
// visit URL; a zero timestamp defaults to now.
func (s *SQLiteStore) AddVisit(ctx context.Context, v *session.Visit) error {
	if v.URL == "" {
		return fmt.Errorf("visit URL is empty")
	}
	if v.Time.IsZero() {
		v.Time = time.Now()
	}

	_, err := s.insertVisit.ExecContext(ctx,
		v.URL, v.Title, urlutil.Domain(v.URL), v.Time.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

// VisitsSince returns all visits strictly newer than since, ordered by
// timestamp. Rows are scanned in batches of visitBatchSize via a keyset
// cursor to bound per-query memory.
func (s *SQLiteStore) VisitsSince(ctx context.Context, since time.Time) ([]session.Visit, error) {
	var out []session.Visit

	// The cursor starts past any row at exactly the since timestamp, so
	// the scan is strictly newer than the checkpoint.
	afterTS := since.UnixMilli()
	afterID := int64(1<<63 - 1)

	for {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, url, title, ts_ms FROM visits
			WHERE ts_ms > ? OR (ts_ms = ? AND id > ?)
			ORDER BY ts_ms, id
			LIMIT ?
		`, afterTS, afterTS, afterID, visitBatchSize)
		if err != nil {
			return nil, fmt.Errorf("query visits: %w", err)
		}

		n := 0
		for rows.Next() {
			var id, ts int64
			var v session.Visit
			if err := rows.Scan(&id, &v.URL, &v.Title, &ts); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan visit: %w", err)
			}
			v.Time = time.UnixMilli(ts).UTC()
			out = append(out, v)
			afterTS, afterID = ts, id
			n++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()

		if n < visitBatchSize {
			return out, nil
		}
	}
}

// GetEntries returns the co-occurrence bucket for url, or an empty slice
// when the URL has never been indexed.
func (s *SQLiteStore) GetEntries(ctx context.Context, url string) ([]cooccur.Entry, error) {
	var raw string
	err := s.getEntries.QueryRowContext(ctx, url).Scan(&raw)
	if err == sql.ErrNoRows {
		return []cooccur.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}

	var entries []cooccur.Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode entries for %s: %w", url, err)
	}
	return entries, nil
}

// PutEntries overwrites the full bucket for url. Entries are sorted by URL
// before serialization so identical buckets persist byte-identically.
func (s *SQLiteStore) PutEntries(ctx context.Context, url string, entries []cooccur.Entry) error {
	sorted := make([]cooccur.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })

	raw, err := json.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("encode entries for %s: %w", url, err)
	}

	if _, err := s.putEntries.ExecContext(ctx, url, string(raw)); err != nil {
		return fmt.Errorf("put entries: %w", err)
	}
	return nil
}

// MergeEntries reconciles new entries into the stored bucket for url using
// the additive co-occurrence rule. The read-modify-write is unguarded here;
// the indexer's busy flag ensures a single writer.
func (s *SQLiteStore) MergeEntries(ctx context.Context, url string, entries []cooccur.Entry) error {
	existing, err := s.GetEntries(ctx, url)
	if err != nil {
		return err
	}
	return s.PutEntries(ctx, url, cooccur.MergeEntryLists(existing, entries))
}

// GetMetadata returns the index checkpoint, or nil when absent.
func (s *SQLiteStore) GetMetadata(ctx context.Context) (*Metadata, error) {
	var raw string
	err := s.getMeta.QueryRowContext(ctx, metadataKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

// PutMetadata overwrites the index checkpoint.
func (s *SQLiteStore) PutMetadata(ctx context.Context, meta *Metadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if _, err := s.putMeta.ExecContext(ctx, metadataKey, string(raw)); err != nil {
		return fmt.Errorf("put metadata: %w", err)
	}
	return nil
}

// CountIndexedURLs returns the number of URLs with a persisted bucket.
func (s *SQLiteStore) CountIndexedURLs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cooccurrence").Scan(&n); err != nil {
		return 0, fmt.Errorf("count indexed urls: %w", err)
	}
	return n, nil
}

// ClearIndex deletes all co-occurrence buckets and the checkpoint, leaving
// the raw visit log intact. Used at the start of a full rebuild.
func (s *SQLiteStore) ClearIndex(ctx context.Context) error {
	for _, stmt := range []string{
		"DELETE FROM cooccurrence",
		"DELETE FROM index_metadata",
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear index (%s): %w", stmt, err)
		}
	}
	return nil
}

// PurgeAll deletes everything: visits, index, and metadata.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	for _, stmt := range []string{
		"DELETE FROM visits",
		"DELETE FROM cooccurrence",
		"DELETE FROM index_metadata",
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM visits").Scan(&stats.TotalVisits); err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cooccurrence").Scan(&stats.IndexedURLs); err != nil {
		return nil, fmt.Errorf("count indexed urls: %w", err)
	}

	if stats.TotalVisits > 0 {
		var oldest, newest int64
		err := s.db.QueryRowContext(ctx, "SELECT MIN(ts_ms), MAX(ts_ms) FROM visits").Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("visit time range: %w", err)
		}
		stats.OldestVisit = time.UnixMilli(oldest).UTC()
		stats.NewestVisit = time.UnixMilli(newest).UTC()
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT domain, COUNT(*) as cnt FROM visits GROUP BY domain ORDER BY cnt DESC, domain LIMIT 10",
	)
	if err != nil {
		return nil, fmt.Errorf("top domains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dc DomainCount
		if err := rows.Scan(&dc.Domain, &dc.Count); err != nil {
			return nil, err
		}
		stats.TopDomains = append(stats.TopDomains, dc)
	}

	return stats, rows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.insertVisit, s.getEntries, s.putEntries, s.getMeta, s.putMeta,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
