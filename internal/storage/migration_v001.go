package storage

import "database/sql"

// migrateV001 creates the initial histrail schema: the raw visit log, the
// serialized co-occurrence buckets, and the index checkpoint record. Every
// statement uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// Visit timestamps are stored as unix milliseconds so ordering
		// keeps sub-second resolution.
		`CREATE TABLE IF NOT EXISTS visits (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			url    TEXT NOT NULL,
			title  TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT '',
			ts_ms  INTEGER NOT NULL
		)`,

		// One row per source URL; entries is the JSON-serialized bucket,
		// sorted by URL for deterministic bytes.
		`CREATE TABLE IF NOT EXISTS cooccurrence (
			url        TEXT PRIMARY KEY,
			entries    TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS index_metadata (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_visits_ts     ON visits(ts_ms, id)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_domain ON visits(domain)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
