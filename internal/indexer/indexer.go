// Package indexer sequences fetch, segment, build/merge, persist, and
// checkpoint for both full rebuilds and incremental updates.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/runnerr0/histrail/internal/cooccur"
	"github.com/runnerr0/histrail/internal/session"
	"github.com/runnerr0/histrail/internal/storage"
)

// VisitSource yields visits strictly newer than a checkpoint. Visits may
// arrive unsorted; the segmenter sorts them.
type VisitSource interface {
	VisitsSince(ctx context.Context, since time.Time) ([]session.Visit, error)
}

// IndexStore is the slice of the persistent store the indexer needs.
type IndexStore interface {
	PutEntries(ctx context.Context, url string, entries []cooccur.Entry) error
	MergeEntries(ctx context.Context, url string, entries []cooccur.Entry) error
	GetMetadata(ctx context.Context) (*storage.Metadata, error)
	PutMetadata(ctx context.Context, meta *storage.Metadata) error
	ClearIndex(ctx context.Context) error
}

// Config carries the per-run settings derived from user preferences.
type Config struct {
	Enabled        bool
	Gap            time.Duration
	MaxHistoryDays int
}

// Indexer owns the build/update lifecycle. At most one build or update is
// in flight process-wide: concurrent triggers are dropped, not queued.
type Indexer struct {
	store  IndexStore
	source VisitSource
	log    *slog.Logger
	busy   atomic.Bool
	now    func() time.Time
}

// New creates an Indexer over the given store and visit source.
func New(store IndexStore, source VisitSource, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{store: store, source: source, log: log, now: time.Now}
}

// Busy reports whether a build or update is currently in flight.
func (ix *Indexer) Busy() bool {
	return ix.busy.Load()
}

// Run performs a full rebuild when full is set or no checkpoint exists,
// otherwise an incremental update. Disabled preferences and re-entrant
// triggers are skipped silently. Failures abort the run without committing
// metadata; buckets persisted before the failure remain.
func (ix *Indexer) Run(ctx context.Context, cfg Config, full bool) error {
	if !cfg.Enabled {
		ix.log.Debug("indexing disabled, skipping")
		return nil
	}
	if !ix.busy.CompareAndSwap(false, true) {
		ix.log.Info("indexing already in progress, skipping trigger")
		return nil
	}
	defer ix.busy.Store(false)

	meta, err := ix.store.GetMetadata(ctx)
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}

	if full || meta == nil || meta.LastIndexed.IsZero() {
		return ix.fullBuild(ctx, cfg)
	}
	return ix.incrementalUpdate(ctx, cfg, meta)
}

// fullBuild discards all persisted index state and reconstructs it from
// the complete lookback window.
func (ix *Indexer) fullBuild(ctx context.Context, cfg Config) error {
	ix.log.Info("starting full index build")

	if err := ix.store.ClearIndex(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	since := ix.now().Add(-time.Duration(cfg.MaxHistoryDays) * 24 * time.Hour)
	visits, err := ix.source.VisitsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("fetch visits: %w", err)
	}
	ix.log.Info("fetched history visits", "count", len(visits))

	if len(visits) == 0 {
		return ix.store.PutMetadata(ctx, &storage.Metadata{
			LastIndexed:     ix.now(),
			LastSessionURLs: []string{},
		})
	}

	sessions := session.Segment(visits, cfg.Gap)
	ix.log.Info("segmented visits", "sessions", len(sessions))

	idx := cooccur.Build(sessions)
	for _, url := range idx.URLs() {
		if err := ix.store.PutEntries(ctx, url, idx.Entries(url)); err != nil {
			return fmt.Errorf("persist bucket %s: %w", url, err)
		}
	}

	lastURLs := []string{}
	if len(sessions) > 0 {
		lastURLs = sessions[len(sessions)-1].SortedURLs()
	}
	if err := ix.store.PutMetadata(ctx, &storage.Metadata{
		LastIndexed:     ix.now(),
		Sessions:        len(sessions),
		URLs:            idx.Size(),
		LastSessionURLs: lastURLs,
	}); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	ix.log.Info("full index build complete", "urls", idx.Size(), "sessions", len(sessions))
	return nil
}

// incrementalUpdate processes only visits newer than the checkpoint,
// stitching the leading new session onto the checkpointed tail session
// when they fall within one gap of each other.
func (ix *Indexer) incrementalUpdate(ctx context.Context, cfg Config, meta *storage.Metadata) error {
	ix.log.Info("starting incremental index update")

	visits, err := ix.source.VisitsSince(ctx, meta.LastIndexed)
	if err != nil {
		return fmt.Errorf("fetch visits: %w", err)
	}
	if len(visits) == 0 {
		ix.log.Info("no new visits since last index")
		return nil
	}

	sessions := session.Segment(visits, cfg.Gap)
	if len(sessions) == 0 {
		ix.log.Info("no new sessions to process")
		return nil
	}

	toProcess := sessions
	if len(meta.LastSessionURLs) > 0 && sessions[0].Start.Sub(meta.LastIndexed) < cfg.Gap {
		stitched := stitchSessions(meta, sessions[0])
		if err := ix.persistPartial(ctx, cooccur.Build([]session.Session{stitched})); err != nil {
			return err
		}
		toProcess = sessions[1:]
	}

	if len(toProcess) > 0 {
		if err := ix.persistPartial(ctx, cooccur.Build(toProcess)); err != nil {
			return err
		}
	}

	last := sessions[len(sessions)-1]
	if err := ix.store.PutMetadata(ctx, &storage.Metadata{
		LastIndexed: ix.now(),
		Sessions:    meta.Sessions + len(sessions),
		// URL count is carried forward, not recomputed; an exact count
		// would require scanning every persisted bucket.
		URLs:            meta.URLs,
		LastSessionURLs: last.SortedURLs(),
	}); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	ix.log.Info("incremental update complete", "newSessions", len(sessions))
	return nil
}

// stitchSessions synthesizes a pseudo-session spanning the full-build/
// incremental-update boundary so co-occurrence edges across the checkpoint
// are not lost. The sentinel ID marks it as synthetic.
func stitchSessions(meta *storage.Metadata, first session.Session) session.Session {
	merged := session.Session{
		ID:     -1,
		URLs:   make(map[string]struct{}, len(meta.LastSessionURLs)+len(first.URLs)),
		Titles: make(map[string]string, len(first.Titles)),
		Start:  meta.LastIndexed,
		End:    first.End,
	}
	for _, u := range meta.LastSessionURLs {
		merged.URLs[u] = struct{}{}
	}
	for u := range first.URLs {
		merged.URLs[u] = struct{}{}
	}
	for u, title := range first.Titles {
		merged.Titles[u] = title
	}
	return merged
}

// persistPartial merges a freshly built partial index into the persisted
// buckets.
func (ix *Indexer) persistPartial(ctx context.Context, partial *cooccur.Index) error {
	for _, url := range partial.URLs() {
		if err := ix.store.MergeEntries(ctx, url, partial.Entries(url)); err != nil {
			return fmt.Errorf("merge bucket %s: %w", url, err)
		}
	}
	return nil
}
