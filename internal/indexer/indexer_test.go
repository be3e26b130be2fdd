package indexer

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/histrail/internal/cooccur"
	"github.com/runnerr0/histrail/internal/session"
	"github.com/runnerr0/histrail/internal/storage"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{Enabled: true, Gap: 30 * time.Minute, MaxHistoryDays: 90}
}

func openTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// newTestIndexer wires an Indexer over an in-memory store, with the store
// itself acting as the visit source, and a frozen clock.
func newTestIndexer(t *testing.T, store *storage.SQLiteStore, clock time.Time) *Indexer {
	t.Helper()
	ix := New(store, store, nil)
	ix.now = func() time.Time { return clock }
	return ix
}

func addVisits(t *testing.T, store *storage.SQLiteStore, visits ...session.Visit) {
	t.Helper()
	ctx := context.Background()
	for i := range visits {
		require.NoError(t, store.AddVisit(ctx, &visits[i]))
	}
}

func entryFor(t *testing.T, store *storage.SQLiteStore, src, dst string) cooccur.Entry {
	t.Helper()
	entries, err := store.GetEntries(context.Background(), src)
	require.NoError(t, err)
	for _, e := range entries {
		if e.URL == dst {
			return e
		}
	}
	t.Fatalf("no entry %s -> %s", src, dst)
	return cooccur.Entry{}
}

func TestRun_FullBuild(t *testing.T) {
	store := openTestStore(t)
	now := t0.Add(time.Hour)
	ix := newTestIndexer(t, store, now)

	addVisits(t, store,
		session.Visit{URL: "https://a.com", Title: "A", Time: t0},
		session.Visit{URL: "https://b.com", Title: "B", Time: t0.Add(time.Minute)},
	)

	require.NoError(t, ix.Run(context.Background(), testConfig(), true))

	e := entryFor(t, store, "https://a.com/", "https://b.com/")
	assert.Equal(t, 1, e.CoCount)
	assert.Equal(t, "B", e.Title)

	meta, err := store.GetMetadata(context.Background())
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, now, meta.LastIndexed)
	assert.Equal(t, 1, meta.Sessions)
	assert.Equal(t, 2, meta.URLs)
	assert.Equal(t, []string{"https://a.com/", "https://b.com/"}, meta.LastSessionURLs)
}

func TestRun_FirstRunIsFullEvenWithoutFlag(t *testing.T) {
	store := openTestStore(t)
	ix := newTestIndexer(t, store, t0.Add(time.Hour))

	addVisits(t, store,
		session.Visit{URL: "https://a.com", Time: t0},
		session.Visit{URL: "https://b.com", Time: t0.Add(time.Minute)},
	)

	// No checkpoint yet, so an incremental trigger falls back to full.
	require.NoError(t, ix.Run(context.Background(), testConfig(), false))

	meta, err := store.GetMetadata(context.Background())
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 2, meta.URLs)
}

func TestRun_FullBuild_NoVisits(t *testing.T) {
	store := openTestStore(t)
	now := t0
	ix := newTestIndexer(t, store, now)

	require.NoError(t, ix.Run(context.Background(), testConfig(), true))

	meta, err := store.GetMetadata(context.Background())
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, now, meta.LastIndexed)
	assert.Zero(t, meta.Sessions)
	assert.Zero(t, meta.URLs)
	assert.Empty(t, meta.LastSessionURLs)
}

func TestRun_Disabled(t *testing.T) {
	store := openTestStore(t)
	ix := newTestIndexer(t, store, t0)

	cfg := testConfig()
	cfg.Enabled = false
	require.NoError(t, ix.Run(context.Background(), cfg, true))

	meta, err := store.GetMetadata(context.Background())
	require.NoError(t, err)
	assert.Nil(t, meta, "disabled indexer must not touch the store")
}

func TestRun_IncrementalMergesNewSessions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Full build over the first session.
	addVisits(t, store,
		session.Visit{URL: "https://a.com", Time: t0},
		session.Visit{URL: "https://b.com", Time: t0.Add(time.Minute)},
	)
	checkpoint := t0.Add(10 * time.Minute)
	ix := newTestIndexer(t, store, checkpoint)
	require.NoError(t, ix.Run(ctx, testConfig(), true))

	// A later, disjoint session lands after the checkpoint; its distance
	// from the checkpoint exceeds the gap so no stitching happens.
	addVisits(t, store,
		session.Visit{URL: "https://a.com", Time: t0.Add(2 * time.Hour)},
		session.Visit{URL: "https://c.com", Time: t0.Add(2*time.Hour + time.Minute)},
	)
	ix.now = func() time.Time { return t0.Add(3 * time.Hour) }
	require.NoError(t, ix.Run(ctx, testConfig(), false))

	// a<->b from the full build, a<->c from the update.
	assert.Equal(t, 1, entryFor(t, store, "https://a.com/", "https://b.com/").CoCount)
	assert.Equal(t, 1, entryFor(t, store, "https://a.com/", "https://c.com/").CoCount)

	meta, err := store.GetMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Sessions)
	assert.Equal(t, 2, meta.URLs, "url count is carried forward, not recomputed")
	assert.Equal(t, []string{"https://a.com/", "https://c.com/"}, meta.LastSessionURLs)
}

func TestRun_IncrementalStitchesTailSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	addVisits(t, store,
		session.Visit{URL: "https://a.com", Time: t0},
		session.Visit{URL: "https://b.com", Time: t0.Add(time.Minute)},
	)
	checkpoint := t0.Add(2 * time.Minute)
	ix := newTestIndexer(t, store, checkpoint)
	require.NoError(t, ix.Run(ctx, testConfig(), true))

	// New visits begin within one gap of the checkpoint: the same episode
	// continued. c and d must gain edges to a and b via stitching.
	addVisits(t, store,
		session.Visit{URL: "https://c.com", Time: checkpoint.Add(5 * time.Minute)},
		session.Visit{URL: "https://d.com", Time: checkpoint.Add(6 * time.Minute)},
	)
	ix.now = func() time.Time { return checkpoint.Add(time.Hour) }
	require.NoError(t, ix.Run(ctx, testConfig(), false))

	assert.Equal(t, 1, entryFor(t, store, "https://a.com/", "https://c.com/").CoCount)
	assert.Equal(t, 1, entryFor(t, store, "https://b.com/", "https://d.com/").CoCount)
	assert.Equal(t, 1, entryFor(t, store, "https://c.com/", "https://a.com/").CoCount)

	// The pre-existing a<->b edge also picks up the stitched session.
	assert.Equal(t, 2, entryFor(t, store, "https://a.com/", "https://b.com/").CoCount)
}

func TestRun_IncrementalNoNewVisitsLeavesMetadata(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	addVisits(t, store,
		session.Visit{URL: "https://a.com", Time: t0},
		session.Visit{URL: "https://b.com", Time: t0.Add(time.Minute)},
	)
	checkpoint := t0.Add(time.Hour)
	ix := newTestIndexer(t, store, checkpoint)
	require.NoError(t, ix.Run(ctx, testConfig(), true))

	before, err := store.GetMetadata(ctx)
	require.NoError(t, err)

	ix.now = func() time.Time { return checkpoint.Add(time.Hour) }
	require.NoError(t, ix.Run(ctx, testConfig(), false))

	after, err := store.GetMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_DropsConcurrentTrigger(t *testing.T) {
	store := openTestStore(t)

	blocked := make(chan struct{})
	release := make(chan struct{})
	src := &blockingSource{store: store, blocked: blocked, release: release}

	ix := New(store, src, nil)
	ix.now = func() time.Time { return t0 }

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = ix.Run(context.Background(), testConfig(), true)
	}()

	<-blocked
	assert.True(t, ix.Busy())
	// Second trigger while the first is in flight: dropped, no error.
	require.NoError(t, ix.Run(context.Background(), testConfig(), true))

	close(release)
	wg.Wait()
	assert.False(t, ix.Busy())
}

func TestRun_SourceFailureAbortsWithoutCheckpoint(t *testing.T) {
	store := openTestStore(t)
	ix := New(store, failingSource{}, nil)
	ix.now = func() time.Time { return t0 }

	err := ix.Run(context.Background(), testConfig(), true)
	require.Error(t, err)
	assert.False(t, ix.Busy(), "busy flag must clear on failure")

	meta, err := store.GetMetadata(context.Background())
	require.NoError(t, err)
	assert.Nil(t, meta, "no metadata commit on the failure path")
}

// blockingSource parks the fetch until released, to hold the busy flag.
type blockingSource struct {
	store   *storage.SQLiteStore
	blocked chan struct{}
	release chan struct{}
}

func (s *blockingSource) VisitsSince(ctx context.Context, since time.Time) ([]session.Visit, error) {
	close(s.blocked)
	<-s.release
	return s.store.VisitsSince(ctx, since)
}

type failingSource struct{}

func (failingSource) VisitsSince(context.Context, time.Time) ([]session.Visit, error) {
	return nil, errors.New("history source unavailable")
}
