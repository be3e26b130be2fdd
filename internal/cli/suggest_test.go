package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/histrail/internal/config"
	"github.com/runnerr0/histrail/internal/cooccur"
)

func TestSuggestCommand_RanksEntries(t *testing.T) {
	store := testStore(t)
	cfg := config.DefaultConfig()

	require.NoError(t, store.PutEntries(context.Background(), "https://a.com/", []cooccur.Entry{
		{URL: "https://b.com/", Title: "B", CoCount: 5, TotalVisits: 5, LastSeen: time.Now()},
		{URL: "https://c.com/", Title: "C", CoCount: 1, TotalVisits: 1, LastSeen: time.Now()},
	}))

	cmd := &SuggestCommand{URL: "https://a.com", globals: &GlobalFlags{}}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(cfg, store))
	})

	assert.Contains(t, out, "Suggestions for https://a.com/")
	assert.Contains(t, out, "https://b.com/")
	assert.Contains(t, out, "https://c.com/")
	// Higher co-occurrence count ranks first.
	assert.Less(t, strings.Index(out, "b.com"), strings.Index(out, "c.com"))
}

func TestSuggestCommand_NoResults(t *testing.T) {
	store := testStore(t)
	cfg := config.DefaultConfig()

	cmd := &SuggestCommand{URL: "https://unknown.com", globals: &GlobalFlags{}}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(cfg, store))
	})
	assert.Contains(t, out, "No suggestions")
}

func TestSuggestCommand_DisabledReturnsNothing(t *testing.T) {
	store := testStore(t)
	cfg := config.DefaultConfig()
	cfg.Enabled = false

	require.NoError(t, store.PutEntries(context.Background(), "https://a.com/", []cooccur.Entry{
		{URL: "https://b.com/", Title: "B", CoCount: 5, TotalVisits: 5, LastSeen: time.Now()},
	}))

	cmd := &SuggestCommand{URL: "https://a.com", globals: &GlobalFlags{}}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(cfg, store))
	})
	assert.Contains(t, out, "No suggestions")
}

func TestSuggestCommand_LimitApplies(t *testing.T) {
	store := testStore(t)
	cfg := config.DefaultConfig()

	require.NoError(t, store.PutEntries(context.Background(), "https://a.com/", []cooccur.Entry{
		{URL: "https://b.com/", Title: "B", CoCount: 3, TotalVisits: 3, LastSeen: time.Now()},
		{URL: "https://c.com/", Title: "C", CoCount: 2, TotalVisits: 2, LastSeen: time.Now()},
		{URL: "https://d.com/", Title: "D", CoCount: 1, TotalVisits: 1, LastSeen: time.Now()},
	}))

	cmd := &SuggestCommand{URL: "https://a.com", Limit: 1, globals: &GlobalFlags{}}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(cfg, store))
	})
	assert.Contains(t, out, "https://b.com/")
	assert.NotContains(t, out, "https://c.com/")
	assert.NotContains(t, out, "https://d.com/")
}

func TestSuggestCommand_JSONOutput(t *testing.T) {
	store := testStore(t)
	cfg := config.DefaultConfig()

	require.NoError(t, store.PutEntries(context.Background(), "https://a.com/", []cooccur.Entry{
		{URL: "https://b.com/", Title: "B", CoCount: 2, TotalVisits: 2, LastSeen: time.Now()},
	}))

	cmd := &SuggestCommand{URL: "https://a.com", globals: &GlobalFlags{JSON: true}}
	out := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(cfg, store))
	})
	assert.Contains(t, out, `"url": "https://a.com/"`)
	assert.Contains(t, out, `"matchCount": 2`)
	assert.Contains(t, out, "faviconUrl")
}
