package cooccur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/histrail/internal/session"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func makeSession(id int, end time.Time, urls ...string) session.Session {
	s := session.Session{
		ID:     id,
		URLs:   make(map[string]struct{}),
		Titles: make(map[string]string),
		Start:  end.Add(-time.Minute),
		End:    end,
	}
	for _, u := range urls {
		s.URLs[u] = struct{}{}
	}
	return s
}

func findEntry(t *testing.T, entries []Entry, url string) Entry {
	t.Helper()
	for _, e := range entries {
		if e.URL == url {
			return e
		}
	}
	t.Fatalf("no entry for %s", url)
	return Entry{}
}

func TestBuild_DirectionalPairs(t *testing.T) {
	idx := Build([]session.Session{makeSession(0, t0, "https://a.com", "https://b.com", "https://c.com")})

	// Every unordered pair yields two directional entries with equal counts.
	assert.Equal(t, 3, idx.Size())
	for _, pair := range [][2]string{
		{"https://a.com", "https://b.com"},
		{"https://a.com", "https://c.com"},
		{"https://b.com", "https://c.com"},
	} {
		ab := findEntry(t, idx.Entries(pair[0]), pair[1])
		ba := findEntry(t, idx.Entries(pair[1]), pair[0])
		assert.Equal(t, 1, ab.CoCount)
		assert.Equal(t, ab.CoCount, ba.CoCount)
		assert.Equal(t, t0, ab.LastSeen)
	}
}

func TestAddSession_IncrementsExisting(t *testing.T) {
	idx := New()
	idx.AddSession(makeSession(0, t0, "https://a.com", "https://b.com"))
	idx.AddSession(makeSession(1, t0.Add(time.Hour), "https://a.com", "https://b.com"))

	e := findEntry(t, idx.Entries("https://a.com"), "https://b.com")
	assert.Equal(t, 2, e.CoCount)
	assert.Equal(t, 2, e.TotalVisits)
	assert.Equal(t, t0.Add(time.Hour), e.LastSeen)
}

func TestAddSession_LastSeenIsMax(t *testing.T) {
	idx := New()
	idx.AddSession(makeSession(0, t0.Add(time.Hour), "https://a.com", "https://b.com"))
	idx.AddSession(makeSession(1, t0, "https://a.com", "https://b.com")) // older session second

	e := findEntry(t, idx.Entries("https://a.com"), "https://b.com")
	assert.Equal(t, t0.Add(time.Hour), e.LastSeen)
}

func TestAddSession_TitleRules(t *testing.T) {
	s1 := makeSession(0, t0, "https://a.com", "https://b.com")
	s1.Titles["https://b.com"] = "Real Title"

	idx := New()
	idx.AddSession(s1)
	e := findEntry(t, idx.Entries("https://a.com"), "https://b.com")
	assert.Equal(t, "Real Title", e.Title)

	// A session without a title for b must not clobber the real title.
	idx.AddSession(makeSession(1, t0.Add(time.Hour), "https://a.com", "https://b.com"))
	e = findEntry(t, idx.Entries("https://a.com"), "https://b.com")
	assert.Equal(t, "Real Title", e.Title)

	// Missing title on first sight falls back to the URL itself.
	c := findEntry(t, idx.Entries("https://b.com"), "https://a.com")
	assert.Equal(t, "https://a.com", c.Title)
}

func TestMerge_EqualsOneShotBuild(t *testing.T) {
	sessions := []session.Session{
		makeSession(0, t0, "https://a.com", "https://b.com"),
		makeSession(1, t0.Add(time.Hour), "https://b.com", "https://c.com", "https://a.com"),
		makeSession(2, t0.Add(2*time.Hour), "https://a.com", "https://c.com"),
	}

	oneShot := Build(sessions)

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}}
	for _, order := range orders {
		merged := New()
		for _, i := range order {
			merged.Merge(Build([]session.Session{sessions[i]}))
		}

		require.Equal(t, oneShot.Size(), merged.Size())
		for _, url := range oneShot.URLs() {
			want := oneShot.Entries(url)
			got := merged.Entries(url)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].URL, got[i].URL)
				assert.Equal(t, want[i].CoCount, got[i].CoCount, "coCount for %s -> %s", url, want[i].URL)
				assert.Equal(t, want[i].TotalVisits, got[i].TotalVisits)
				assert.Equal(t, want[i].LastSeen, got[i].LastSeen)
			}
		}
	}
}

func TestMergeEntryLists(t *testing.T) {
	existing := []Entry{
		{URL: "https://b.com", Title: "B", CoCount: 2, TotalVisits: 3, LastSeen: t0},
	}
	incoming := []Entry{
		{URL: "https://b.com", Title: "B New", CoCount: 1, TotalVisits: 1, LastSeen: t0.Add(time.Hour)},
		{URL: "https://c.com", Title: "C", CoCount: 1, TotalVisits: 1, LastSeen: t0},
	}

	merged := MergeEntryLists(existing, incoming)
	require.Len(t, merged, 2)

	b := findEntry(t, merged, "https://b.com")
	assert.Equal(t, 3, b.CoCount)
	assert.Equal(t, 4, b.TotalVisits)
	assert.Equal(t, t0.Add(time.Hour), b.LastSeen)
	assert.Equal(t, "B New", b.Title)

	c := findEntry(t, merged, "https://c.com")
	assert.Equal(t, 1, c.CoCount)
}

func TestMergeEntryLists_URLTitleDoesNotOverwrite(t *testing.T) {
	existing := []Entry{
		{URL: "https://b.com", Title: "Real", CoCount: 1, TotalVisits: 1, LastSeen: t0},
	}
	incoming := []Entry{
		// Title equal to the URL is the fallback form; it must not clobber.
		{URL: "https://b.com", Title: "https://b.com", CoCount: 1, TotalVisits: 1, LastSeen: t0},
	}
	merged := MergeEntryLists(existing, incoming)
	assert.Equal(t, "Real", merged[0].Title)
	assert.Equal(t, 2, merged[0].CoCount)
}

func TestEntries_SortedAndAbsent(t *testing.T) {
	idx := Build([]session.Session{makeSession(0, t0, "https://z.com", "https://a.com", "https://m.com")})

	entries := idx.Entries("https://z.com")
	require.Len(t, entries, 2)
	assert.Equal(t, "https://a.com", entries[0].URL)
	assert.Equal(t, "https://m.com", entries[1].URL)

	assert.Nil(t, idx.Entries("https://unknown.com"))
}
