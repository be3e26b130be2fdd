// Package cooccur builds and merges the co-occurrence index: an inverted
// mapping from each URL to the URLs visited in the same sessions, with
// frequency counts and recency.
package cooccur

import (
	"sort"
	"time"

	"github.com/runnerr0/histrail/internal/session"
)

// Entry describes one URL co-visited with a source URL. Entries are
// directional: the same pair (A, B) is recorded once under A's bucket and
// once under B's. Counts only grow, and only through merges; the
// suggestion engine treats entries as read-only.
type Entry struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	CoCount     int       `json:"coCount"`
	TotalVisits int       `json:"totalVisits"`
	LastSeen    time.Time `json:"lastSeen"`
}

// Index maps each URL to its bucket of co-occurrence entries. An Index is
// exclusively owned by the build that created it; readers go through the
// persisted store, never through a live Index.
type Index struct {
	buckets map[string]map[string]Entry
}

// New returns an empty index.
func New() *Index {
	return &Index{buckets: make(map[string]map[string]Entry)}
}

// Build constructs an index from scratch out of the given sessions.
func Build(sessions []session.Session) *Index {
	idx := New()
	for _, s := range sessions {
		idx.AddSession(s)
	}
	return idx
}

// AddSession records every ordered pair of distinct URLs in the session.
// Used both during full builds and for the partial indices of incremental
// updates.
func (idx *Index) AddSession(s session.Session) {
	urls := s.SortedURLs()

	for i, a := range urls {
		bucket, ok := idx.buckets[a]
		if !ok {
			bucket = make(map[string]Entry)
			idx.buckets[a] = bucket
		}

		for j, b := range urls {
			if i == j {
				continue
			}
			title := s.Titles[b]
			if existing, ok := bucket[b]; ok {
				existing.CoCount++
				existing.TotalVisits++
				if s.End.After(existing.LastSeen) {
					existing.LastSeen = s.End
				}
				// A URL-as-title fallback never overwrites a real title.
				if title != "" && title != b {
					existing.Title = title
				}
				bucket[b] = existing
			} else {
				if title == "" {
					title = b
				}
				bucket[b] = Entry{
					URL:         b,
					Title:       title,
					CoCount:     1,
					TotalVisits: 1,
					LastSeen:    s.End,
				}
			}
		}
	}
}

// Merge folds a partial index into idx. Counts are summed and LastSeen
// maxed, so aggregate counts are independent of merge order; title
// tie-breaks follow last-write.
func (idx *Index) Merge(partial *Index) {
	for url, partialBucket := range partial.buckets {
		bucket, ok := idx.buckets[url]
		if !ok {
			bucket = make(map[string]Entry)
			idx.buckets[url] = bucket
		}
		for coURL, incoming := range partialBucket {
			bucket[coURL] = mergeEntry(bucket[coURL], incoming, coURL)
		}
	}
}

// mergeEntry applies the additive reconciliation rule. A zero-valued
// existing entry (CoCount == 0) means the incoming entry is new.
func mergeEntry(existing, incoming Entry, coURL string) Entry {
	if existing.CoCount == 0 {
		return incoming
	}
	existing.CoCount += incoming.CoCount
	existing.TotalVisits += incoming.TotalVisits
	if incoming.LastSeen.After(existing.LastSeen) {
		existing.LastSeen = incoming.LastSeen
	}
	if incoming.Title != "" && incoming.Title != coURL {
		existing.Title = incoming.Title
	}
	return existing
}

// MergeEntryLists reconciles a stored bucket with newly built entries
// using the same additive rule as Merge. The result is sorted by URL so
// persisting it is deterministic. Used by the store's read-modify-write
// merge during incremental updates.
func MergeEntryLists(existing, incoming []Entry) []Entry {
	merged := make(map[string]Entry, len(existing)+len(incoming))
	for _, e := range existing {
		merged[e.URL] = e
	}
	for _, e := range incoming {
		merged[e.URL] = mergeEntry(merged[e.URL], e, e.URL)
	}
	return sortEntries(merged)
}

// Entries returns the bucket for url sorted by URL, or nil when absent.
func (idx *Index) Entries(url string) []Entry {
	bucket, ok := idx.buckets[url]
	if !ok {
		return nil
	}
	return sortEntries(bucket)
}

// URLs returns every indexed source URL in sorted order.
func (idx *Index) URLs() []string {
	urls := make([]string, 0, len(idx.buckets))
	for u := range idx.buckets {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Size is the number of indexed source URLs.
func (idx *Index) Size() int {
	return len(idx.buckets)
}

func sortEntries(bucket map[string]Entry) []Entry {
	entries := make([]Entry, 0, len(bucket))
	for _, e := range bucket {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].URL < entries[j].URL })
	return entries
}
