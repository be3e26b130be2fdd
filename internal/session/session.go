// Package session groups a raw visit log into contiguous browsing episodes.
package session

import (
	"sort"
	"time"

	"github.com/runnerr0/histrail/internal/urlutil"
)

// Visit is a single raw history record: one (url, timestamp) pair as
// reported by the visit source. Visits are never merged before
// segmentation.
type Visit struct {
	URL   string
	Title string
	Time  time.Time
}

// Session is one contiguous browsing episode. URLs holds the distinct
// normalized URLs visited; Titles the most recently seen non-empty title
// per URL. Start and End equal the min and max visit time of the
// contributing visits.
type Session struct {
	ID     int
	URLs   map[string]struct{}
	Titles map[string]string
	Start  time.Time
	End    time.Time
}

// SortedURLs returns the session's URL set as a sorted slice.
func (s *Session) SortedURLs() []string {
	urls := make([]string, 0, len(s.URLs))
	for u := range s.URLs {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func newSession(id int, at time.Time) Session {
	return Session{
		ID:     id,
		URLs:   make(map[string]struct{}),
		Titles: make(map[string]string),
		Start:  at,
		End:    at,
	}
}

func (s *Session) add(v Visit) {
	normalized := urlutil.Normalize(v.URL)
	s.URLs[normalized] = struct{}{}
	if v.Title != "" {
		s.Titles[normalized] = v.Title
	}
	s.End = v.Time
}

// Segment partitions visits into sessions. A new session starts whenever
// the gap between a visit and the current session's end exceeds gap.
// Visits with an empty or excluded URL are dropped first; the remainder is
// sorted by time ascending (tie order is unspecified). Sessions with fewer
// than two distinct normalized URLs are discarded since they cannot yield
// a co-occurrence pair. The gap is taken as given; clamping is the
// caller's concern.
func Segment(visits []Visit, gap time.Duration) []Session {
	filtered := make([]Visit, 0, len(visits))
	for _, v := range visits {
		if v.URL == "" || urlutil.IsExcluded(v.URL) {
			continue
		}
		filtered = append(filtered, v)
	}
	if len(filtered) == 0 {
		return nil
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Time.Before(filtered[j].Time)
	})

	var sessions []Session
	current := newSession(0, filtered[0].Time)

	for _, v := range filtered {
		if v.Time.Sub(current.End) > gap {
			if len(current.URLs) >= 2 {
				sessions = append(sessions, current)
			}
			current = newSession(len(sessions), v.Time)
		}
		current.add(v)
	}

	if len(current.URLs) >= 2 {
		sessions = append(sessions, current)
	}

	return sessions
}
