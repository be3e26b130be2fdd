// Package suggest ranks co-occurrence entries into related-page
// suggestions using a multi-signal weighted score with per-domain
// diversity caps.
package suggest

import (
	"math"
	"sort"
	"time"

	"github.com/runnerr0/histrail/internal/cooccur"
	"github.com/runnerr0/histrail/internal/urlutil"
)

// Weights are the four user-configurable scoring weights. They are not
// required to sum to 1.
type Weights struct {
	CoOccurrence   float64
	Recency        float64
	VisitFrequency float64
	UserAffinity   float64
}

// DefaultWeights is the stock weight mix.
var DefaultWeights = Weights{
	CoOccurrence:   0.5,
	Recency:        0.3,
	VisitFrequency: 0.1,
	UserAffinity:   0.1,
}

const (
	// DefaultMaxResults bounds a suggestion list when no limit is given.
	DefaultMaxResults = 10

	// recencyDecayDays controls the exponential recency decay:
	// exp(-days/30), roughly a 21-day half-life.
	recencyDecayDays = 30.0

	// visitBoostDamp dampens the raw visit-frequency signal before the
	// external weight is applied.
	visitBoostDamp = 0.2

	// affinityBoost is the flat bonus for liked URLs.
	affinityBoost = 2.0

	// Domain diversity caps: candidates sharing the query URL's domain
	// get more room than unrelated domains.
	sameDomainCap  = 5
	otherDomainCap = 3
)

// Suggestion is one ranked related-page candidate. Derived per query and
// never persisted.
type Suggestion struct {
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	MatchCount int     `json:"matchCount"`
	Score      float64 `json:"score"`
	FaviconURL string  `json:"faviconUrl"`
}

// Options carries the scoring parameters and filter sets. The zero value
// means defaults: DefaultWeights, DefaultMaxResults, no filters. A
// non-nil Weights is used verbatim, even when every weight is zero.
type Options struct {
	Weights        *Weights
	MaxResults     int
	BlockedURLs    map[string]struct{}
	BlockedDomains map[string]struct{}
	LikedURLs      map[string]struct{}
}

func (o *Options) fill() {
	if o.Weights == nil {
		w := DefaultWeights
		o.Weights = &w
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
}

type scoredEntry struct {
	entry cooccur.Entry
	score float64
}

// Rank scores the co-occurrence bucket of currentURL and returns the top
// suggestions. It is pure and read-only: no input is mutated.
//
// The composite score per entry is
//
//	log2(1+coCount)*w.CoOccurrence + exp(-daysSince/30)*w.Recency +
//	log2(1+totalVisits)*0.2*w.VisitFrequency + (liked? 2.0 : 0)*w.UserAffinity
//
// followed by a descending sort (tie order unspecified) and a diversity
// walk capping each domain at 3 results, or 5 when it matches the query
// URL's own domain.
func Rank(now time.Time, currentURL string, entries []cooccur.Entry, opts Options) []Suggestion {
	opts.fill()

	if len(entries) == 0 {
		return []Suggestion{}
	}

	currentNormalized := urlutil.Normalize(currentURL)
	currentDomain := urlutil.Domain(currentURL)

	scored := make([]scoredEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.URL == currentNormalized {
			continue
		}
		if _, blocked := opts.BlockedURLs[entry.URL]; blocked {
			continue
		}
		if _, blocked := opts.BlockedDomains[urlutil.Domain(entry.URL)]; blocked {
			continue
		}

		freqScore := math.Log2(1 + float64(entry.CoCount))

		daysSince := now.Sub(entry.LastSeen).Hours() / 24
		recencyScore := math.Exp(-daysSince / recencyDecayDays)

		visitBoost := math.Log2(1+float64(entry.TotalVisits)) * visitBoostDamp

		var affinity float64
		if _, liked := opts.LikedURLs[entry.URL]; liked {
			affinity = affinityBoost
		}

		score := freqScore*opts.Weights.CoOccurrence +
			recencyScore*opts.Weights.Recency +
			visitBoost*opts.Weights.VisitFrequency +
			affinity*opts.Weights.UserAffinity

		scored = append(scored, scoredEntry{entry: entry, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	// Diversity pass: skipped candidates do not count against any cap.
	domainCount := make(map[string]int)
	diverse := make([]scoredEntry, 0, opts.MaxResults)
	for _, item := range scored {
		domain := urlutil.Domain(item.entry.URL)
		limit := otherDomainCap
		if domain == currentDomain {
			limit = sameDomainCap
		}
		if domainCount[domain] < limit {
			diverse = append(diverse, item)
			domainCount[domain]++
		}
		if len(diverse) >= opts.MaxResults {
			break
		}
	}

	suggestions := make([]Suggestion, len(diverse))
	for i, item := range diverse {
		suggestions[i] = Suggestion{
			URL:        item.entry.URL,
			Title:      item.entry.Title,
			MatchCount: item.entry.CoCount,
			Score:      item.score,
			FaviconURL: urlutil.FaviconURL(item.entry.URL, urlutil.DefaultFaviconSize),
		}
	}
	return suggestions
}
