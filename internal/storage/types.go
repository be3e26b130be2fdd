package storage

import "time"

// Metadata is the single index checkpoint record. It is created on the
// first full build, overwritten on every successful build or update, and
// absent before the first run. LastSessionURLs captures the URL set of the
// most recent session at checkpoint time so an incremental update can
// stitch its leading session onto the prior tail.
type Metadata struct {
	LastIndexed     time.Time `json:"lastIndexed"`
	Sessions        int       `json:"totalSessionsProcessed"`
	URLs            int       `json:"totalUrlsIndexed"`
	LastSessionURLs []string  `json:"lastSessionUrls"`
}

// Stats holds aggregate statistics about the histrail database.
type Stats struct {
	TotalVisits int64
	IndexedURLs int64
	OldestVisit time.Time
	NewestVisit time.Time
	TopDomains  []DomainCount
}

// DomainCount pairs a domain with its visit count.
type DomainCount struct {
	Domain string
	Count  int64
}
