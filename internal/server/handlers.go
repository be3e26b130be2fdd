package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/runnerr0/histrail/internal/suggest"
	"github.com/runnerr0/histrail/internal/urlutil"
)

type suggestionsResponse struct {
	URL         string               `json:"url"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

type statusResponse struct {
	Enabled              bool   `json:"enabled"`
	TotalURLsIndexed     int    `json:"totalUrlsIndexed"`
	TotalSessionsIndexed int    `json:"totalSessionsProcessed"`
	LastIndexedTimestamp string `json:"lastIndexedTimestamp"`
	IsIndexing           bool   `json:"isIndexing"`
}

type preferenceRequest struct {
	URL string `json:"url" binding:"required"`
}

type preferenceAction int

const (
	likeAction preferenceAction = iota
	unlikeAction
	blockAction
	unblockAction
)

// getSuggestions ranks co-occurring pages for the given URL. Results are
// cached per normalized URL unless an explicit limit overrides the
// configured maximum.
func (s *Server) getSuggestions(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return
	}

	cfg := s.config()
	current := urlutil.Normalize(rawURL)

	if !cfg.Enabled || urlutil.IsExcluded(current) {
		c.JSON(http.StatusOK, suggestionsResponse{URL: current, Suggestions: []suggest.Suggestion{}})
		return
	}

	limit := cfg.MaxSuggestions
	limitGiven := false
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
		limitGiven = true
	}

	now := time.Now()
	if !limitGiven {
		if cached, ok := s.cache.Get(current, now); ok {
			c.JSON(http.StatusOK, suggestionsResponse{URL: current, Suggestions: cached})
			return
		}
	}

	entries, err := s.store.GetEntries(c.Request.Context(), current)
	if err != nil {
		s.log.Error("suggestion lookup failed", "url", current, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	weights := cfg.Weights()
	results := suggest.Rank(now, current, entries, suggest.Options{
		Weights:        &weights,
		MaxResults:     limit,
		BlockedURLs:    cfg.BlockedURLSet(),
		BlockedDomains: cfg.BlockedDomainSet(),
		LikedURLs:      cfg.LikedURLSet(),
	})

	if !limitGiven {
		s.cache.Put(current, results, now)
	}
	c.JSON(http.StatusOK, suggestionsResponse{URL: current, Suggestions: results})
}

func (s *Server) getStatus(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := s.store.CountIndexedURLs(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status unavailable"})
		return
	}

	resp := statusResponse{
		Enabled:          s.config().Enabled,
		TotalURLsIndexed: total,
		IsIndexing:       s.idx.Busy(),
	}

	meta, err := s.store.GetMetadata(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status unavailable"})
		return
	}
	if meta != nil {
		resp.TotalSessionsIndexed = meta.Sessions
		resp.LastIndexedTimestamp = meta.LastIndexed.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}

// postRebuild kicks off a full rebuild in the background. A rebuild already
// in flight makes the new request a no-op inside the indexer.
func (s *Server) postRebuild(c *gin.Context) {
	go func() {
		if err := s.idx.Run(context.Background(), s.indexerConfig(), true); err != nil {
			s.log.Error("rebuild failed", "error", err)
			return
		}
		s.cache.Invalidate()
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "rebuild started"})
}

// preferenceHandler mutates the liked/blocked lists, persists the config,
// and drops cached suggestions so the change takes effect immediately.
// Mutation is copy-on-write: the shared config is cloned, the clone is
// changed and swapped in, so readers holding the previous snapshot never
// observe an in-place append.
func (s *Server) preferenceHandler(action preferenceAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req preferenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing url field"})
			return
		}

		s.mu.Lock()
		cfg := s.cfg.Clone()
		var changed bool
		switch action {
		case likeAction:
			changed = cfg.AddLikedURL(req.URL)
		case unlikeAction:
			changed = cfg.RemoveLikedURL(req.URL)
		case blockAction:
			changed = cfg.AddBlockedURL(req.URL)
		case unblockAction:
			changed = cfg.RemoveBlockedURL(req.URL)
		}
		var saveErr error
		if changed {
			if saveErr = cfg.Save(s.cfgPath); saveErr == nil {
				s.cfg = cfg
			}
		}
		s.mu.Unlock()

		if saveErr != nil {
			s.log.Error("preference save failed", "error", saveErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist preference"})
			return
		}

		if changed {
			s.cache.Invalidate()
		}
		c.JSON(http.StatusOK, gin.H{"changed": changed, "url": urlutil.Normalize(req.URL)})
	}
}
