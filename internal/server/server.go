// Package server exposes the suggestion query surface over a local HTTP
// API and drives the periodic incremental updater.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"

	"github.com/runnerr0/histrail/internal/config"
	"github.com/runnerr0/histrail/internal/indexer"
	"github.com/runnerr0/histrail/internal/storage"
	"github.com/runnerr0/histrail/internal/suggest"
)

// Server wires the store, indexer, suggestion cache, and live-reloaded
// preferences behind the HTTP handlers.
type Server struct {
	store storage.Store
	idx   *indexer.Indexer
	cache *suggest.Cache
	log   *slog.Logger

	mu      sync.RWMutex
	cfg     *config.Config
	cfgPath string
}

// New creates a Server. cfgPath is watched for preference changes while
// the daemon runs.
func New(store storage.Store, idx *indexer.Indexer, cfg *config.Config, cfgPath string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store:   store,
		idx:     idx,
		cache:   suggest.NewCache(suggest.DefaultCacheSize, suggest.DefaultCacheTTL),
		log:     log,
		cfg:     cfg,
		cfgPath: cfgPath,
	}
}

// config returns the current preferences snapshot.
func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// indexerConfig derives the per-run indexer settings from preferences.
func (s *Server) indexerConfig() indexer.Config {
	cfg := s.config()
	return indexer.Config{
		Enabled:        cfg.Enabled,
		Gap:            cfg.Gap(),
		MaxHistoryDays: cfg.MaxHistoryDays,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/suggestions", s.getSuggestions)
	r.GET("/status", s.getStatus)
	r.POST("/rebuild", s.postRebuild)
	r.POST("/like", s.preferenceHandler(likeAction))
	r.POST("/unlike", s.preferenceHandler(unlikeAction))
	r.POST("/block", s.preferenceHandler(blockAction))
	r.POST("/unblock", s.preferenceHandler(unblockAction))

	return r
}

// Run serves HTTP until ctx is cancelled, alongside the periodic update
// ticker and the config-file watcher.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.config()

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: s.Router(),
	}

	go s.runUpdater(ctx, cfg.UpdateInterval())
	go s.watchConfig(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("daemon listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// runUpdater performs an incremental update at startup and then on a fixed
// interval. Failed runs are logged and retried implicitly on the next tick.
func (s *Server) runUpdater(ctx context.Context, interval time.Duration) {
	if err := s.idx.Run(ctx, s.indexerConfig(), false); err != nil {
		s.log.Error("startup index update failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.idx.Run(ctx, s.indexerConfig(), false); err != nil {
				s.log.Error("periodic index update failed", "error", err)
			}
		}
	}
}

// watchConfig reloads preferences when the config file changes and
// invalidates the suggestion cache wholesale.
func (s *Server) watchConfig(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Error("config watcher unavailable", "error", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(s.cfgPath); err != nil {
		s.log.Error("cannot watch config file", "path", s.cfgPath, "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.reloadConfig()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Error("config watcher error", "error", err)
		}
	}
}

func (s *Server) reloadConfig() {
	cfg, err := config.Load(s.cfgPath)
	if err != nil {
		s.log.Error("config reload failed", "error", err)
		return
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.cache.Invalidate()
	s.log.Info("preferences reloaded", "path", s.cfgPath)
}
