package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/runnerr0/histrail/internal/indexer"
	"github.com/runnerr0/histrail/internal/logger"
	"github.com/runnerr0/histrail/internal/server"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, cfgPath, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	if c.Port > 0 {
		cfg.Server.Port = c.Port
	}

	level := cfg.Logging.Level
	if c.LogLevel != "" {
		level = c.LogLevel
	}
	if c.globals != nil && c.globals.Verbose {
		level = "debug"
	}
	logger.Init(logger.Config{
		Level:  logger.ParseLevel(level),
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	store, db, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ix := indexer.New(store, store, logger.ForComponent("indexer"))
	srv := server.New(store, ix, cfg, cfgPath, logger.ForComponent("server"))

	return srv.Run(ctx)
}
