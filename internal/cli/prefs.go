package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/histrail/internal/config"
)

// Execute implements the go-flags Commander interface for LikeCommand.
func (c *LikeCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for like command")
	}
	cfg, path, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	return c.executeWithConfig(cfg, path)
}

func (c *LikeCommand) executeWithConfig(cfg *config.Config, path string) error {
	changed := cfg.AddLikedURL(c.URL)
	return savePreference(cfg, path, c.globals, changed, "liked", c.URL)
}

// Execute implements the go-flags Commander interface for UnlikeCommand.
func (c *UnlikeCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for unlike command")
	}
	cfg, path, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	return c.executeWithConfig(cfg, path)
}

func (c *UnlikeCommand) executeWithConfig(cfg *config.Config, path string) error {
	changed := cfg.RemoveLikedURL(c.URL)
	return savePreference(cfg, path, c.globals, changed, "unliked", c.URL)
}

// Execute implements the go-flags Commander interface for BlockCommand.
func (c *BlockCommand) Execute(args []string) error {
	if c.URL == "" && c.Domain == "" {
		return fmt.Errorf("block requires --url or --domain")
	}
	cfg, path, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	return c.executeWithConfig(cfg, path)
}

func (c *BlockCommand) executeWithConfig(cfg *config.Config, path string) error {
	if c.Domain != "" {
		changed := cfg.AddBlockedDomain(c.Domain)
		return savePreference(cfg, path, c.globals, changed, "blocked domain", c.Domain)
	}
	changed := cfg.AddBlockedURL(c.URL)
	return savePreference(cfg, path, c.globals, changed, "blocked", c.URL)
}

// Execute implements the go-flags Commander interface for UnblockCommand.
func (c *UnblockCommand) Execute(args []string) error {
	if c.URL == "" && c.Domain == "" {
		return fmt.Errorf("unblock requires --url or --domain")
	}
	cfg, path, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	return c.executeWithConfig(cfg, path)
}

func (c *UnblockCommand) executeWithConfig(cfg *config.Config, path string) error {
	if c.Domain != "" {
		changed := cfg.RemoveBlockedDomain(c.Domain)
		return savePreference(cfg, path, c.globals, changed, "unblocked domain", c.Domain)
	}
	changed := cfg.RemoveBlockedURL(c.URL)
	return savePreference(cfg, path, c.globals, changed, "unblocked", c.URL)
}

// savePreference persists the config when a list changed and prints the
// outcome in the requested format.
func savePreference(cfg *config.Config, path string, globals *GlobalFlags, changed bool, action, value string) error {
	if changed {
		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
	}

	if globals != nil && globals.JSON {
		out := map[string]interface{}{
			"changed": changed,
			"action":  action,
			"value":   value,
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	if changed {
		fmt.Printf("%s: %s\n", action, value)
	} else {
		fmt.Printf("no change: %s\n", value)
	}
	return nil
}
