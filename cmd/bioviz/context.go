package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bioviz/internal/config"
	"bioviz/internal/logging"
	"bioviz/internal/session"
)

// commandContext carries lazily resolved configuration shared by every
// subcommand in one invocation.
type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// withSession starts a worker session, runs fn against it, and tears the
// session down afterwards. One-shot commands go through here so startup
// failures get the same friendly wrapping everywhere.
func (c *commandContext) withSession(cmd *cobra.Command, extra []session.Option, fn func(context.Context, *session.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := newCLILogger(cfg, false)
	if err != nil {
		return err
	}
	opts := append([]session.Option{session.WithLogger(logger)}, extra...)
	sess, err := session.Start(cmd.Context(), cfg, opts...)
	if err != nil {
		return wrapStartError(err, cfg)
	}
	defer sess.Close()
	return fn(cmd.Context(), sess)
}

// newCLILogger builds the logger for CLI-held sessions: a JSON file sink
// under the log directory plus the configured console output. Quiet mode
// discards the console stream, which the interactive console needs because
// the TUI owns the terminal.
func newCLILogger(cfg *config.Config, quiet bool) (*slog.Logger, error) {
	opts := logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		opts.FilePath = filepath.Join(dir, "bioviz.log")
	}
	if quiet {
		opts.Console = io.Discard
	}
	return logging.New(opts)
}

func wrapStartError(err error, cfg *config.Config) error {
	switch {
	case errors.Is(err, session.ErrSessionActive):
		return fmt.Errorf("%w; close the running instance or remove the stale lock under %s", err, cfg.Paths.DataDir)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w; the worker never announced ready (check engine.binary and engine.startup_timeout)", err)
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
