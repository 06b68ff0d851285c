package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"anitag/internal/config"
	"anitag/internal/logging"
	"anitag/internal/workflow"
)

type commandContext struct {
	configFlag   string
	logLevelFlag string

	configOnce sync.Once
	config     *config.Config
	configErr  error
	configPath string
	configSeen bool

	// One base logger per process: each rotating file writer holds its own
	// handle, and two of them must not rotate the same file.
	loggerOnce sync.Once
	baseLogger *slog.Logger
	logCloser  io.Closer
	loggerErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, resolved, exists, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if level := strings.TrimSpace(c.logLevelFlag); level != "" {
			cfg.Logging.Level = level
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(component string) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		logger, closer, err := logging.OpenFromConfig(cfg, "")
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.baseLogger = logger
		c.logCloser = closer
	})
	if c.loggerErr != nil {
		return nil, c.loggerErr
	}
	return logging.NewComponentLogger(c.baseLogger, component), nil
}

// Close releases the log file. It is safe to call when no logger was built.
func (c *commandContext) Close() error {
	if c.logCloser == nil {
		return nil
	}
	err := c.logCloser.Close()
	c.logCloser = nil
	return err
}

// withServices opens the resolvers and caches for the duration of fn and
// flushes the caches afterwards.
func (c *commandContext) withServices(cmd *cobra.Command, fn func(*config.Config, *slog.Logger, *workflow.Services) error) (err error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger("cli")
	if err != nil {
		return err
	}
	services, err := workflow.OpenServices(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := services.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close caches: %w", closeErr)
		}
	}()
	return fn(cfg, logger, services)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
