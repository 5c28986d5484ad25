package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"reelflow/internal/api"
	"reelflow/internal/config"
	"reelflow/internal/logging"
	"reelflow/internal/taskwatch"
	"reelflow/internal/workflow"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	pushFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag, pushFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		pushFlag:   pushFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) managerOptions() []workflow.ManagerOption {
	if c.pushFlag == nil || !*c.pushFlag {
		return nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil
	}
	return []workflow.ManagerOption{
		workflow.WithWatcher(taskwatch.NewSubscriber(cfg, c.ensureLogger())),
	}
}

// withApp runs fn against an App for read-only operations.
func (c *commandContext) withApp(fn func(context.Context, *api.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	app, err := api.Open(cfg, c.ensureLogger(), c.managerOptions()...)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return fn(ctx, app)
}

// withRunApp runs fn for workflow-mutating operations: it holds the state
// directory lock so only one wizard run mutates sessions at a time, and
// reclaims stale processing rows before fn starts.
func (c *commandContext) withRunApp(fn func(context.Context, *api.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock, err := workflow.AcquireRunLock(cfg.Paths.StateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	return c.withApp(func(ctx context.Context, app *api.App) error {
		if err := app.Manager().Startup(ctx); err != nil {
			return err
		}
		return fn(ctx, app)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
