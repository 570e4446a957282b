// Package cmd hosts the shared entrypoint plumbing: config resolution,
// bootstrap, bot registration and the webhook serve loop under signal
// handling.
package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tgwire/tgwire/core/bootstrap"
	coreconfig "github.com/tgwire/tgwire/core/config"
	coredatabase "github.com/tgwire/tgwire/core/database"
	"github.com/tgwire/tgwire/core/logger"
	"github.com/tgwire/tgwire/core/telegram"
	"github.com/tgwire/tgwire/core/webhook"
)

// Options describe how to load configuration and build the bots this
// process serves.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	// Database settings live outside the core config; the caller loads them
	// from wherever its deployment keeps them.
	Database coredatabase.Config

	// BuildBots constructs and configures the process's bots from the
	// bootstrap result. Every returned bot is registered and, when a public
	// URL is configured, gets its webhook pointed at this service.
	BuildBots func(cfg *coreconfig.Config, infra *bootstrap.Result) ([]*telegram.Bot, error)

	ShutdownLogger func() error
}

// Run loads configuration, bootstraps infrastructure, registers bots and
// serves webhooks until interrupted.
func Run(opts Options) error {
	if opts.BuildBots == nil {
		return fmt.Errorf("cmd: BuildBots is required")
	}

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	infra, err := bootstrap.Run(bootstrap.Options{Config: cfg, Database: opts.Database})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	if infra.DB != nil {
		defer infra.DB.Close()
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	startedAt := time.Now()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bots, err := opts.BuildBots(cfg, infra)
	if err != nil {
		return fmt.Errorf("cmd: bot construction failed: %w", err)
	}
	if len(bots) == 0 {
		return fmt.Errorf("cmd: no bots to serve")
	}

	registry := telegram.NewRegistry()
	for _, b := range bots {
		if err := registry.Register(b); err != nil {
			return fmt.Errorf("cmd: register bot: %w", err)
		}
		if cfg.Webhook.PublicURL != "" {
			if err := registry.AutoSetWebhook(ctx, b, cfg.Webhook.PublicURL, cfg.Telegram.HookPrefix); err != nil {
				return fmt.Errorf("cmd: webhook setup for bot %s: %w", b.UID(), err)
			}
		}
	}

	server, err := webhook.New(webhook.Options{
		Listen:     cfg.Webhook.Listen,
		Port:       cfg.Webhook.Port,
		HookPrefix: cfg.Telegram.HookPrefix,
		Registry:   registry,
	})
	if err != nil {
		return fmt.Errorf("cmd: webhook server: %w", err)
	}

	logger.Info(ctx, logger.Component("app"), "ready",
		slog.Int("bots", len(bots)),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(startedAt))))

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("cmd: webhook server stopped: %w", err)
	}
	logger.Info(ctx, logger.Component("app"), "shutdown")
	return nil
}
