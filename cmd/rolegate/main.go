// Package main provides the entry point for rolegate.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rolegate/internal/bot/config"
	"github.com/yndnr/rolegate/internal/core/service"
	"github.com/yndnr/rolegate/internal/discord"
	"github.com/yndnr/rolegate/internal/gateway"
	"github.com/yndnr/rolegate/internal/infra/buildinfo"
	"github.com/yndnr/rolegate/internal/infra/confloader"
	"github.com/yndnr/rolegate/internal/infra/shutdown"
	"github.com/yndnr/rolegate/internal/storage/epd"
	"github.com/yndnr/rolegate/internal/storage/persist"
	"github.com/yndnr/rolegate/internal/telemetry/logger"
	"github.com/yndnr/rolegate/internal/telemetry/metric"
	"github.com/yndnr/rolegate/internal/tracker"
	"github.com/yndnr/rolegate/pkg/crypto/adaptive"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "rolegate",
		Usage:   "grants a role to guild members once they have been active enough",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (YAML)",
				EnvVars: []string{"ROLEGATE_CONFIG"},
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.String("config"))
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Show detailed version information",
				Action: func(c *cli.Context) error {
					info := buildinfo.Get()
					fmt.Printf("rolegate %s\n  commit:     %s\n  built:      %s\n  go version: %s\n",
						info.Version, info.Commit, info.BuildTime, info.GoVersion)
					return nil
				},
			},
		},
	}
}

func run(configFile string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting rolegate",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"requirement", cfg.Activity.Requirement,
		"cooldown", cfg.Activity.Cooldown,
		"persistence", cfg.Snapshot.Interval > 0)
	// Secrets are masked; safe to dump the whole configuration.
	log.Debug("effective configuration", "config", fmt.Sprintf("%+v", *config.Sanitize(cfg)))

	metrics := metric.New()

	trk := tracker.New(tracker.Config{
		Requirement: cfg.Activity.Requirement,
		Cooldown:    int64(cfg.Activity.Cooldown / time.Second),
		Shards:      cfg.Activity.Shards,
	})
	metrics.TrackMembers(func() float64 {
		return float64(trk.Count())
	})

	strategy, err := initStrategy(cfg)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}

	scheduler := persist.New(trk, strategy, cfg.Snapshot.Interval, log,
		persist.WithMetrics(metrics))
	if err := scheduler.Start(context.Background()); err != nil {
		return fmt.Errorf("start persistence: %w", err)
	}

	restClient := discord.NewClient(cfg.Discord.Token, discord.WithLogger(log))

	granter := service.NewGranter(restClient, cfg.Discord.RoleID,
		service.WithGranterLogger(log),
		service.WithGranterMetrics(metrics))
	granter.Start(context.Background())

	gw := gateway.NewClient(cfg.Discord.Token, cfg.Discord.RoleID,
		gateway.WithClientLogger(log))
	pump := gateway.NewPump(gw, trk, granter, cfg.Discord.GuildID,
		gateway.WithPumpLogger(log),
		gateway.WithPumpMetrics(metrics))

	handler := shutdown.NewHandler(30 * time.Second)

	metricsServer := startMetrics(cfg, metrics, log)

	// Hooks run in reverse registration order: gateway first, then the
	// granter drain, then the final snapshot flush, metrics last.
	if metricsServer != nil {
		handler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down metrics server")
			return metricsServer.Shutdown(ctx)
		})
	}
	handler.OnShutdown(func(ctx context.Context) error {
		log.Info("flushing final snapshot")
		return scheduler.Stop(ctx)
	})
	handler.OnShutdown(func(ctx context.Context) error {
		log.Info("draining grant queue", "pending", granter.Pending())
		return granter.Close(ctx)
	})
	pumpDone := make(chan struct{})
	handler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing gateway connection")
		gw.Close()
		// The granter queue closes in the next hook; wait until the
		// pump has drained the event channel and stopped submitting.
		select {
		case <-pumpDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	watcher := watchLogLevel(configFile, log)
	if watcher != nil {
		defer watcher.Stop()
	}

	pumpCtx, cancelPump := context.WithCancel(context.Background())
	defer cancelPump()

	go func() {
		if err := gw.Run(pumpCtx); err != nil {
			log.Error("gateway terminated", "error", err)
		}
		// Connection is gone for good; bring the process down.
		handler.Trigger()
	}()
	go func() {
		pump.Run(pumpCtx)
		close(pumpDone)
	}()

	log.Info("rolegate started, press Ctrl+C to stop")
	if err := handler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("rolegate stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.BotConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger and installs it as the
// process default.
func initLogger(cfg *config.BotConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}

	logger.SetDefault(log)
	return log, nil
}

// initStrategy builds the persistence strategy from the snapshot
// configuration: no interval means no persistence at all.
func initStrategy(cfg *config.BotConfig) (persist.Strategy, error) {
	if cfg.Snapshot.Interval <= 0 {
		return persist.NoopStrategy{}, nil
	}

	codecOpts := []epd.Option{}
	if key := cfg.Snapshot.DecodedKey(); key != nil {
		cipher, err := adaptive.New(key)
		if err != nil {
			return nil, fmt.Errorf("snapshot cipher: %w", err)
		}
		codecOpts = append(codecOpts, epd.WithCipher(cipher))
	}

	return persist.NewFileStrategy(cfg.Snapshot.Path, epd.New(codecOpts...)), nil
}

// startMetrics starts the Prometheus listener when configured.
func startMetrics(cfg *config.BotConfig, metrics *metric.Metrics, log logger.Logger) *http.Server {
	if cfg.Metrics.Addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics server listening", "addr", cfg.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	return srv
}

// watchLogLevel reloads the log level when the config file changes.
func watchLogLevel(configFile string, log logger.Logger) *confloader.Watcher {
	if configFile == "" {
		return nil
	}

	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := watcher.Watch(configFile); err != nil {
		log.Warn("cannot watch config file", "path", configFile, "error", err)
		return nil
	}

	watcher.OnChange(func(path string) {
		cfg := config.Default()
		loader := confloader.NewLoader(confloader.WithConfigFile(configFile))
		if err := loader.Load(cfg); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			log.Info("log level changed", "level", cfg.Log.Level)
			logger.SetLevel(cfg.Log.Level)
		}
	})

	watcher.StartAsync()
	return watcher
}
