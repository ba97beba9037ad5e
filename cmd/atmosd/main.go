// Package main is the entry point for the atmosd ambient sound daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nomadstudio/atmos/internal/atmosphere"
	"github.com/nomadstudio/atmos/internal/audio"
	"github.com/nomadstudio/atmos/internal/config"
	"github.com/nomadstudio/atmos/internal/controller"
	"github.com/nomadstudio/atmos/internal/daemon"
	"github.com/nomadstudio/atmos/internal/dbus"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/atmos/atmos.toml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("atmosd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("atmosd failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	logger.Info("starting atmosd", "version", version)

	if configPath == "" {
		configPath = config.ConfigPath()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	assetsDir := cfg.Audio.AssetsDir
	if assetsDir == "" {
		assetsDir = config.DataPath()
	}
	player := audio.NewPlayer(assetsDir, logger)
	preloadTracks(player, cfg.Manifest(), logger)

	ctrl := controller.New(player, controller.OptionsFromConfig(cfg), logger)
	defer func() {
		if err := ctrl.Close(); err != nil {
			logger.Warn("failed to close audio output", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// D-Bus control surface
	server := dbus.NewServer(daemon.BusController{Controller: ctrl}, logger)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start D-Bus server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("failed to stop D-Bus server", "error", err)
		}
	}()
	ctrl.OnTransition(func(t controller.Transition) {
		server.EmitStageChanged(daemon.BusStageChange(t))
	})

	// Track file watching
	var trackWatcher *audio.Watcher
	if cfg.Audio.WatchAssets {
		trackWatcher = audio.NewWatcher(player, logger)
		trackWatcher.SetChangeCallback(func(path string) {
			logger.Info("track changed on disk", "path", path)
		})
		watchTracks(trackWatcher, player, nil, cfg.Manifest())
		if err := trackWatcher.Start(ctx); err != nil {
			logger.Warn("failed to start track watcher", "error", err)
		} else {
			defer trackWatcher.Stop()
		}
	}

	// Config hot reload
	configWatcher := daemon.NewConfigWatcher(configPath, logger)
	configWatcher.SetReloadCallback(func(oldConfig, newConfig *config.Config) {
		daemon.ApplyConfig(ctrl, oldConfig, newConfig, logger)
		preloadTracks(player, newConfig.Manifest(), logger)
		if trackWatcher != nil {
			var previous *atmosphere.Manifest
			if oldConfig != nil {
				m := oldConfig.Manifest()
				previous = &m
			}
			watchTracks(trackWatcher, player, previous, newConfig.Manifest())
		}
	})
	configWatcher.SetErrorCallback(func(err error) {
		logger.Warn("keeping previous configuration", "error", err)
	})
	if err := configWatcher.Start(ctx, cfg); err != nil {
		logger.Warn("config hot reload disabled", "error", err)
	} else {
		defer configWatcher.Stop()
	}

	// SIGHUP forces a reload
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP, reloading config")
				configWatcher.Reload()
			}
		}
	}()

	if cfg.Audio.Autostart {
		ctrl.Start()
	}

	logger.Info("atmosd ready", "mode", cfg.InitialMode(), "volume", cfg.Audio.Volume, "autostart", cfg.Audio.Autostart)

	err = ctrl.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

// preloadTracks decodes every track in the manifest so switches don't
// stall on disk reads.
func preloadTracks(player *audio.Player, m atmosphere.Manifest, logger *slog.Logger) {
	for _, mode := range atmosphere.AllModes() {
		url := m.TrackURL(mode)
		if err := player.Preload(url); err != nil {
			logger.Warn("failed to preload track", "mode", mode, "url", url, "error", err)
		}
	}
}

// watchTracks moves the track watch list from previous to next.
func watchTracks(w *audio.Watcher, player *audio.Player, previous *atmosphere.Manifest, next atmosphere.Manifest) {
	if previous != nil {
		for _, mode := range atmosphere.AllModes() {
			w.Unwatch(player.ResolvePath(previous.TrackURL(mode)))
		}
	}
	for _, mode := range atmosphere.AllModes() {
		w.Watch(player.ResolvePath(next.TrackURL(mode)))
	}
}
