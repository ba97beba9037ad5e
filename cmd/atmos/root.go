package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nomadstudio/atmos/internal/config"
	"github.com/nomadstudio/atmos/internal/dbus"
	"github.com/nomadstudio/atmos/internal/tui"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		timeout    time.Duration
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "atmos",
	Short: "Control the atmosd ambient sound daemon",
	Long: `atmos controls atmosd, the ambient sound daemon.

atmosd plays one looping track per atmosphere (Raw, Atmosphere, Water)
and cross-fades between them, resuming each where it was last heard.

Running atmos without a subcommand launches the interactive HUD.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initGlobals()
	},
	// Default to TUI when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/atmos/atmos.toml)")
	rootCmd.PersistentFlags().DurationVar(&globalOpts.timeout, "timeout", 5*time.Second,
		"Timeout for calls to atmosd")
}

// initGlobals sets up logging and loads the config from globalOpts.
func initGlobals() error {
	setupLogger()

	var err error
	cfg, err = config.LoadConfig(globalOpts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// getConfig returns the global config instance.
func getConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

// daemonClient is what the commands need from atmosd.
type daemonClient interface {
	tui.Backend
	SetMuted(ctx context.Context, muted bool) error
	ListModes(ctx context.Context) ([]string, error)
}

// dialDaemon connects to atmosd. Tests replace it.
var dialDaemon = func() (daemonClient, func() error, error) {
	c, err := dbus.NewClient(logger)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// withDaemon runs fn with a connected client and a call timeout.
func withDaemon(fn func(ctx context.Context, c daemonClient) error) error {
	c, closeFn, err := dialDaemon()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Debug("failed to close D-Bus connection", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), globalOpts.timeout)
	defer cancel()
	return fn(ctx, c)
}
