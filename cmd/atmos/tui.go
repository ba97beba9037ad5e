package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nomadstudio/atmos/internal/content"
	"github.com/nomadstudio/atmos/internal/dbus"
	"github.com/nomadstudio/atmos/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive HUD",
	Long: `Launch the terminal HUD for atmosd.

The HUD provides:
  - The mode dock with the current atmosphere highlighted
  - A volume bar with mute indicator
  - The site pages, opened in a scrollable modal

Key bindings:
  enter       Start playback
  1/2/3       Raw / Atmosphere / Water
  tab, ←/→    Cycle atmospheres
  +/-, ↑/↓    Volume
  m           Mute
  p           Pages
  c           Copy page text (in a page)
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// stageSubscriber delivers StageChanged signals. *dbus.Client satisfies it.
type stageSubscriber interface {
	Subscribe(ctx context.Context) (<-chan dbus.StageChange, error)
}

func runTUI(cmd *cobra.Command, args []string) error {
	catalog, err := content.Load()
	if err != nil {
		logger.Warn("failed to load pages", "error", err)
		catalog = nil
	}

	c, closeFn, err := dialDaemon()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Debug("failed to close D-Bus connection", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stageChanges <-chan dbus.StageChange
	if sub, ok := c.(stageSubscriber); ok {
		if stageChanges, err = sub.Subscribe(ctx); err != nil {
			logger.Debug("stage signals unavailable, polling only", "error", err)
			stageChanges = nil
		}
	}

	return tui.Run(tui.RunOptions{
		Config:       getConfig(),
		Backend:      c,
		Catalog:      catalog,
		StageChanges: stageChanges,
	})
}
