package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nomadstudio/atmos/internal/atmosphere"
	"github.com/nomadstudio/atmos/internal/dbus"
)

var statusOpts struct {
	json   bool
	waybar bool
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what atmosd is playing",
	Long: `Show the current atmosphere, volume and playback state.

With --waybar the output is Waybar's custom module JSON format:

  "custom/atmos": {
    "exec": "atmos status --waybar",
    "interval": 2,
    "return-type": "json",
    "on-click": "atmos mute",
    "on-scroll-up": "atmos volume +5%",
    "on-scroll-down": "atmos volume -5%"
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c daemonClient) error {
			st, err := c.Status(ctx)
			if err != nil {
				if statusOpts.waybar {
					return outputJSON(cmd.OutOrStdout(), WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()})
				}
				return err
			}

			switch {
			case statusOpts.waybar:
				return outputJSON(cmd.OutOrStdout(), waybarStatus(st))
			case statusOpts.json:
				return outputJSON(cmd.OutOrStdout(), st)
			default:
				printStatus(cmd.OutOrStdout(), st, nowFunc())
				return nil
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.json, "json", false, "Output status as JSON")
	statusCmd.Flags().BoolVar(&statusOpts.waybar, "waybar", false, "Output Waybar custom module JSON")
	statusCmd.MarkFlagsMutuallyExclusive("json", "waybar")
}

// printStatus writes a human readable status.
func printStatus(w io.Writer, st dbus.Status, now time.Time) {
	fmt.Fprintf(w, "Atmosphere: %s\n", describeMode(st.Mode))
	fmt.Fprintln(w, formatVolume(st.Volume, st.Muted))

	switch {
	case !st.Started:
		fmt.Fprintln(w, "State:      not started (run 'atmos start')")
	case st.Playing:
		fmt.Fprintf(w, "State:      playing (%s)\n", st.Stage)
	default:
		fmt.Fprintf(w, "State:      paused (%s)\n", st.Stage)
	}

	if !st.StartedAt.IsZero() {
		fmt.Fprintf(w, "Started:    %s\n", humanize.RelTime(st.StartedAt, now, "ago", "from now"))
	}
}

// waybarStatus maps a status onto the Waybar module format.
func waybarStatus(st dbus.Status) WaybarStatus {
	icon := "?"
	if m, err := atmosphere.ParseMode(st.Mode); err == nil {
		icon = m.Icon()
	}

	class := "playing"
	switch {
	case !st.Started:
		class = "stopped"
	case st.Muted:
		class = "muted"
	case !st.Playing:
		class = "paused"
	}

	return WaybarStatus{
		Text:       icon,
		Alt:        class,
		Tooltip:    fmt.Sprintf("%s\n%s", describeMode(st.Mode), formatVolume(st.Volume, st.Muted)),
		Class:      class,
		Percentage: int(st.Volume*100 + 0.5),
	}
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// nowFunc is replaced in tests.
var nowFunc = time.Now
