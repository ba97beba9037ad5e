package main

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomadstudio/atmos/internal/atmosphere"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start playback",
	Long: `Open the listening session. Until a session is started atmosd stays
silent; afterwards the selected atmosphere fades in.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c daemonClient) error {
			return runStart(ctx, c, cmd.OutOrStdout())
		})
	},
}

var modeCmd = &cobra.Command{
	Use:   "mode <name>",
	Short: "Select the atmosphere",
	Long: `Select the atmosphere by name or dock label:

  silence | raw
  wind    | atmosphere
  ocean   | water

The current track fades out, the new one resumes where it was last
heard and fades in.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"silence", "wind", "ocean", "raw", "atmosphere", "water"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c daemonClient) error {
			return runMode(ctx, c, cmd.OutOrStdout(), args[0])
		})
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume [level]",
	Short: "Show or set the volume",
	Long: `Show or set the desired volume.

The level may be absolute (0.5, 50%) or relative (+0.1, -10%). Values
outside 0..1 are clamped. Without an argument the current volume is
printed.`,
	// A relative decrease such as -10% would otherwise parse as a shorthand flag
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, flags := splitVolumeArgs(args, func(name string) bool {
			f := cmd.Flag(name)
			return f != nil && f.Value.Type() != "bool"
		})
		// ParseFlags is a no-op with flag parsing disabled; InheritedFlags
		// merges the root's persistent flags first.
		cmd.InheritedFlags()
		if err := cmd.Flags().Parse(flags); err != nil {
			return err
		}
		if help, _ := cmd.Flags().GetBool("help"); help {
			return cmd.Help()
		}
		if err := initGlobals(); err != nil {
			return err
		}

		rest := cmd.Flags().Args()
		if level == "" && len(rest) > 0 {
			level, rest = rest[0], rest[1:]
		}
		if len(rest) > 0 {
			return fmt.Errorf("accepts at most 1 arg, received %d", len(rest)+1)
		}
		return withDaemon(func(ctx context.Context, c daemonClient) error {
			return runVolume(ctx, c, cmd.OutOrStdout(), level)
		})
	},
}

var muteCmd = &cobra.Command{
	Use:       "mute [on|off|toggle]",
	Short:     "Mute or unmute",
	Long:      `Mute or unmute playback. The desired volume is kept. Defaults to toggle.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		action := "toggle"
		if len(args) == 1 {
			action = args[0]
		}
		return withDaemon(func(ctx context.Context, c daemonClient) error {
			return runMute(ctx, c, cmd.OutOrStdout(), action)
		})
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(muteCmd)
}

func runStart(ctx context.Context, c daemonClient, w io.Writer) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Playing %s\n", describeMode(st.Mode))
	return nil
}

func runMode(ctx context.Context, c daemonClient, w io.Writer, name string) error {
	m, err := atmosphere.ParseMode(name)
	if err != nil {
		return fmt.Errorf("%w (want silence, wind or ocean)", err)
	}
	if err := c.SetMode(ctx, m.String()); err != nil {
		return err
	}
	fmt.Fprintf(w, "Atmosphere: %s\n", describeMode(m.String()))
	return nil
}

func runVolume(ctx context.Context, c daemonClient, w io.Writer, arg string) error {
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if arg == "" {
		fmt.Fprintln(w, formatVolume(st.Volume, st.Muted))
		return nil
	}

	level, err := parseVolume(arg, st.Volume)
	if err != nil {
		return err
	}
	if err := c.SetVolume(ctx, level); err != nil {
		return err
	}
	fmt.Fprintln(w, formatVolume(level, st.Muted))
	return nil
}

func runMute(ctx context.Context, c daemonClient, w io.Writer, action string) error {
	var muted bool
	switch strings.ToLower(action) {
	case "on", "true", "1":
		muted = true
		if err := c.SetMuted(ctx, true); err != nil {
			return err
		}
	case "off", "false", "0":
		if err := c.SetMuted(ctx, false); err != nil {
			return err
		}
	case "toggle", "":
		var err error
		if muted, err = c.ToggleMute(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid mute action %q (want on, off or toggle)", action)
	}

	if muted {
		fmt.Fprintln(w, "Muted")
	} else {
		fmt.Fprintln(w, "Unmuted")
	}
	return nil
}

// volumeLevel matches the level forms parseVolume accepts.
var volumeLevel = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)%?$`)

// splitVolumeArgs pulls the first level-shaped argument out of args and
// returns the rest for flag parsing. takesValue reports whether a long
// flag consumes the following argument.
func splitVolumeArgs(args []string, takesValue func(name string) bool) (level string, flags []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			flags = append(flags, args[i:]...)
			break
		}
		if level == "" && volumeLevel.MatchString(arg) {
			level = arg
			continue
		}
		flags = append(flags, arg)
		name, ok := strings.CutPrefix(arg, "--")
		if ok && !strings.Contains(name, "=") && takesValue(name) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return level, flags
}

// parseVolume parses an absolute or relative level. A trailing % scales
// by 1/100; a leading sign makes the value relative to current.
func parseVolume(arg string, current float64) (float64, error) {
	s := strings.TrimSpace(arg)
	if s == "" {
		return 0, fmt.Errorf("empty volume")
	}

	relative := s[0] == '+' || s[0] == '-'
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSuffix(s, "%")
		scale = 0.01
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q: %w", arg, err)
	}
	v *= scale
	if relative {
		v += current
	}
	return min(max(v, 0), 1), nil
}

func formatVolume(level float64, muted bool) string {
	s := fmt.Sprintf("Volume: %.0f%%", level*100)
	if muted {
		s += " (muted)"
	}
	return s
}

// describeMode renders a mode name with its dock label, e.g. "OCEAN (Water)".
func describeMode(name string) string {
	m, err := atmosphere.ParseMode(name)
	if err != nil {
		return name
	}
	return fmt.Sprintf("%s (%s)", m, m.Label())
}
