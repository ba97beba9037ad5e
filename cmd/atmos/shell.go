package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/nomadstudio/atmos/internal/config"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive control prompt",
	Long: `Open an interactive prompt with completion and history.

Commands: start, mode <name>, volume [level], mute [on|off|toggle],
status, modes, pages [name], help, quit.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func shellCompleter() *readline.PrefixCompleter {
	modes := []readline.PrefixCompleterInterface{
		readline.PcItem("silence"), readline.PcItem("wind"), readline.PcItem("ocean"),
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("start"),
		readline.PcItem("mode", modes...),
		readline.PcItem("volume"),
		readline.PcItem("mute",
			readline.PcItem("on"), readline.PcItem("off"), readline.PcItem("toggle"),
		),
		readline.PcItem("status"),
		readline.PcItem("modes"),
		readline.PcItem("pages"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func runShell(cmd *cobra.Command, args []string) error {
	historyFile := ""
	if dir := filepath.Dir(config.DataPath()); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			historyFile = filepath.Join(dir, "shell_history")
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "atmos> ",
		HistoryFile:     historyFile,
		AutoComplete:    shellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to start prompt: %w", err)
	}
	defer rl.Close()

	c, closeFn, err := dialDaemon()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Debug("failed to close D-Bus connection", "error", err)
		}
	}()

	w := rl.Stdout()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), globalOpts.timeout)
		quit, err := execShellLine(ctx, c, w, line)
		cancel()
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// execShellLine runs one prompt line. It reports whether the shell should exit.
func execShellLine(ctx context.Context, c daemonClient, w io.Writer, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	switch strings.ToLower(fields[0]) {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(w, "start | mode <silence|wind|ocean> | volume [level] | mute [on|off|toggle] | status | modes | pages [name] | quit")
		return false, nil
	case "start":
		return false, runStart(ctx, c, w)
	case "mode":
		if len(fields) < 2 {
			return false, errors.New("usage: mode <name>")
		}
		return false, runMode(ctx, c, w, fields[1])
	case "volume", "vol":
		return false, runVolume(ctx, c, w, arg(1))
	case "mute":
		return false, runMute(ctx, c, w, arg(1))
	case "status":
		st, err := c.Status(ctx)
		if err != nil {
			return false, err
		}
		printStatus(w, st, nowFunc())
		return false, nil
	case "modes":
		return false, printModes(w, getConfig().Manifest())
	case "pages":
		return false, runPages(w, strings.Join(fields[1:], " "))
	default:
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}
