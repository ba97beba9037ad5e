package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nomadstudio/atmos/internal/atmosphere"
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the atmospheres and their tracks",
	Long: `List every atmosphere with its dock label, sphere look and the track it
plays. Track overrides from the [tracks] config section are applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printModes(cmd.OutOrStdout(), getConfig().Manifest())
	},
}

func init() {
	rootCmd.AddCommand(modesCmd)
}

func printModes(w io.Writer, manifest atmosphere.Manifest) error {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "MODE", "LABEL", "COLOR", "DISTORT", "SPEED", "TRACK").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for i, m := range atmosphere.AllModes() {
		c, ok := manifest.Config(m)
		if !ok {
			continue
		}
		t.Row(
			strconv.Itoa(i+1),
			m.String(),
			m.Label(),
			c.Color,
			strconv.FormatFloat(c.Distort, 'f', 2, 64),
			strconv.FormatFloat(c.Speed, 'f', 2, 64),
			c.AudioURL,
		)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
