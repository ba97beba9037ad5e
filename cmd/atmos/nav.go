package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nomadstudio/atmos/internal/content"
)

var navOpts struct {
	at float64
}

var navCmd = &cobra.Command{
	Use:   "nav [label]",
	Short: "List the orbiting navigation items",
	Long: `List the navigation items orbiting the sphere with their position at
--at seconds into the scene.

With a label the page that item opens is printed, as if it was clicked:

  atmos nav workshops`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := content.Load()
		if err != nil {
			return err
		}
		if len(args) > 0 {
			return openNavItem(cmd.OutOrStdout(), catalog, strings.Join(args, " "))
		}
		return printNav(cmd.OutOrStdout(), catalog, navOpts.at)
	},
}

func init() {
	rootCmd.AddCommand(navCmd)

	navCmd.Flags().Float64Var(&navOpts.at, "at", 0, "Scene time in seconds")
}

func printNav(w io.Writer, catalog *content.Catalog, at float64) error {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("LABEL", "DESCRIPTION", "X", "Y", "Z", "SCALE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	positions := catalog.OrbitPositions(at)
	for i, n := range catalog.Navigation {
		p := positions[i]
		t.Row(
			n.Label,
			n.Description,
			strconv.FormatFloat(p.X, 'f', 2, 64),
			strconv.FormatFloat(p.Y, 'f', 2, 64),
			strconv.FormatFloat(p.Z, 'f', 2, 64),
			strconv.FormatFloat(n.Scale, 'f', 2, 64),
		)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// openNavItem prints the page the navigation item labelled label opens.
func openNavItem(w io.Writer, catalog *content.Catalog, label string) error {
	n, ok := catalog.NavItem(label)
	if !ok {
		return fmt.Errorf("no navigation item %q", label)
	}
	return runPages(w, n.Label)
}
