package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomadstudio/atmos/internal/adapter/output"
	"github.com/nomadstudio/atmos/internal/content"
)

var pagesOpts struct {
	format string
	search string
	width  int
	images bool
}

var pagesCmd = &cobra.Command{
	Use:   "pages [name]",
	Short: "Browse the site pages",
	Long: `Print the site pages opened from the orbiting navigation.

Without a name every page is listed, one per line (dmenu format), so the
output can be piped into a launcher:

  atmos pages | rofi -dmenu | cut -d'|' -f1 | xargs atmos pages

With a name (case-insensitive; a unique prefix is enough) the full page is
printed. Formats: plain, dmenu, json, yaml.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Names may arrive split on spaces, e.g. through xargs
		return runPages(cmd.OutOrStdout(), strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(pagesCmd)

	pagesCmd.Flags().StringVarP(&pagesOpts.format, "format", "f", "",
		"Output format: plain, dmenu, json, yaml (default: dmenu for lists, plain for a page)")
	pagesCmd.Flags().StringVarP(&pagesOpts.search, "search", "s", "",
		"Only list pages mentioning this text")
	pagesCmd.Flags().IntVarP(&pagesOpts.width, "width", "w", 80,
		"Wrap width for plain output (0 = no wrapping)")
	pagesCmd.Flags().BoolVar(&pagesOpts.images, "images", true,
		"Include image URLs in plain output")
}

func runPages(w io.Writer, name string) error {
	catalog, err := content.Load()
	if err != nil {
		return err
	}

	var pages []content.Page
	format := output.FormatDmenu
	if name != "" {
		p, err := catalog.Page(name)
		if err != nil {
			return err
		}
		pages = []content.Page{*p}
		format = output.FormatPlain
	} else {
		pages = catalog.Search(pagesOpts.search)
	}

	if pagesOpts.format != "" {
		if format, err = output.ParseFormat(pagesOpts.format); err != nil {
			return err
		}
	}

	opts := output.DefaultFormatterOptions()
	opts.Width = pagesOpts.width
	opts.ShowImages = pagesOpts.images
	return output.NewFormatter(format, opts).Format(w, pages)
}
