// Package output provides output formatters for site pages.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nomadstudio/atmos/internal/content"
)

// Formatter formats pages for output.
type Formatter interface {
	// Format writes formatted pages to the writer.
	Format(w io.Writer, pages []content.Page) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatDmenu FormatType = "dmenu"
	FormatJSON  FormatType = "json"
	FormatPlain FormatType = "plain"
	FormatYAML  FormatType = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (FormatType, error) {
	switch f := FormatType(strings.ToLower(s)); f {
	case FormatDmenu, FormatJSON, FormatPlain, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want plain, dmenu, json or yaml)", s)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Width      int    // Wrap width for plain descriptions (0 = no wrapping)
	ShowImages bool   // Include image URLs in plain output
	Separator  string // Field separator for dmenu format
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		Width:      80,
		ShowImages: true,
		Separator:  " | ",
	}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return jsonFormatter{}
	case FormatYAML:
		return yamlFormatter{}
	case FormatDmenu:
		return dmenuFormatter{opts: opts}
	case FormatPlain:
		fallthrough
	default:
		return plainFormatter{opts: opts}
	}
}

type jsonFormatter struct{}

func (jsonFormatter) Format(w io.Writer, pages []content.Page) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(pages)
}

type yamlFormatter struct{}

func (yamlFormatter) Format(w io.Writer, pages []content.Page) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(pages); err != nil {
		return err
	}
	return encoder.Close()
}

// dmenuFormatter writes one selectable line per page.
type dmenuFormatter struct {
	opts FormatterOptions
}

func (f dmenuFormatter) Format(w io.Writer, pages []content.Page) error {
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}
	for _, p := range pages {
		if _, err := fmt.Fprintf(w, "%s%s%s\n", p.Name, sep, p.Subtitle); err != nil {
			return err
		}
	}
	return nil
}

type plainFormatter struct {
	opts FormatterOptions
}

func (f plainFormatter) Format(w io.Writer, pages []content.Page) error {
	for i, p := range pages {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}

		var sb strings.Builder
		sb.WriteString(strings.ToUpper(p.Title))
		sb.WriteString("\n")
		if p.Subtitle != "" {
			sb.WriteString(p.Subtitle)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		sb.WriteString(Wrap(p.Description, f.opts.Width))
		sb.WriteString("\n")
		if f.opts.ShowImages {
			for _, img := range p.Images {
				sb.WriteString("  - ")
				sb.WriteString(img)
				sb.WriteString("\n")
			}
		}

		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// Wrap breaks text into lines of at most width runes at word boundaries.
// Words longer than width are kept whole. A width of 0 disables wrapping.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var sb strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(text) {
		n := len([]rune(word))
		if lineLen > 0 && lineLen+1+n > width {
			sb.WriteString("\n")
			lineLen = 0
		}
		if lineLen > 0 {
			sb.WriteString(" ")
			lineLen++
		}
		sb.WriteString(word)
		lineLen += n
	}
	return sb.String()
}
