package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Colours shared by banners and labels.
var (
	colourCurated = lipgloss.Color("#A6E3A1")
	colourDraft   = lipgloss.Color("#F9E2AF")
	colourRaw     = lipgloss.Color("#F38BA8")
	colourMuted   = lipgloss.Color("#6C7086")
)

// styles holds the lipgloss styles for one output stream. Styles are plain
// when the stream is not a terminal.
type styles struct {
	curated lipgloss.Style
	draft   lipgloss.Style
	raw     lipgloss.Style
	muted   lipgloss.Style
	title   lipgloss.Style
}

func stylesFor(w io.Writer) styles {
	if !shouldColorize(w) {
		plain := lipgloss.NewStyle()
		return styles{curated: plain, draft: plain, raw: plain, muted: plain, title: plain}
	}
	return styles{
		curated: lipgloss.NewStyle().Bold(true).Foreground(colourCurated),
		draft:   lipgloss.NewStyle().Bold(true).Foreground(colourDraft),
		raw:     lipgloss.NewStyle().Bold(true).Foreground(colourRaw),
		muted:   lipgloss.NewStyle().Foreground(colourMuted),
		title:   lipgloss.NewStyle().Bold(true).Underline(true),
	}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    80,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func pages(start, end int) string {
	switch {
	case start <= 0:
		return "-"
	case start == end:
		return fmt.Sprintf("p.%d", start)
	default:
		return fmt.Sprintf("pp.%d-%d", start, end)
	}
}

// snippet collapses whitespace and cuts text to n runes, marking the cut.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
