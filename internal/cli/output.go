package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wine-dashboard/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8E2C48")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

type printer struct {
	w      io.Writer
	format string
	width  int
}

// newPrinter fits tables to the terminal when stdout is one.
func newPrinter(cmd *cobra.Command, format string) *printer {
	p := &printer{w: cmd.OutOrStdout(), format: format}
	if f, ok := p.w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = width
		}
	}
	return p
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable right-aligns the listed numeric columns.
func newTable(numeric ...int) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			for _, c := range numeric {
				if c == col {
					return numberStyle
				}
			}
			return cellStyle
		})
}

func (p *printer) render(t *table.Table) error {
	if p.width > 0 {
		t.Width(p.width)
	}
	_, err := fmt.Fprintln(p.w, t.Render())
	return err
}

func (p *printer) viewResult(res models.ViewResult) error {
	if p.format == formatJSON {
		return p.json(res)
	}
	if res.Matched == 0 {
		_, err := fmt.Fprintln(p.w, "No wines match the filters.")
		return err
	}
	if err := p.records(res.Records); err != nil {
		return err
	}
	s := res.Summary
	_, err := fmt.Fprintf(p.w, "Showing %d of %d. Mean price %s, mean points %s, max price %s, max points %s\n",
		res.Shown, res.Matched,
		optional(s.MeanPrice, "€%.2f"),
		optional(s.MeanPoints, "%.1f"),
		optional(s.MaxPrice, "€%.2f"),
		optional(s.MaxPoints, "%d"),
	)
	return err
}

func optional[T any](v models.Optional[T], format string) string {
	if value, ok := v.Get(); ok {
		return fmt.Sprintf(format, value)
	}
	return "n/a"
}

func (p *printer) records(records []models.Record) error {
	if p.format == formatJSON {
		if records == nil {
			records = []models.Record{}
		}
		return p.json(records)
	}
	t := newTable(4, 5, 6).Headers("Title", "Country", "Winery", "Variety", "Points", "Price", "Points/€")
	for _, r := range records {
		t.Row(truncate(r.Title, 48), r.Country, truncate(r.Winery, 24), r.Variety,
			strconv.Itoa(r.Points),
			fmt.Sprintf("%.2f", r.Price),
			fmt.Sprintf("%.2f", r.PointsPerEuro()))
	}
	return p.render(t)
}

func (p *printer) ranking(ranking []models.CountryScore, bestValue models.Optional[string]) error {
	if p.format == formatJSON {
		return p.json(struct {
			Ranking   []models.CountryScore   `json:"ranking"`
			BestValue models.Optional[string] `json:"best_value"`
		}{ranking, bestValue})
	}
	t := newTable(0, 2, 3).Headers("#", "Country", "Mean points", "Wines")
	for i, c := range ranking {
		t.Row(strconv.Itoa(i+1), c.Country, fmt.Sprintf("%.2f", c.MeanPoints), strconv.Itoa(c.Wines))
	}
	if err := p.render(t); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.w, "Best value: %s\n", bestValue.OrElse("n/a"))
	return err
}

func (p *printer) options(opts models.FacetOptions) error {
	if p.format == formatJSON {
		return p.json(opts)
	}
	t := newTable(1).Headers("Facet", "Count", "Values")
	t.Row("countries", strconv.Itoa(len(opts.Countries)), preview(opts.Countries))
	t.Row("wineries", strconv.Itoa(len(opts.Wineries)), preview(opts.Wineries))
	t.Row("varieties", strconv.Itoa(len(opts.Varieties)), preview(opts.Varieties))
	return p.render(t)
}

const previewValues = 6

func preview(values []string) string {
	if len(values) <= previewValues {
		return strings.Join(values, ", ")
	}
	return strings.Join(values[:previewValues], ", ") + fmt.Sprintf(", … (+%d)", len(values)-previewValues)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
