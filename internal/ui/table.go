package ui

import (
	"fmt"
	"io"

	"github.com/desertthunder/ndx/internal/formatter"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
)

// NewTable returns a go-pretty writer targeting w with the CLI's table style.
func NewTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if len(header) > 0 {
		t.AppendHeader(table.Row(header))
	}
	return t
}

// RenderSummary prints the summary fields of r as a two-column table.
func RenderSummary(w io.Writer, r *formatter.Report) {
	t := NewTable(w)
	t.SetTitle(r.Title)
	for _, f := range r.Summary {
		t.AppendRow(table.Row{f.Label, f.Value})
	}
	t.Render()
}

// RenderRows prints the track rows of r, one per line, with styled statuses.
func RenderRows(w io.Writer, r *formatter.Report) {
	if len(r.Rows) == 0 {
		return
	}
	t := NewTable(w, "#", "Title", "Artists", "Status", "Strategy", "Score", "Destination")
	for i, row := range r.Rows {
		t.AppendRow(table.Row{
			i + 1, row.Title, row.Artists, statusCell(row.Status), row.Strategy,
			fmt.Sprintf("%.2f", row.Score), row.DestinationID,
		})
	}
	t.Render()
}

// RenderErrors lists per-track failures under a warning heading.
func RenderErrors(w io.Writer, errs []models.ExportError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", styles.Warn(fmt.Sprintf("%d track(s) had problems:", len(errs))))
	for _, e := range errs {
		fmt.Fprintf(w, "  %s %s\n", styles.Err("✗"), e.Error())
	}
}

func statusCell(s string) string {
	switch models.MatchStatus(s) {
	case models.StatusMatched, models.StatusAmbiguous, models.StatusUnmatched:
		return styles.Status(models.MatchStatus(s))
	}
	return s
}
