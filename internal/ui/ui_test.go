package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/desertthunder/ndx/internal/formatter"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/tasks"
)

func TestPalette(t *testing.T) {
	p := Styles()

	t.Run("Status", func(t *testing.T) {
		tests := []struct {
			status models.MatchStatus
			want   string
		}{
			{models.StatusMatched, "✓ matched"},
			{models.StatusAmbiguous, "? ambiguous"},
			{models.StatusUnmatched, "✗ unmatched"},
		}
		for _, tt := range tests {
			if got := p.Status(tt.status); !strings.Contains(got, tt.want) {
				t.Errorf("Status(%s) = %q, want it to contain %q", tt.status, got, tt.want)
			}
		}
	})

	t.Run("Mark", func(t *testing.T) {
		if !strings.Contains(p.Mark(true), "✓") {
			t.Error("expected check mark for success")
		}
		if !strings.Contains(p.Mark(false), "✗") {
			t.Error("expected cross for failure")
		}
	})
}

func TestTables(t *testing.T) {
	song := models.Song{ID: "nd-1", Title: "Song A", Artist: "Artist"}
	matches := []models.TrackMatch{
		{Source: models.Track{ID: "t1", Title: "Song A", Artists: []string{"Artist"}}, Song: &song, Score: 1, Strategy: models.StrategyISRC, Status: models.StatusMatched},
		models.Unmatched(models.Track{ID: "t2", Title: "Song B", Artists: []string{"Other"}}),
	}
	report := formatter.ReportFromMatches("Road Trip", matches)

	t.Run("RenderSummary", func(t *testing.T) {
		var buf bytes.Buffer
		RenderSummary(&buf, report)
		out := buf.String()
		for _, f := range report.Summary {
			if !strings.Contains(out, f.Label) {
				t.Errorf("expected %q in summary, got:\n%s", f.Label, out)
			}
		}
	})

	t.Run("RenderRows", func(t *testing.T) {
		var buf bytes.Buffer
		RenderRows(&buf, report)
		out := buf.String()
		for _, want := range []string{"Song A", "Song B", "nd-1", "isrc", "matched", "unmatched"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in rows, got:\n%s", want, out)
			}
		}
	})

	t.Run("RenderRows without rows", func(t *testing.T) {
		var buf bytes.Buffer
		RenderRows(&buf, &formatter.Report{Title: "empty"})
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})

	t.Run("RenderErrors", func(t *testing.T) {
		var buf bytes.Buffer
		RenderErrors(&buf, []models.ExportError{{TrackName: "Song B", ArtistName: "Other", Reason: "no match"}})
		out := buf.String()
		if !strings.Contains(out, "1 track(s) had problems") || !strings.Contains(out, "Song B - Other: no match") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

func TestProgressPrinter(t *testing.T) {
	updates := []tasks.ProgressUpdate{
		{Phase: tasks.Matching, Total: 2, Message: "Matching tracks..."},
		{Phase: tasks.Matching, Current: 1, Total: 2, Message: "[1/2] Artist - Song A"},
		{Phase: tasks.Matching, Current: 2, Total: 2, Message: "[2/2] Other - Song B"},
		{Phase: tasks.Exporting, Total: 1, Message: "Exporting tracks..."},
		{Phase: tasks.Exporting, Current: 1, Total: 1, Percent: 100, Message: "batch 1/1"},
		{Phase: tasks.Completed, Current: 1, Total: 1, Percent: 100, Message: "Export complete"},
	}

	t.Run("quiet", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewProgressPrinter(&buf, false)
		for _, u := range updates {
			p.Update(u)
		}
		out := buf.String()
		if strings.Contains(out, "[1/2]") {
			t.Errorf("expected track lines to be suppressed, got:\n%s", out)
		}
		for _, want := range []string{"🔍 Matching tracks...", "matched 2/2 tracks", "📝 Exporting tracks...", "batch 1/1 (100%)", "Export complete"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got:\n%s", want, out)
			}
		}
	})

	t.Run("verbose", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewProgressPrinter(&buf, true)
		for _, u := range updates {
			p.Update(u)
		}
		if !strings.Contains(buf.String(), "[1/2] Artist - Song A") {
			t.Errorf("expected track lines, got:\n%s", buf.String())
		}
	})

	t.Run("failure", func(t *testing.T) {
		var buf bytes.Buffer
		NewProgressPrinter(&buf, false).Update(tasks.ProgressUpdate{Phase: tasks.Failed, Message: "boom"})
		if !strings.Contains(buf.String(), "✗") || !strings.Contains(buf.String(), "boom") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}
