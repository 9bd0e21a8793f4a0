// package formatter renders run reports as JSON, CSV or Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Format is a report output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat resolves a format name. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q (want json, csv or markdown)", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// Field is a labelled summary value.
type Field struct {
	Label string
	Value string
}

// Row is one track line of a report.
type Row struct {
	Title         string
	Artists       string
	Status        string
	Strategy      string
	Score         float64
	DestinationID string
	Note          string
}

// Report is the format-independent view of a finished run.
type Report struct {
	Title   string
	Success bool
	Summary []Field
	Rows    []Row
	Errors  []models.ExportError

	data any
}

// ReportFromMatches builds a report for a match-only run.
func ReportFromMatches(name string, matches []models.TrackMatch) *Report {
	s := models.Statistics(matches)
	return &Report{
		Title:   "Match report: " + name,
		Success: true,
		Summary: []Field{
			{"Total", strconv.Itoa(s.Total)},
			{"Matched", strconv.Itoa(s.Matched)},
			{"Ambiguous", strconv.Itoa(s.Ambiguous)},
			{"Unmatched", strconv.Itoa(s.Unmatched)},
			{"Match rate", fmt.Sprintf("%.1f%%", s.MatchedPercentage)},
		},
		Rows: matchRows(matches),
		data: map[string]any{"playlist": name, "statistics": s, "matches": matches},
	}
}

// ReportFromExport builds a report for a playlist export.
func ReportFromExport(r *models.ExportResult) *Report {
	s := r.Statistics
	return &Report{
		Title:   "Export report: " + r.PlaylistName,
		Success: r.Success,
		Summary: []Field{
			{"Mode", string(r.Mode)},
			{"Playlist ID", r.PlaylistID},
			{"Total", strconv.Itoa(s.Total)},
			{"Matched", strconv.Itoa(s.Matched)},
			{"Ambiguous", strconv.Itoa(s.Ambiguous)},
			{"Unmatched", strconv.Itoa(s.Unmatched)},
			{"Exported", strconv.Itoa(s.Exported)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"Already in playlist", strconv.Itoa(s.AlreadyInPlaylist)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Duration", r.Duration.Round(time.Millisecond).String()},
		},
		Rows:   matchRows(r.Matches),
		Errors: r.Errors,
		data:   r,
	}
}

// ReportFromFavorites builds a report for a favorites export.
func ReportFromFavorites(r *models.FavoritesExportResult) *Report {
	s := r.Statistics
	return &Report{
		Title:   "Favorites report",
		Success: r.Success,
		Summary: []Field{
			{"Total", strconv.Itoa(s.Total)},
			{"Starred", strconv.Itoa(s.Starred)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Duration", r.Duration.Round(time.Millisecond).String()},
		},
		Rows:   matchRows(r.Matches),
		Errors: r.Errors,
		data:   r,
	}
}

// ReportFromUpdate builds a report for an incremental update.
func ReportFromUpdate(r *models.UpdateResult) *Report {
	s := r.Statistics
	rows := make([]Row, 0, len(r.TracksAdded)+len(r.TracksSkipped))
	for _, t := range r.TracksAdded {
		rows = append(rows, Row{Title: t.Title, Status: "added", DestinationID: t.DestinationID})
	}
	for _, t := range r.TracksSkipped {
		rows = append(rows, Row{Title: t.Title, Status: "skipped", Note: t.Reason})
	}

	return &Report{
		Title:   "Update report: " + r.PlaylistName,
		Success: r.Success,
		Summary: []Field{
			{"Playlist ID", r.PlaylistID},
			{"Source tracks", strconv.Itoa(s.TotalSourceTracks)},
			{"Already in playlist", strconv.Itoa(s.AlreadyInPlaylist)},
			{"Added", strconv.Itoa(s.AddedToPlaylist)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"No match record", strconv.Itoa(s.NoMatchRecord)},
			{"Duration", r.Duration.Round(time.Millisecond).String()},
		},
		Rows:   rows,
		Errors: r.Errors,
		data:   r,
	}
}

func matchRows(matches []models.TrackMatch) []Row {
	rows := make([]Row, 0, len(matches))
	for _, m := range matches {
		row := Row{
			Title:    m.Source.Title,
			Artists:  m.Source.ArtistNames(),
			Status:   string(m.Status),
			Strategy: string(m.Strategy),
			Score:    m.Score,
		}
		if song, ok := m.Target(true); ok {
			row.DestinationID = song.ID
		}
		if m.Status == models.StatusAmbiguous {
			row.Note = fmt.Sprintf("%d candidates", len(m.Candidates))
		}
		rows = append(rows, row)
	}
	return rows
}

// ExportToJSON marshals the underlying result of r.
func ExportToJSON(r *Report) ([]byte, error) {
	return shared.MarshalJSON(r.data, true)
}

// ExportToCSV writes one record per row with columns: Title, Artists, Status, Strategy, Score, DestinationID, Note
func ExportToCSV(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Artists", "Status", "Strategy", "Score", "DestinationID", "Note"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range r.Rows {
		record := []string{
			row.Title,
			row.Artists,
			row.Status,
			row.Strategy,
			strconv.FormatFloat(row.Score, 'f', 3, 64),
			row.DestinationID,
			row.Note,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders r as a Markdown document with summary, tracks and errors sections
func ExportToMarkdown(r *Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", r.Title)
	status := "succeeded"
	if !r.Success {
		status = "failed"
	}
	fmt.Fprintf(&buf, "**Status**: %s\n\n", status)

	buf.WriteString("## Summary\n\n")
	summary := table.NewWriter()
	summary.AppendHeader(table.Row{"Field", "Value"})
	for _, f := range r.Summary {
		summary.AppendRow(table.Row{f.Label, f.Value})
	}
	buf.WriteString(summary.RenderMarkdown())
	buf.WriteString("\n\n")

	if len(r.Rows) > 0 {
		buf.WriteString("## Tracks\n\n")
		tracks := table.NewWriter()
		tracks.AppendHeader(table.Row{"#", "Title", "Artists", "Status", "Strategy", "Score", "Destination", "Note"})
		for i, row := range r.Rows {
			tracks.AppendRow(table.Row{
				i + 1, row.Title, row.Artists, row.Status, row.Strategy,
				fmt.Sprintf("%.2f", row.Score), row.DestinationID, row.Note,
			})
		}
		buf.WriteString(tracks.RenderMarkdown())
		buf.WriteString("\n\n")
	}

	if len(r.Errors) > 0 {
		buf.WriteString("## Errors\n\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&buf, "- %s\n", e.Error())
		}
	}

	return buf.Bytes(), nil
}

// Render writes r to w in format f.
func Render(w io.Writer, r *Report, f Format) error {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatCSV:
		data, err = ExportToCSV(r)
	case FormatMarkdown:
		data, err = ExportToMarkdown(r)
	default:
		data, err = ExportToJSON(r)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteReport writes r to path in format f and returns the path written.
//
// An empty path defaults to {slug of title}.{ext} in the working directory.
func WriteReport(r *Report, f Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.%s", slug(r.Title), f.Extension())
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := Render(file, r, f); err != nil {
		return "", err
	}
	return path, nil
}

// WriteManifest writes a bulk export summary as indented JSON.
func WriteManifest(result *models.BulkExportResult, path string) error {
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// slug lowercases s and keeps letters and digits, joining the rest with underscores.
func slug(s string) string {
	var b strings.Builder
	lastSep := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		case !lastSep:
			b.WriteByte('_')
			lastSep = true
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "report"
	}
	return out
}
