package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
	th "github.com/desertthunder/ndx/internal/testing"
)

func sampleExport() *models.ExportResult {
	matches := []models.TrackMatch{
		{
			Source:   models.Track{ID: "t1", Title: "Karma Police", Artists: []string{"Radiohead"}},
			Song:     &models.Song{ID: "s1", Title: "Karma Police", Artist: "Radiohead"},
			Score:    1,
			Strategy: models.StrategyISRC,
			Status:   models.StatusMatched,
		},
		{
			Source:     models.Track{ID: "t2", Title: "Intro", Artists: []string{"The xx", "Jamie xx"}},
			Score:      0.86,
			Strategy:   models.StrategyFuzzy,
			Status:     models.StatusAmbiguous,
			Candidates: []models.Song{{ID: "s2"}, {ID: "s3"}},
		},
		models.Unmatched(models.Track{ID: "t3", Title: "Demo, Take 2", Artists: []string{"Nobody"}}),
	}

	return &models.ExportResult{
		Success:      true,
		PlaylistID:   "pl-9",
		PlaylistName: "Road Trip",
		Mode:         models.ModeCreate,
		Statistics:   models.ExportStatistics{Total: 3, Matched: 1, Ambiguous: 1, Unmatched: 1, Exported: 1, Skipped: 2},
		Matches:      matches,
		Errors:       []models.ExportError{{TrackName: "Demo, Take 2", ArtistName: "Nobody", Reason: "no match found"}},
		Duration:     1234 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatJSON},
		{"json", FormatJSON},
		{"CSV", FormatCSV},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Extension", func(t *testing.T) {
		if FormatMarkdown.Extension() != "md" || FormatCSV.Extension() != "csv" {
			t.Error("unexpected extension")
		}
	})
}

func TestReports(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(ReportFromExport(sampleExport()))
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected header + 3 rows, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "Title,Artists,Status,Strategy,Score,DestinationID,Note" {
			t.Errorf("unexpected headers %v", records[0])
		}
		if records[1][4] != "1.000" || records[1][5] != "s1" {
			t.Errorf("unexpected matched row %v", records[1])
		}
		if records[2][1] != "The xx, Jamie xx" || records[2][5] != "s2" || records[2][6] != "2 candidates" {
			t.Errorf("unexpected ambiguous row %v", records[2])
		}
		if records[3][0] != "Demo, Take 2" || records[3][2] != "unmatched" || records[3][5] != "" {
			t.Errorf("unexpected unmatched row %v", records[3])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(ReportFromExport(sampleExport()))
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"# Export report: Road Trip",
			"**Status**: succeeded",
			"## Summary",
			"| Mode | create |",
			"## Tracks",
			"Karma Police",
			"## Errors",
			"- Demo, Take 2 - Nobody: no match found",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("markdown missing %q", want)
			}
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(ReportFromExport(sampleExport()))
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded models.ExportResult
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.PlaylistID != "pl-9" || len(decoded.Matches) != 3 {
			t.Errorf("unexpected decoded result %+v", decoded)
		}
	})

	t.Run("ReportFromUpdate", func(t *testing.T) {
		r := ReportFromUpdate(&models.UpdateResult{
			Success:       true,
			PlaylistID:    "pl-1",
			PlaylistName:  "Focus",
			Statistics:    models.UpdateStatistics{TotalSourceTracks: 3, AlreadyInPlaylist: 2, AddedToPlaylist: 1},
			TracksAdded:   []models.AddedTrack{{SourceID: "t1", DestinationID: "s1", Title: "New"}},
			TracksSkipped: []models.SkippedTrack{{SourceID: "t2", Title: "Old", Reason: "Already in playlist"}},
		})

		if len(r.Rows) != 2 || r.Rows[0].Status != "added" || r.Rows[1].Note != "Already in playlist" {
			t.Errorf("unexpected rows %+v", r.Rows)
		}
		if r.Title != "Update report: Focus" {
			t.Errorf("unexpected title %q", r.Title)
		}
	})

	t.Run("ReportFromFavorites", func(t *testing.T) {
		r := ReportFromFavorites(&models.FavoritesExportResult{
			Statistics: models.FavoritesStatistics{Total: 2, Starred: 1, Failed: 1},
		})
		if r.Success {
			t.Error("expected failed report")
		}
		if r.Summary[1].Label != "Starred" || r.Summary[1].Value != "1" {
			t.Errorf("unexpected summary %+v", r.Summary)
		}
	})

	t.Run("ReportFromMatches", func(t *testing.T) {
		r := ReportFromMatches("Road Trip", sampleExport().Matches)
		if len(r.Rows) != 3 {
			t.Errorf("expected 3 rows, got %d", len(r.Rows))
		}
		if r.Summary[4].Value != "33.3%" {
			t.Errorf("expected 33.3%% match rate, got %s", r.Summary[4].Value)
		}
	})
}

func TestRender(t *testing.T) {
	t.Run("Write Failure", func(t *testing.T) {
		err := Render(&th.FWriter{}, ReportFromExport(sampleExport()), FormatCSV)
		if err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("Writes Once", func(t *testing.T) {
		var buf bytes.Buffer
		w := th.NewLimitedWriter(1, 0, &buf)
		if err := Render(&w, ReportFromExport(sampleExport()), FormatMarkdown); err != nil {
			t.Fatalf("expected single write to succeed, got %v", err)
		}
		if buf.Len() == 0 {
			t.Error("expected output")
		}
	})
}

func TestWriteReport(t *testing.T) {
	t.Run("Explicit Path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports", "run.csv")

		written, err := WriteReport(ReportFromExport(sampleExport()), FormatCSV, path)
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}

		th.AssertFileExists(t, path)
		if !strings.HasPrefix(th.MustReadFile(t, path), "Title,Artists") {
			t.Error("expected CSV content")
		}
	})

	t.Run("Default Path", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		written, err := WriteReport(ReportFromExport(sampleExport()), FormatMarkdown, "")
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if written != "export_report_road_trip.md" {
			t.Errorf("unexpected default path %s", written)
		}
		th.AssertFileExists(t, filepath.Join(dir, written))
	})

	t.Run("Unwritable Path", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := WriteReport(ReportFromExport(sampleExport()), FormatJSON, filepath.Join(blocker, "r.json")); err == nil {
			t.Error("expected error writing below a regular file")
		}
	})
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export_manifest.json")
	result := &models.BulkExportResult{
		TotalPlaylists:    2,
		SuccessfulExports: 1,
		FailedExports:     1,
		Results: []models.PlaylistExportSummary{
			{Source: "a", PlaylistName: "A", Success: true},
			{Source: "b", Error: "playlist not found"},
		},
	}

	if err := WriteManifest(result, path); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	var decoded models.BulkExportResult
	if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &decoded); err != nil {
		t.Fatalf("invalid manifest JSON: %v", err)
	}
	if decoded.FailedExports != 1 || decoded.Results[1].Error != "playlist not found" {
		t.Errorf("unexpected manifest %+v", decoded)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Export report: Road Trip": "export_report_road_trip",
		"  ":                       "report",
		"Café -- Mix!":             "caf_mix",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
