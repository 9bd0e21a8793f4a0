package matching

import (
	"context"

	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

// Progress is emitted after each track of a batch.
type Progress struct {
	Current      int
	Total        int
	Percent      float64
	CurrentTrack models.Track
}

// ProgressFunc receives [Progress] events. It runs on the matching goroutine.
type ProgressFunc func(Progress)

// BatchResult holds matches in input order with their summary.
type BatchResult struct {
	Matches    []models.TrackMatch
	Statistics models.MatchStatistics
}

// MatchTracks runs the cascade over tracks one at a time, in order.
//
// The context is checked before every track; once it is done the batch is abandoned
// and an error wrapping [shared.ErrCancelled] is returned without partial matches.
func (m *Matcher) MatchTracks(ctx context.Context, tracks []models.Track, onProgress ProgressFunc) (*BatchResult, error) {
	matches := make([]models.TrackMatch, 0, len(tracks))
	total := len(tracks)

	for i, track := range tracks {
		if err := shared.Cancelled(ctx); err != nil {
			m.logger.Info("matching cancelled", "processed", i, "total", total)
			return nil, err
		}

		match, err := m.Match(ctx, track)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)

		m.logger.Debug("matched track",
			"title", track.Title,
			"status", match.Status,
			"strategy", match.Strategy,
			"score", match.Score,
		)

		if onProgress != nil {
			onProgress(Progress{
				Current:      i + 1,
				Total:        total,
				Percent:      float64(i+1) / float64(total) * 100,
				CurrentTrack: track,
			})
		}
	}

	stats := models.Statistics(matches)
	m.logger.Info("matching complete",
		"total", stats.Total,
		"matched", stats.Matched,
		"ambiguous", stats.Ambiguous,
		"unmatched", stats.Unmatched,
	)
	return &BatchResult{Matches: matches, Statistics: stats}, nil
}
