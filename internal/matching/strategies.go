package matching

import (
	"cmp"
	"slices"

	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

// matchStrict accepts exactly one candidate whose normalized title and artist equal the track's.
func matchStrict(track models.Track, candidates []models.Song) (models.TrackMatch, bool) {
	title := shared.NormalizeText(track.Title)
	artist := shared.NormalizeText(track.PrimaryArtist())
	if title == "" {
		return models.TrackMatch{}, false
	}

	var hits []models.Song
	for _, c := range candidates {
		if shared.NormalizeText(c.Title) == title && artistMatches(artist, c.Artist) {
			hits = append(hits, c)
		}
	}
	if len(hits) != 1 {
		return models.TrackMatch{}, false
	}

	song := hits[0]
	return models.TrackMatch{
		Source:   track,
		Song:     &song,
		Score:    1.0,
		Strategy: models.StrategyStrict,
		Status:   models.StatusMatched,
	}, true
}

// artistMatches compares a normalized artist to a destination credit that may list several names.
func artistMatches(artist, credit string) bool {
	if shared.NormalizeText(credit) == artist {
		return true
	}
	for _, name := range splitArtists(credit) {
		if shared.NormalizeText(name) == artist {
			return true
		}
	}
	return false
}

type scored struct {
	song  models.Song
	score float64
}

// scoreEpsilon absorbs float error so a runner-up exactly at the margin still ties.
const scoreEpsilon = 1e-9

// matchFuzzy scores every candidate and applies the threshold and tie margin.
//
// It reports false only when the best score is below the threshold.
func matchFuzzy(track models.Track, candidates []models.Song, opts Options) (models.TrackMatch, bool) {
	if len(candidates) == 0 {
		return models.TrackMatch{}, false
	}

	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{song: c, score: clamp(opts.Scorer(track, c))}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int { return cmp.Compare(b.score, a.score) })

	best := ranked[0]
	if best.score < opts.FuzzyThreshold {
		return models.TrackMatch{}, false
	}

	var tied []models.Song
	for _, r := range ranked {
		if r.score < opts.FuzzyThreshold || best.score-r.score > opts.TieMargin+scoreEpsilon {
			break
		}
		tied = append(tied, r.song)
	}

	if len(tied) > 1 {
		return models.TrackMatch{
			Source:     track,
			Score:      best.score,
			Strategy:   models.StrategyFuzzy,
			Status:     models.StatusAmbiguous,
			Candidates: tied,
		}, true
	}

	song := best.song
	return models.TrackMatch{
		Source:   track,
		Song:     &song,
		Score:    best.score,
		Strategy: models.StrategyFuzzy,
		Status:   models.StatusMatched,
	}, true
}

func clamp(v float64) float64 {
	return max(0, min(1, v))
}
