package models

// MatchStrategy names the cascade stage that produced a verdict.
type MatchStrategy string

const (
	StrategyISRC   MatchStrategy = "isrc"
	StrategyStrict MatchStrategy = "strict"
	StrategyFuzzy  MatchStrategy = "fuzzy"
	StrategyNone   MatchStrategy = "none"
)

// MatchStatus is the outcome class of a [TrackMatch].
type MatchStatus string

const (
	StatusMatched   MatchStatus = "matched"
	StatusAmbiguous MatchStatus = "ambiguous"
	StatusUnmatched MatchStatus = "unmatched"
)

// TrackMatch pairs a source track with its destination verdict.
//
// Matched implies Song is set; unmatched and ambiguous leave it nil.
// Ambiguous matches carry more than one candidate, best first.
type TrackMatch struct {
	Source     Track         `json:"source"`
	Song       *Song         `json:"song,omitempty"`
	Score      float64       `json:"score"`
	Strategy   MatchStrategy `json:"strategy"`
	Status     MatchStatus   `json:"status"`
	Candidates []Song        `json:"candidates,omitempty"`
}

// Unmatched builds the terminal verdict for a track no strategy could resolve.
func Unmatched(track Track) TrackMatch {
	return TrackMatch{Source: track, Strategy: StrategyNone, Status: StatusUnmatched}
}

// Target returns the song an export would use for this match.
//
// Matched tracks yield their song. Ambiguous tracks yield the top candidate only when includeAmbiguous is set.
func (m TrackMatch) Target(includeAmbiguous bool) (Song, bool) {
	switch m.Status {
	case StatusMatched:
		if m.Song != nil {
			return *m.Song, true
		}
	case StatusAmbiguous:
		if includeAmbiguous && len(m.Candidates) > 0 {
			return m.Candidates[0], true
		}
	}
	return Song{}, false
}

// CachedTrackMatch is the persisted projection of a [TrackMatch], keyed by source track id.
type CachedTrackMatch struct {
	SourceTrackID     string        `json:"source_track_id"`
	DestinationSongID string        `json:"destination_song_id,omitempty"`
	Status            MatchStatus   `json:"status"`
	Strategy          MatchStrategy `json:"strategy"`
	Score             float64       `json:"score"`
}

// CachedMatches maps source track ids to their cached verdicts.
type CachedMatches map[string]CachedTrackMatch

// NewCachedMatches projects matches into a cache map.
//
// Only matched tracks record a destination song id.
func NewCachedMatches(matches []TrackMatch) CachedMatches {
	cache := make(CachedMatches, len(matches))
	for _, m := range matches {
		entry := CachedTrackMatch{
			SourceTrackID: m.Source.ID,
			Status:        m.Status,
			Strategy:      m.Strategy,
			Score:         m.Score,
		}
		if m.Status == StatusMatched && m.Song != nil {
			entry.DestinationSongID = m.Song.ID
		}
		cache[m.Source.ID] = entry
	}
	return cache
}

// MatchStatistics summarizes a batch of matches.
type MatchStatistics struct {
	Total             int     `json:"total"`
	Matched           int     `json:"matched"`
	Ambiguous         int     `json:"ambiguous"`
	Unmatched         int     `json:"unmatched"`
	MatchedPercentage float64 `json:"matched_percentage"`
}

// Statistics counts matches per status.
func Statistics(matches []TrackMatch) MatchStatistics {
	stats := MatchStatistics{Total: len(matches)}
	for _, m := range matches {
		switch m.Status {
		case StatusMatched:
			stats.Matched++
		case StatusAmbiguous:
			stats.Ambiguous++
		default:
			stats.Unmatched++
		}
	}
	if stats.Total > 0 {
		stats.MatchedPercentage = float64(stats.Matched) / float64(stats.Total) * 100
	}
	return stats
}
