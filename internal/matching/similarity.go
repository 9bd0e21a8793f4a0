package matching

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/desertthunder/ndx/internal/models"
	"github.com/desertthunder/ndx/internal/shared"
)

const (
	titleWeight    = 0.55
	artistWeight   = 0.30
	durationWeight = 0.15

	// Durations this close score 1.0; the score falls linearly to 0 at durationCeiling.
	durationFloor   = 2
	durationCeiling = 30
)

// Similarity is the default [Scorer].
//
// Title and artist are compared with Jaro-Winkler over normalized text. Duration
// proximity contributes when both sides know their length; otherwise title and
// artist are reweighted 0.6/0.4.
func Similarity(track models.Track, song models.Song) float64 {
	jw := metrics.NewJaroWinkler()

	title := strutil.Similarity(shared.NormalizeText(track.Title), shared.NormalizeText(song.Title), jw)
	artist := artistSimilarity(track.Artists, song.Artist, jw)

	if track.Duration <= 0 || song.Duration <= 0 {
		return clamp(0.6*title + 0.4*artist)
	}
	return clamp(titleWeight*title + artistWeight*artist + durationWeight*DurationProximity(track.Duration, song.Duration))
}

// DurationProximity maps the absolute difference of two lengths in seconds to [0,1].
func DurationProximity(a, b int) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= durationFloor:
		return 1
	case diff >= durationCeiling:
		return 0
	default:
		return 1 - float64(diff-durationFloor)/float64(durationCeiling-durationFloor)
	}
}

// artistSimilarity returns the best score between any source artist and any name in the destination credit.
func artistSimilarity(artists []string, credit string, jw *metrics.JaroWinkler) float64 {
	names := append([]string{credit}, splitArtists(credit)...)

	var best float64
	for _, a := range artists {
		na := shared.NormalizeText(a)
		for _, n := range names {
			best = max(best, strutil.Similarity(na, shared.NormalizeText(n), jw))
		}
	}
	return best
}

var artistSeparators = strings.NewReplacer(" feat. ", ";", " ft. ", ";", " & ", ";", ", ", ";", " / ", ";", " x ", ";")

func splitArtists(credit string) []string {
	parts := strings.Split(artistSeparators.Replace(credit), ";")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
