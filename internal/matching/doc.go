// Package matching resolves source tracks to destination songs.
//
// A [Matcher] runs a fixed cascade for each track, stopping at the first confident verdict:
//
//  1. ISRC: direct lookup of the recording code in the destination catalog.
//  2. Strict: normalized title and primary artist equality against search results.
//  3. Fuzzy: similarity scoring with a threshold and a tie margin.
//
// Tracks that fall through every enabled stage are unmatched. [Matcher.MatchTracks]
// drives the cascade over a playlist sequentially, reporting progress after each track.
package matching
