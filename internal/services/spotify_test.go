package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/ndx/internal/ratelimit"
	"github.com/desertthunder/ndx/internal/shared"
	"github.com/zmb3/spotify/v2"
)

func spotifyTrackJSON(id, name, artist string, durationMS int, isrc string) map[string]any {
	return map[string]any{
		"id":           id,
		"name":         name,
		"artists":      []map[string]any{{"id": artist + "-id", "name": artist}},
		"album":        map[string]any{"id": "alb", "name": name + " (Album)"},
		"duration_ms":  durationMS,
		"external_ids": map[string]string{"isrc": isrc},
	}
}

func newTestSpotify(t *testing.T, mux *http.ServeMux) (*SpotifyService, *ratelimit.Limiter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	limiter := ratelimit.New(100, time.Minute)
	client := spotify.New(srv.Client(), spotify.WithBaseURL(srv.URL+"/"))
	return NewSpotifyServiceWithClient(client, limiter, nil), limiter, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewSpotifyService(t *testing.T) {
	limits := shared.DefaultConfig().RateLimit

	t.Run("Missing Client ID", func(t *testing.T) {
		_, err := NewSpotifyService(context.Background(), shared.SpotifyConfig{ClientSecret: "s"}, limits, nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Missing Secret Without Token", func(t *testing.T) {
		_, err := NewSpotifyService(context.Background(), shared.SpotifyConfig{ClientID: "id"}, limits, nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Client Credentials", func(t *testing.T) {
		svc, err := NewSpotifyService(context.Background(), shared.SpotifyConfig{ClientID: "id", ClientSecret: "s"}, limits, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.Name() != "Spotify" {
			t.Errorf("unexpected name %s", svc.Name())
		}
	})

	t.Run("User Token", func(t *testing.T) {
		creds := shared.SpotifyConfig{ClientID: "id", AccessToken: "a", RefreshToken: "r"}
		if _, err := NewSpotifyService(context.Background(), creds, limits, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Playlists Paginates", func(t *testing.T) {
		mux := http.NewServeMux()
		var base string
		mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("offset") == "1" {
				writeJSON(w, http.StatusOK, map[string]any{
					"items": []map[string]any{{"id": "p2", "name": "Focus", "tracks": map[string]any{"total": 3}}},
					"total": 2, "offset": 1, "limit": 1,
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []map[string]any{{"id": "p1", "name": "Road Trip", "public": true, "tracks": map[string]any{"total": 12}}},
				"total": 2, "offset": 0, "limit": 1,
				"next": base + "/me/playlists?offset=1&limit=1",
			})
		})
		svc, limiter, srv := newTestSpotify(t, mux)
		base = srv.URL

		playlists, err := svc.Playlists(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].ID != "p1" || playlists[0].TrackCount != 12 || !playlists[0].Public {
			t.Errorf("unexpected first playlist %+v", playlists[0])
		}
		if playlists[1].Name != "Focus" {
			t.Errorf("unexpected second playlist %+v", playlists[1])
		}
		if got := limiter.Remaining(); got != 98 {
			t.Errorf("expected 2 limiter slots used, %d remain", got)
		}
	})

	t.Run("PlaylistTracks Skips Local Files", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/playlists/p1", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"id": "p1", "name": "Road Trip", "description": "summer",
				"tracks": map[string]any{
					"items": []map[string]any{
						{"is_local": false, "track": spotifyTrackJSON("t1", "Karma Police", "Radiohead", 264000, "GBAYE9700379")},
						{"is_local": true, "track": spotifyTrackJSON("", "home demo", "me", 1000, "")},
						{"is_local": false, "track": spotifyTrackJSON("t2", "Breathe", "Pink Floyd", 163000, "")},
					},
					"total": 3,
				},
			})
		})
		svc, _, _ := newTestSpotify(t, mux)

		playlist, tracks, err := svc.PlaylistTracks(ctx, "p1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.Name != "Road Trip" || playlist.Description != "summer" || playlist.TrackCount != 2 {
			t.Errorf("unexpected playlist %+v", playlist)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}

		first := tracks[0]
		if first.ID != "t1" || first.Title != "Karma Police" || first.PrimaryArtist() != "Radiohead" {
			t.Errorf("unexpected track %+v", first)
		}
		if first.Duration != 264 || first.ISRC != "GBAYE9700379" || first.Album != "Karma Police (Album)" {
			t.Errorf("unexpected track details %+v", first)
		}
	})

	t.Run("PlaylistTracks Not Found", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/playlists/missing", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"status": 404, "message": "Not found."}})
		})
		svc, _, _ := newTestSpotify(t, mux)

		if _, _, err := svc.PlaylistTracks(ctx, "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("PlaylistTracks Requires ID", func(t *testing.T) {
		svc, _, _ := newTestSpotify(t, http.NewServeMux())
		if _, _, err := svc.PlaylistTracks(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("SavedTracks", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/me/tracks", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []map[string]any{
					{"added_at": "2024-01-01T00:00:00Z", "track": spotifyTrackJSON("t1", "Teardrop", "Massive Attack", 330000, "GBAAA9800001")},
				},
				"total": 1,
			})
		})
		svc, _, _ := newTestSpotify(t, mux)

		tracks, err := svc.SavedTracks(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].Title != "Teardrop" || tracks[0].Duration != 330 {
			t.Errorf("unexpected tracks %+v", tracks)
		}
	})

	t.Run("SavedTracks Unauthorized", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/me/tracks", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"status": 401, "message": "Invalid access token"}})
		})
		svc, _, _ := newTestSpotify(t, mux)

		if _, err := svc.SavedTracks(ctx); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Search", func(t *testing.T) {
		mux := http.NewServeMux()
		var queries []string
		mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
			queries = append(queries, r.URL.Query().Get("q"))
			writeJSON(w, http.StatusOK, map[string]any{
				"tracks": map[string]any{"items": []map[string]any{
					spotifyTrackJSON("t9", "Windowlicker", "Aphex Twin", 367000, "GBBPW9900001"),
				}},
			})
		})
		svc, _, _ := newTestSpotify(t, mux)

		track, err := svc.SearchByISRC(ctx, "GBBPW9900001")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if track == nil || track.ID != "t9" {
			t.Errorf("unexpected track %+v", track)
		}

		tracks, err := svc.SearchByTitleArtist(ctx, "Windowlicker", "Aphex Twin")
		if err != nil || len(tracks) != 1 {
			t.Fatalf("expected one track, got %v, %v", tracks, err)
		}

		if len(queries) != 2 || queries[0] != "isrc:GBBPW9900001" || queries[1] != "track:Windowlicker artist:Aphex Twin" {
			t.Errorf("unexpected queries %v", queries)
		}
	})

	t.Run("Cancelled Before Request", func(t *testing.T) {
		svc, limiter, _ := newTestSpotify(t, http.NewServeMux())
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := svc.Playlists(cctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if limiter.Remaining() != 100 {
			t.Error("expected no slot to be used")
		}
	})
}
