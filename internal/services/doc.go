// Package services talks to the music services on either side of a transfer.
//
// # Spotify
//
// [SpotifyService] wraps the zmb3/spotify client. With a user access or refresh token it uses a
// refreshable [oauth2] token source, otherwise the client-credentials flow. Saved tracks
// require a user token. All requests, including pagination, pass through a sliding-window
// limiter so bursts stay under the Web API quota.
//
// # Navidrome
//
// [NavidromeService] speaks the Subsonic REST protocol through [SubsonicAPI], which signs every
// request with token authentication (md5 of password and a fresh salt), asks for JSON and
// unwraps the "subsonic-response" envelope. Protocol errors surface as [*SubsonicError] and
// unwrap to the shared sentinels:
//
//	40, 41, 50  shared.ErrAuthFailed
//	70          shared.ErrPlaylistNotFound
//	otherwise   shared.ErrAPIRequest
//
// Playlist entries are removed by index (songIndexToRemove), matching the protocol.
package services
