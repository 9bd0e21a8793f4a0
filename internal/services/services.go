// package services implements the remote catalogs ndx moves music between:
// Spotify as the source and Navidrome as the destination
package services

import (
	"github.com/desertthunder/ndx/internal/matching"
	"github.com/desertthunder/ndx/internal/tasks"
)

var (
	_ tasks.Source      = (*SpotifyService)(nil)
	_ tasks.Destination = (*NavidromeService)(nil)
	_ tasks.Starrer     = (*NavidromeService)(nil)
	_ matching.Catalog  = (*NavidromeService)(nil)
)
