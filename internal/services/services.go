// package services defines the [Catalog] interface for the music metadata service and the [Resolver] built on it
package services

import (
	"context"

	"github.com/desertthunder/melodyforge/internal/models"
)

// Catalog is the read-only metadata service. None of its methods fail: an unavailable upstream
// yields an empty, non-nil slice.
type Catalog interface {
	// SearchTracks returns up to limit tracks matching a free-text query.
	SearchTracks(ctx context.Context, query string, limit int) []models.Track

	// SimilarTracks returns up to limit tracks similar to (artist, title).
	SimilarTracks(ctx context.Context, artist, title string, limit int) []models.Track

	// TopTracks returns the global chart.
	TopTracks(ctx context.Context, limit int) []models.Track

	// ArtistTopTracks returns an artist's most popular tracks.
	ArtistTopTracks(ctx context.Context, artist string, limit int) []models.Track

	// Name returns the name of the service (e.g., "Last.fm")
	Name() string
}
