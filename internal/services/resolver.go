package services

import (
	"context"

	"github.com/desertthunder/melodyforge/internal/models"
)

const (
	DefaultSearchLimit    = 5
	DefaultRecommendLimit = 10
)

// Resolver turns queries and seed tracks into ranked candidates.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a [Resolver] over catalog.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve returns up to limit candidates for a free-text query. Non-positive limits use [DefaultSearchLimit].
func (r *Resolver) Resolve(ctx context.Context, query string, limit int) []models.Track {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return r.catalog.SearchTracks(ctx, query, limit)
}

// Recommend returns up to limit tracks similar to (artist, title). Non-positive limits use [DefaultRecommendLimit].
func (r *Resolver) Recommend(ctx context.Context, artist, title string, limit int) []models.Track {
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}
	return r.catalog.SimilarTracks(ctx, artist, title, limit)
}

// Top returns the global chart.
func (r *Resolver) Top(ctx context.Context, limit int) []models.Track {
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}
	return r.catalog.TopTracks(ctx, limit)
}

// ArtistTop returns an artist's most popular tracks.
func (r *Resolver) ArtistTop(ctx context.Context, artist string, limit int) []models.Track {
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}
	return r.catalog.ArtistTopTracks(ctx, artist, limit)
}
