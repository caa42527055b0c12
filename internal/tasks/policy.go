package tasks

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
)

// DefaultPromotionCadence is the number of downloads between promotions.
const DefaultPromotionCadence = 10

// DefaultPromotions is used when no promotions are configured.
var DefaultPromotions = []string{
	"🎵 Sponsored: try our partner bot @CoolMusicBot!",
	"🎧 Sponsored: discover new music with @MusicDiscoveryBot!",
	"🎸 Sponsored: the best playlists live at @TopPlaylistsBot!",
	"🎹 Sponsored: download music faster with @FastMusicBot!",
}

// Policy owns per-user mode and the engagement counter.
type Policy struct {
	store      Store
	promotions []string
	cadence    int
	intn       func(n int) int
	now        func() time.Time
}

// NewPolicy creates a [Policy] over store. Empty promotions and non-positive cadence use the defaults.
func NewPolicy(store Store, promotions []string, cadence int) *Policy {
	if len(promotions) == 0 {
		promotions = DefaultPromotions
	}
	if cadence <= 0 {
		cadence = DefaultPromotionCadence
	}
	return &Policy{
		store:      store,
		promotions: promotions,
		cadence:    cadence,
		intn:       rand.IntN,
		now:        time.Now,
	}
}

// EnsureProfile creates the user's profile if absent.
func (p *Policy) EnsureProfile(ctx context.Context, userID int64, displayName string) error {
	return p.store.EnsureProfile(ctx, userID, displayName)
}

// SetMode overwrites the user's display mode.
func (p *Policy) SetMode(ctx context.Context, userID int64, mode models.Mode) error {
	return p.store.SetMode(ctx, userID, mode)
}

// Mode returns the user's display mode. Unknown users are basic.
func (p *Policy) Mode(ctx context.Context, userID int64) (models.Mode, error) {
	profile, err := p.store.GetProfile(ctx, userID)
	if errors.Is(err, shared.ErrProfileNotFound) {
		return models.ModeBasic, nil
	}
	if err != nil {
		return models.ModeBasic, err
	}
	if profile.Mode != models.ModeExtended {
		return models.ModeBasic, nil
	}
	return profile.Mode, nil
}

// RecordDownload appends a history entry and returns the new interaction count.
func (p *Policy) RecordDownload(ctx context.Context, userID int64, track models.Track) (int, error) {
	return p.store.AppendDownload(ctx, userID, track, p.now().UTC())
}

// ShouldInjectPromotion reports whether count lands on the promotion cadence.
func (p *Policy) ShouldInjectPromotion(count int) bool {
	return count > 0 && count%p.cadence == 0
}

// PickPromotion returns one promotion chosen uniformly at random.
func (p *Policy) PickPromotion() string {
	return p.promotions[p.intn(len(p.promotions))]
}
