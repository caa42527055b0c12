// package tasks implements the engine that answers front-end requests.
//
// The core abstraction is [Engine], which resolves queries into selectable rows and turns selections into delivered audio.
// Handlers emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/services"
	"github.com/desertthunder/melodyforge/internal/shared"
	"github.com/desertthunder/melodyforge/internal/tokens"
)

const (
	basicRows    = 5
	extendedRows = 3
	similarRows  = 5
	topRows      = 10
	mixSeeds     = 5
	mixRows      = 10
	historyRows  = 10
)

// Store is the persistence the engine needs. [repositories.ProfileRepository] implements it.
type Store interface {
	EnsureProfile(ctx context.Context, userID int64, username string) error
	GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error)
	SetMode(ctx context.Context, userID int64, mode models.Mode) error
	AppendDownload(ctx context.Context, userID int64, track models.Track, at time.Time) (int, error)
	ListRecentDownloads(ctx context.Context, userID int64, limit int) ([]models.DownloadRecord, error)
}

// Downloader produces local audio for a track. [downloader.Pipeline] implements it.
type Downloader interface {
	Download(ctx context.Context, track models.Track) (*models.DownloadResult, error)
	Release(result *models.DownloadResult) error
}

// EngineOption configures an [Engine].
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPromotions overrides the promotion set and cadence.
func WithPromotions(promotions []string, cadence int) EngineOption {
	return func(e *Engine) {
		e.promotions = promotions
		e.cadence = cadence
	}
}

// WithRandom replaces the source used for mix seeds and promotions. intn must be safe for concurrent use.
func WithRandom(intn func(n int) int) EngineOption {
	return func(e *Engine) {
		if intn != nil {
			e.intn = intn
		}
	}
}

// WithClock replaces time.Now for download timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine is the facade front-ends talk to. It holds no per-request state.
type Engine struct {
	catalog    services.Catalog
	resolver   *services.Resolver
	downloader Downloader
	policy     *Policy
	logger     *log.Logger

	promotions []string
	cadence    int
	intn       func(n int) int
	now        func() time.Time
}

// NewEngine creates an [Engine] from its collaborators.
func NewEngine(catalog services.Catalog, downloader Downloader, store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:    catalog,
		resolver:   services.NewResolver(catalog),
		downloader: downloader,
		logger:     shared.NewLogger(nil),
		intn:       rand.IntN,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.policy = NewPolicy(store, e.promotions, e.cadence)
	e.policy.intn = e.intn
	e.policy.now = e.now
	e.logger = e.logger.With("component", "engine")
	return e
}

// Policy exposes the session policy.
func (e *Engine) Policy() *Policy {
	return e.policy
}

// Handle answers one request. It never panics on bad input and always returns a response.
func (e *Engine) Handle(ctx context.Context, req Request) *Response {
	e.logger.Debug("handling request", "kind", req.Kind, "user", req.UserID)

	if err := e.policy.EnsureProfile(ctx, req.UserID, req.DisplayName); err != nil {
		e.logger.Error("failed to ensure profile", "user", req.UserID, "error", err)
	}

	var resp *Response
	switch req.Kind {
	case KindFreeText:
		resp = e.search(ctx, req)
	case KindSelection:
		resp = e.selection(ctx, req)
	case KindTopChart:
		resp = e.top(ctx, req)
	case KindMix:
		resp = e.mix(ctx, req)
	case KindStart:
		resp = e.start(req)
	case KindSetMode:
		resp = e.setMode(ctx, req)
	case KindHistory:
		resp = e.history(ctx, req)
	case KindArtistTop:
		resp = e.artistTop(ctx, req)
	default:
		resp = &Response{Text: "❓ Unknown request.", Err: fmt.Errorf("%w: %s", shared.ErrUnknownRequest, req.Kind)}
	}

	sendProgress(req.Progress, ProgressUpdate{Phase: PhaseDone, Message: resp.Text})
	return resp
}

func (e *Engine) search(ctx context.Context, req Request) *Response {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return &Response{Text: "🔍 Send a track or artist name to search.", Err: shared.ErrInvalidInput}
	}

	sendProgress(req.Progress, searchUpdate(query))
	tracks := e.resolver.Resolve(ctx, query, services.DefaultSearchLimit)
	if len(tracks) == 0 {
		return &Response{Text: "❌ Nothing found. Try another query.", Err: shared.ErrNoMatch}
	}

	mode, err := e.policy.Mode(ctx, req.UserID)
	if err != nil {
		e.logger.Warn("failed to read mode, using basic", "user", req.UserID, "error", err)
	}

	if mode == models.ModeExtended {
		return &Response{
			Text: fmt.Sprintf("🎧 Results for '%s':", query),
			Rows: e.rows(tracks, extendedRows, models.IntentDownload, models.IntentShowSimilar),
		}
	}
	return &Response{
		Text: fmt.Sprintf("🎵 Found for '%s':", query),
		Rows: e.rows(tracks, basicRows, models.IntentDownload),
	}
}

func (e *Engine) selection(ctx context.Context, req Request) *Response {
	action, err := tokens.Decode(req.Token)
	if err != nil {
		e.logger.Warn("ignoring selection", "user", req.UserID, "error", err)
		return &Response{Text: "❓ Unknown action.", Err: err}
	}

	switch action.Intent {
	case models.IntentShowSimilar:
		return e.similar(ctx, req, action.Track())
	default:
		return e.download(ctx, req, action.Track())
	}
}

func (e *Engine) download(ctx context.Context, req Request, track models.Track) *Response {
	sendProgress(req.Progress, downloadUpdate(track))

	result, err := e.downloader.Download(ctx, track)
	if err != nil {
		e.logger.Error("download failed", "track", track, "error", err)
		return &Response{Text: "❌ Could not download the track. Try another query.", Err: err}
	}
	defer func() {
		if err := e.downloader.Release(result); err != nil {
			e.logger.Warn("failed to release artifact", "path", result.LocalPath, "error", err)
		}
	}()

	sendProgress(req.Progress, deliverUpdate(result))
	if err := e.deliver(ctx, req, result); err != nil {
		e.logger.Error("delivery failed", "track", track, "error", err)
		return &Response{Text: "❌ Failed to send the file. Try another track.", Err: err}
	}

	resp := &Response{Text: fmt.Sprintf("✅ Done: %s", track), Artifact: result}

	count, err := e.policy.RecordDownload(ctx, req.UserID, track)
	if err != nil {
		e.logger.Error("failed to record download", "user", req.UserID, "error", err)
		return resp
	}
	sendProgress(req.Progress, recordUpdate(count))

	if e.policy.ShouldInjectPromotion(count) {
		resp.Promotion = e.policy.PickPromotion()
	}
	return resp
}

func (e *Engine) deliver(ctx context.Context, req Request, result *models.DownloadResult) error {
	if req.Deliver == nil {
		return fmt.Errorf("%w: no delivery target", shared.ErrDeliveryFailure)
	}
	if err := req.Deliver(ctx, result); err != nil {
		if errors.Is(err, shared.ErrDeliveryFailure) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrDeliveryFailure, err)
	}
	return nil
}

func (e *Engine) similar(ctx context.Context, req Request, seed models.Track) *Response {
	sendProgress(req.Progress, recommendUpdate(seed))

	tracks := e.resolver.Recommend(ctx, seed.Artist, seed.Title, similarRows)
	if len(tracks) == 0 {
		return &Response{Text: "❌ Could not find similar tracks.", Err: shared.ErrNoMatch}
	}
	return &Response{
		Text: fmt.Sprintf("🎵 Tracks similar to %s:", seed),
		Rows: e.rows(tracks, similarRows, models.IntentDownload),
	}
}

func (e *Engine) top(ctx context.Context, req Request) *Response {
	tracks := e.resolver.Top(ctx, topRows)
	if len(tracks) == 0 {
		return &Response{Text: "❌ Could not load the top tracks.", Err: shared.ErrUpstreamUnavailable}
	}
	return &Response{
		Text: fmt.Sprintf("🔥 Top %d tracks right now:", min(len(tracks), topRows)),
		Rows: e.rows(tracks, topRows, models.IntentDownload),
	}
}

func (e *Engine) artistTop(ctx context.Context, req Request) *Response {
	artist := strings.TrimSpace(req.Artist)
	if artist == "" {
		return &Response{Text: "🎤 Name an artist.", Err: shared.ErrInvalidInput}
	}

	tracks := e.resolver.ArtistTop(ctx, artist, topRows)
	if len(tracks) == 0 {
		return &Response{Text: fmt.Sprintf("❌ No top tracks found for %s.", artist), Err: shared.ErrNoMatch}
	}
	return &Response{
		Text: fmt.Sprintf("🎤 Top tracks by %s:", artist),
		Rows: e.rows(tracks, topRows, models.IntentDownload),
	}
}

func (e *Engine) mix(ctx context.Context, req Request) *Response {
	records, err := e.policy.store.ListRecentDownloads(ctx, req.UserID, mixSeeds)
	if err != nil {
		e.logger.Error("failed to list downloads", "user", req.UserID, "error", err)
	}
	if len(records) == 0 {
		return &Response{Text: "🎵 Download a few tracks and I will build a mix for you!", Err: shared.ErrNotEnoughHistory}
	}

	seed := records[e.intn(len(records))].Track()
	sendProgress(req.Progress, recommendUpdate(seed))

	tracks := e.resolver.Recommend(ctx, seed.Artist, seed.Title, mixRows)
	if len(tracks) == 0 {
		return &Response{Text: "❌ Could not build a mix. Try again later.", Err: shared.ErrUpstreamUnavailable}
	}
	return &Response{
		Text: fmt.Sprintf("🎵 Your personal mix (based on %s):", seed),
		Rows: e.rows(tracks, mixRows, models.IntentDownload),
	}
}

func (e *Engine) start(req Request) *Response {
	name := req.DisplayName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf(
		"👋 Hi, %s!\n\n"+
			"🎵 Welcome to MelodyForge, your personal music bot!\n\n"+
			"📱 Pick a mode:\n"+
			"• basic: quick search and download\n"+
			"• extended: recommendations and mixes\n\n"+
			"🎧 Just send me a track or artist name!",
		name,
	)
	return &Response{Text: text}
}

func (e *Engine) setMode(ctx context.Context, req Request) *Response {
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		return &Response{Text: "❓ Unknown mode. Use basic or extended.", Err: fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)}
	}

	if err := e.policy.SetMode(ctx, req.UserID, mode); err != nil {
		e.logger.Error("failed to set mode", "user", req.UserID, "error", err)
		return &Response{Text: "❌ Could not switch mode. Try again later.", Err: err}
	}

	if mode == models.ModeBasic {
		return &Response{Text: "✅ Basic mode on!\n\n🔍 Send a track name to search."}
	}
	return &Response{Text: "✅ Extended mode on!\n\n" +
		"🎵 Available commands:\n" +
		"• send a track name for recommendations\n" +
		"• top: the current chart\n" +
		"• history: your downloads\n" +
		"• mix: a mix built from your history"}
}

func (e *Engine) history(ctx context.Context, req Request) *Response {
	records, err := e.policy.store.ListRecentDownloads(ctx, req.UserID, historyRows)
	if err != nil {
		e.logger.Error("failed to list downloads", "user", req.UserID, "error", err)
		return &Response{Text: "❌ Could not load your history.", Err: err}
	}
	if len(records) == 0 {
		return &Response{Text: "📭 History is empty. Download your first track!"}
	}

	var b strings.Builder
	b.WriteString("📜 Your download history:\n")
	for i, rec := range records {
		fmt.Fprintf(&b, "\n%d. %s", i+1, rec.Track())
	}
	return &Response{Text: b.String()}
}

// rows renders up to limit tracks, each with one action per intent.
func (e *Engine) rows(tracks []models.Track, limit int, intents ...models.Intent) []Row {
	labels := map[models.Intent]string{
		models.IntentDownload:    "⬇️ Download",
		models.IntentShowSimilar: "🎵 Similar",
	}

	rows := make([]Row, 0, min(len(tracks), limit))
	for _, t := range tracks {
		if len(rows) == limit {
			break
		}

		row := Row{Label: t.String()}
		for _, intent := range intents {
			token, err := tokens.EncodeFit(intent, t.Artist, t.Title)
			if err != nil {
				e.logger.Warn("skipping action", "track", t, "intent", intent, "error", err)
				continue
			}
			row.Actions = append(row.Actions, Action{Label: labels[intent], Token: token})
		}
		if len(row.Actions) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}
