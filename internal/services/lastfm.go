// Last.fm API implementation of [Catalog]
//
// Response shapes based on https://www.last.fm/api
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
	"golang.org/x/time/rate"
)

const (
	lastfmBaseURL     = "https://ws.audioscrobbler.com/2.0/"
	defaultTimeout    = 10 * time.Second
	defaultRateLimit  = 200 * time.Millisecond
	defaultBurstLimit = 5
)

// lastfmArtist decodes either "Name" or {"name": "Name"} / {"#text": "Name"}.
type lastfmArtist string

func (a *lastfmArtist) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = lastfmArtist(s)
		return nil
	}

	var obj struct {
		Name string `json:"name"`
		Text string `json:"#text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Name != "" {
		*a = lastfmArtist(obj.Name)
	} else {
		*a = lastfmArtist(obj.Text)
	}
	return nil
}

// lastfmDuration decodes 215, "215" or "" into seconds.
type lastfmDuration int

func (d *lastfmDuration) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*d = 0
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*d = 0
		return nil
	}
	*d = lastfmDuration(f)
	return nil
}

// LastFMTrack is a track entry as returned by any of the track list methods.
type LastFMTrack struct {
	Name     string         `json:"name"`
	Artist   lastfmArtist   `json:"artist"`
	Duration lastfmDuration `json:"duration"`
	URL      string         `json:"url"`
}

// lastfmTracks decodes a list, a single object or an empty string.
type lastfmTracks []LastFMTrack

func (t *lastfmTracks) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = nil
		return nil
	}

	switch data[0] {
	case '[':
		var list []LastFMTrack
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*t = list
	case '{':
		var one LastFMTrack
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*t = lastfmTracks{one}
	default:
		*t = nil
	}
	return nil
}

// lastfmTrackList is the {"track": ...} wrapper. It may itself be an empty string.
type lastfmTrackList struct {
	Track lastfmTracks `json:"track"`
}

func (l *lastfmTrackList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		l.Track = nil
		return nil
	}

	var raw struct {
		Track lastfmTracks `json:"track"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Track = raw.Track
	return nil
}

// LastFMResponse is the union of envelopes for the methods used here.
type LastFMResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
	Results struct {
		TrackMatches lastfmTrackList `json:"trackmatches"`
	} `json:"results"`
	SimilarTracks lastfmTrackList `json:"similartracks"`
	Tracks        lastfmTrackList `json:"tracks"`
	TopTracks     lastfmTrackList `json:"toptracks"`
}

// LastFMOption configures a [LastFMService].
type LastFMOption func(*LastFMService)

// WithHTTPClient sets the client used for API calls.
func WithHTTPClient(c *http.Client) LastFMOption {
	return func(s *LastFMService) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) LastFMOption {
	return func(s *LastFMService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRateLimit spaces calls every interval with the given burst.
func WithRateLimit(every time.Duration, burst int) LastFMOption {
	return func(s *LastFMService) {
		if every <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) LastFMOption {
	return func(s *LastFMService) {
		if l != nil {
			s.logger = l
		}
	}
}

// LastFMService implements [Catalog] against the Last.fm JSON API.
type LastFMService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *log.Logger
}

// NewLastFMService creates a Last.fm client. An empty baseURL uses the public endpoint.
func NewLastFMService(apiKey, baseURL string, opts ...LastFMOption) *LastFMService {
	if baseURL == "" {
		baseURL = lastfmBaseURL
	}

	s := &LastFMService{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Every(defaultRateLimit), defaultBurstLimit),
		timeout:    defaultTimeout,
		logger:     shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("service", s.Name())
	return s
}

// NewLastFMServiceFromConfig wires a client from the credentials and catalog sections.
func NewLastFMServiceFromConfig(cfg *shared.Config, logger *log.Logger) (*LastFMService, error) {
	if cfg.Credentials.LastFM.APIKey == "" {
		return nil, fmt.Errorf("%w: credentials.lastfm.api_key (or %s)", shared.ErrMissingCredentials, shared.APIKeyEnv)
	}

	return NewLastFMService(
		cfg.Credentials.LastFM.APIKey,
		cfg.Credentials.LastFM.BaseURL,
		WithTimeout(cfg.Catalog.Timeout.Duration),
		WithRateLimit(cfg.Catalog.RateLimit.Duration, cfg.Catalog.Burst),
		WithLogger(logger),
	), nil
}

// Name returns "Last.fm".
func (s *LastFMService) Name() string {
	return "Last.fm"
}

// SearchTracks calls track.search.
func (s *LastFMService) SearchTracks(ctx context.Context, query string, limit int) []models.Track {
	resp, err := s.call(ctx, "track.search", url.Values{"track": {query}}, limit)
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		return []models.Track{}
	}
	return toTracks(resp.Results.TrackMatches.Track, limit)
}

// SimilarTracks calls track.getsimilar.
func (s *LastFMService) SimilarTracks(ctx context.Context, artist, title string, limit int) []models.Track {
	resp, err := s.call(ctx, "track.getsimilar", url.Values{"artist": {artist}, "track": {title}}, limit)
	if err != nil {
		s.logger.Error("similar tracks failed", "artist", artist, "title", title, "error", err)
		return []models.Track{}
	}
	return toTracks(resp.SimilarTracks.Track, limit)
}

// TopTracks calls chart.gettoptracks.
func (s *LastFMService) TopTracks(ctx context.Context, limit int) []models.Track {
	resp, err := s.call(ctx, "chart.gettoptracks", url.Values{}, limit)
	if err != nil {
		s.logger.Error("top tracks failed", "error", err)
		return []models.Track{}
	}
	return toTracks(resp.Tracks.Track, limit)
}

// ArtistTopTracks calls artist.gettoptracks.
func (s *LastFMService) ArtistTopTracks(ctx context.Context, artist string, limit int) []models.Track {
	resp, err := s.call(ctx, "artist.gettoptracks", url.Values{"artist": {artist}}, limit)
	if err != nil {
		s.logger.Error("artist top tracks failed", "artist", artist, "error", err)
		return []models.Track{}
	}
	return toTracks(resp.TopTracks.Track, limit)
}

// call performs one rate-limited, time-bounded GET and decodes the envelope.
func (s *LastFMService) call(ctx context.Context, method string, params url.Values, limit int) (*LastFMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrUpstreamUnavailable, err)
	}

	params.Set("method", method)
	params.Set("api_key", s.apiKey)
	params.Set("format", "json")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	s.logger.Debug("calling catalog", "method", method)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrUpstreamUnavailable, err)
	}

	var out LastFMResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}

	if out.Error != 0 {
		return nil, fmt.Errorf("%w: error %d: %s", shared.ErrAPIRequest, out.Error, out.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return &out, nil
}

// toTracks maps API entries to [models.Track], dropping nameless entries.
func toTracks(in []LastFMTrack, limit int) []models.Track {
	tracks := make([]models.Track, 0, len(in))
	for _, t := range in {
		title := strings.TrimSpace(t.Name)
		if title == "" {
			continue
		}
		tracks = append(tracks, models.Track{
			Artist:   strings.TrimSpace(string(t.Artist)),
			Title:    title,
			Duration: int(t.Duration),
		})
		if limit > 0 && len(tracks) == limit {
			break
		}
	}
	return tracks
}
