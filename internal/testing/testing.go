// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
)

// CatalogCall records one call made against [MockCatalog].
type CatalogCall struct {
	Method string
	Query  string
	Artist string
	Title  string
	Limit  int
}

// MockCatalog is a test double for [services.Catalog]. Results are truncated to the requested limit.
type MockCatalog struct {
	Search  []models.Track
	Similar []models.Track
	Top     []models.Track
	Artist  []models.Track

	mu    sync.Mutex
	calls []CatalogCall
}

func (m *MockCatalog) record(c CatalogCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func truncate(tracks []models.Track, limit int) []models.Track {
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, t)
	}
	return out
}

func (m *MockCatalog) SearchTracks(ctx context.Context, query string, limit int) []models.Track {
	m.record(CatalogCall{Method: "SearchTracks", Query: query, Limit: limit})
	return truncate(m.Search, limit)
}

func (m *MockCatalog) SimilarTracks(ctx context.Context, artist, title string, limit int) []models.Track {
	m.record(CatalogCall{Method: "SimilarTracks", Artist: artist, Title: title, Limit: limit})
	return truncate(m.Similar, limit)
}

func (m *MockCatalog) TopTracks(ctx context.Context, limit int) []models.Track {
	m.record(CatalogCall{Method: "TopTracks", Limit: limit})
	return truncate(m.Top, limit)
}

func (m *MockCatalog) ArtistTopTracks(ctx context.Context, artist string, limit int) []models.Track {
	m.record(CatalogCall{Method: "ArtistTopTracks", Artist: artist, Limit: limit})
	return truncate(m.Artist, limit)
}

func (m *MockCatalog) Name() string { return "mock" }

// Calls returns a copy of every recorded call.
func (m *MockCatalog) Calls() []CatalogCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CatalogCall(nil), m.calls...)
}

// LastCall returns the most recent call or the zero value.
func (m *MockCatalog) LastCall() CatalogCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return CatalogCall{}
	}
	return m.calls[len(m.calls)-1]
}

// MockDownloader is a test double for [tasks.Downloader].
//
// When Dir is set, Download writes a real file there so callers can stream it.
type MockDownloader struct {
	Dir     string
	Content []byte
	Err     error

	mu        sync.Mutex
	requested []models.Track
	released  []*models.DownloadResult
}

func (m *MockDownloader) Download(ctx context.Context, track models.Track) (*models.DownloadResult, error) {
	m.mu.Lock()
	m.requested = append(m.requested, track)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	result := &models.DownloadResult{LocalPath: "/dev/null", Title: track.Title, Duration: track.Duration}
	if m.Dir != "" {
		f, err := os.CreateTemp(m.Dir, "track-*.mp3")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if _, err := f.Write(m.Content); err != nil {
			return nil, err
		}
		result.LocalPath = f.Name()
	}
	return result, nil
}

func (m *MockDownloader) Release(result *models.DownloadResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, result)
	if m.Dir != "" && result != nil {
		return os.Remove(result.LocalPath)
	}
	return nil
}

// Requested returns the tracks passed to Download.
func (m *MockDownloader) Requested() []models.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Track(nil), m.requested...)
}

// Released returns the results passed to Release.
func (m *MockDownloader) Released() []*models.DownloadResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.DownloadResult(nil), m.released...)
}

// MockStore is an in-memory test double for [tasks.Store].
type MockStore struct {
	// Err, when set, is returned by every method.
	Err error

	mu        sync.Mutex
	profiles  map[int64]*models.UserProfile
	downloads []models.DownloadRecord
	ensured   int
}

// NewMockStore creates an empty [MockStore].
func NewMockStore() *MockStore {
	return &MockStore{profiles: make(map[int64]*models.UserProfile)}
}

func (m *MockStore) EnsureProfile(ctx context.Context, userID int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.ensured++
	if _, ok := m.profiles[userID]; !ok {
		m.profiles[userID] = &models.UserProfile{
			UserID: userID, Username: username, Mode: models.ModeBasic, CreatedAt: time.Now().UTC(),
		}
	}
	return nil
}

func (m *MockStore) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockStore) SetMode(ctx context.Context, userID int64, mode models.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return shared.ErrProfileNotFound
	}
	p.Mode = mode
	return nil
}

func (m *MockStore) AppendDownload(ctx context.Context, userID int64, track models.Track, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return 0, shared.ErrProfileNotFound
	}
	m.downloads = append(m.downloads, models.DownloadRecord{
		UserID: userID, Artist: track.Artist, Title: track.Title, DownloadedAt: at,
	})
	p.InteractionCount++
	return p.InteractionCount, nil
}

func (m *MockStore) ListRecentDownloads(ctx context.Context, userID int64, limit int) ([]models.DownloadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var out []models.DownloadRecord
	for i := len(m.downloads) - 1; i >= 0; i-- {
		if m.downloads[i].UserID == userID {
			out = append(out, m.downloads[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DownloadedAt.After(out[j].DownloadedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetCount overrides a profile's interaction counter.
func (m *MockStore) SetCount(userID int64, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		p.InteractionCount = count
	}
}

// EnsureCalls returns how many times EnsureProfile succeeded.
func (m *MockStore) EnsureCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensured
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter passes through the first maxWrites writes and fails the rest.
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Path still exists: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
