package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
)

const (
	defaultFormat  = "mp3"
	defaultTimeout = 3 * time.Minute
)

// ErrNoResults is returned by a [Fetcher] when the media index has no match.
var ErrNoResults = errors.New("no media found for query")

// Stage identifies the step at which a download stopped.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageFetch     Stage = "fetch"
	StageTranscode Stage = "transcode"
	StageWrite     Stage = "write"
)

// DownloadFailure is the single error type returned by [Pipeline.Download].
type DownloadFailure struct {
	Stage Stage
	Query string
	Err   error
}

func (e *DownloadFailure) Error() string {
	return fmt.Sprintf("%s at %s stage for %q: %v", shared.ErrDownloadFailed, e.Stage, e.Query, e.Err)
}

func (e *DownloadFailure) Unwrap() error {
	return e.Err
}

// Is reports true for [shared.ErrDownloadFailed].
func (e *DownloadFailure) Is(target error) bool {
	return target == shared.ErrDownloadFailed
}

// FetchInfo is what a [Fetcher] learns about the media it saved.
type FetchInfo struct {
	Title    string
	Duration int
}

// Fetcher searches the media index for query and saves transcoded audio into dir.
type Fetcher interface {
	Fetch(ctx context.Context, query, dir string) (*FetchInfo, error)
}

// Tagger writes track metadata into a local audio file.
type Tagger interface {
	Tag(path string, track models.Track) error
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithScratchDir sets the root under which job directories are created.
func WithScratchDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.scratchDir = dir
		}
	}
}

// WithFormat sets the expected output extension.
func WithFormat(format string) Option {
	return func(p *Pipeline) {
		if format != "" {
			p.format = strings.TrimPrefix(format, ".")
		}
	}
}

// WithTimeout bounds each fetch.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithTagger replaces the default [ID3Tagger]. Nil disables tagging.
func WithTagger(t Tagger) Option {
	return func(p *Pipeline) {
		p.tagger = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline fetches, transcodes and tags one track per call.
type Pipeline struct {
	fetcher    Fetcher
	tagger     Tagger
	scratchDir string
	format     string
	timeout    time.Duration
	logger     *log.Logger
}

// NewPipeline creates a pipeline around fetcher.
func NewPipeline(fetcher Fetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:    fetcher,
		tagger:     ID3Tagger{},
		scratchDir: filepath.Join(os.TempDir(), "melodyforge"),
		format:     defaultFormat,
		timeout:    defaultTimeout,
		logger:     shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "downloader")
	return p
}

// NewPipelineFromConfig wires a yt-dlp backed pipeline from the media section.
func NewPipelineFromConfig(cfg *shared.Config, logger *log.Logger) *Pipeline {
	m := cfg.Media
	fetcher := NewYTDLPFetcher(m.AudioFormat, m.AudioQuality, m.YTDLPPath)
	return NewPipeline(fetcher,
		WithScratchDir(m.ScratchDir),
		WithFormat(m.AudioFormat),
		WithTimeout(m.Timeout.Duration),
		WithLogger(logger),
	)
}

// ScratchDir returns the root of all job directories.
func (p *Pipeline) ScratchDir() string {
	return p.scratchDir
}

// Download resolves track in the media index and returns the local artifact.
func (p *Pipeline) Download(ctx context.Context, track models.Track) (*models.DownloadResult, error) {
	query := track.Query()
	if query == "" {
		return nil, p.fail(StageResolve, query, "", errors.New("empty query"))
	}

	jobDir := filepath.Join(p.scratchDir, shared.GenerateID())
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return nil, p.fail(StageWrite, query, "", fmt.Errorf("failed to create job directory: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Info("fetching", "query", query, "job", filepath.Base(jobDir))

	info, err := p.fetcher.Fetch(ctx, query, jobDir)
	if err != nil {
		stage := StageFetch
		switch {
		case errors.Is(err, ErrNoResults):
			stage = StageResolve
		case errors.Is(err, context.DeadlineExceeded):
			err = fmt.Errorf("%w: %v", shared.ErrTimeout, err)
		}
		return nil, p.fail(stage, query, jobDir, err)
	}

	matches, err := filepath.Glob(filepath.Join(jobDir, "*."+p.format))
	if err != nil || len(matches) == 0 {
		return nil, p.fail(StageTranscode, query, jobDir, fmt.Errorf("no .%s file produced", p.format))
	}
	path := matches[0]

	if stat, err := os.Stat(path); err != nil || stat.Size() == 0 {
		return nil, p.fail(StageWrite, query, jobDir, fmt.Errorf("unreadable output %s", filepath.Base(path)))
	}

	if p.tagger != nil && p.format == "mp3" {
		if err := p.tagger.Tag(path, track); err != nil {
			p.logger.Warn("failed to tag file", "path", path, "error", err)
		}
	}

	result := &models.DownloadResult{LocalPath: path, Title: track.Title, Duration: track.Duration}
	if info != nil {
		if info.Title != "" {
			result.Title = info.Title
		}
		if info.Duration > 0 {
			result.Duration = info.Duration
		}
	}
	if result.Title == "" {
		result.Title = "Unknown"
	}

	p.logger.Info("downloaded", "query", query, "file", filepath.Base(path), "duration", result.Duration)
	return result, nil
}

// Release removes the artifact and its job directory.
func (p *Pipeline) Release(result *models.DownloadResult) error {
	if result == nil || result.LocalPath == "" {
		return nil
	}

	dir := filepath.Dir(result.LocalPath)
	if filepath.Clean(filepath.Dir(dir)) != filepath.Clean(p.scratchDir) {
		return os.Remove(result.LocalPath)
	}
	return os.RemoveAll(dir)
}

func (p *Pipeline) fail(stage Stage, query, jobDir string, err error) error {
	failure := &DownloadFailure{Stage: stage, Query: query, Err: err}
	p.logger.Error("download failed", "stage", stage, "query", query, "error", err)

	if jobDir != "" {
		if rmErr := os.RemoveAll(jobDir); rmErr != nil {
			p.logger.Warn("failed to clean job directory", "dir", jobDir, "error", rmErr)
		}
	}
	return failure
}
