package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
	"github.com/desertthunder/melodyforge/internal/tasks"
)

const (
	// PromotionTrailer carries the promotion after a streamed download.
	PromotionTrailer = "X-Promotion"
	maxRequestBody   = 64 << 10
)

// audioTypes covers the formats yt-dlp extracts to, which the system mime table may lack.
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".opus": "audio/ogg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
}

// Engine answers requests. [tasks.Engine] implements it.
type Engine interface {
	Handle(ctx context.Context, req tasks.Request) *tasks.Response
}

// apiResponse is the JSON body for non-streamed answers.
type apiResponse struct {
	*tasks.Response
	Error string `json:"error,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// StatusFor maps an engine error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrInvalidToken),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrUnknownRequest):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrNotEnoughHistory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrDownloadFailed),
		errors.Is(err, shared.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RequestHandler serves POST /api/requests.
//
// A successful download streams the audio file as the response body; the promotion, if any,
// follows in the [PromotionTrailer] trailer. Everything else is answered with JSON.
type RequestHandler struct {
	engine Engine
	logger *log.Logger
}

// NewRequestHandler creates a [RequestHandler].
func NewRequestHandler(engine Engine, logger *log.Logger) *RequestHandler {
	return &RequestHandler{engine: engine, logger: logger}
}

func (h *RequestHandler) Routes() []string {
	return []string{"/api/requests"}
}

func (h *RequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req tasks.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	streamed := false
	req.Deliver = func(ctx context.Context, artifact *models.DownloadResult) error {
		return h.stream(w, artifact, &streamed)
	}

	resp := h.engine.Handle(r.Context(), req)

	if streamed {
		if resp.Err != nil {
			h.logger.Error("stream interrupted", "id", RequestIDFrom(r.Context()), "error", resp.Err)
			return
		}
		if resp.Promotion != "" {
			w.Header().Set(PromotionTrailer, resp.Promotion)
		}
		return
	}

	body := apiResponse{Response: resp}
	if resp.Err != nil {
		body.Error = resp.Err.Error()
	}
	writeJSON(w, StatusFor(resp.Err), body)
}

// stream copies the artifact into the response.
// streamed is set once the headers are out and a JSON answer is no longer possible.
func (h *RequestHandler) stream(w http.ResponseWriter, artifact *models.DownloadResult, streamed *bool) error {
	f, err := os.Open(artifact.LocalPath)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDeliveryFailure, err)
	}
	defer f.Close()

	ext := filepath.Ext(artifact.LocalPath)
	contentType, ok := audioTypes[strings.ToLower(ext)]
	if !ok {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := w.Header()
	header.Set("Content-Type", contentType)
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Title + ext}))
	header.Set("X-Track-Duration", fmt.Sprint(artifact.Duration))
	header.Set("Trailer", PromotionTrailer)
	w.WriteHeader(http.StatusOK)
	*streamed = true

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDeliveryFailure, err)
	}
	return nil
}

// HealthHandler serves GET /health. Each check must pass for a 200.
type HealthHandler struct {
	checks map[string]func(ctx context.Context) error
}

// NewHealthHandler creates a [HealthHandler] with named checks, e.g. a database ping.
func NewHealthHandler(checks map[string]func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Routes() []string {
	return []string{"/health"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	results := map[string]string{}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "unavailable"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": results})
}

// NewRouter wires the engine and health handlers behind the standard middleware.
func NewRouter(engine Engine, logger *log.Logger, checks map[string]func(ctx context.Context) error) *BasicRouter {
	r := NewBasicRouter()
	r.Use(Recover(logger), RequestID(), Logging(logger))

	r.Handler(NewRequestHandler(engine, logger))
	r.Handle(http.MethodGet, "/health", NewHealthHandler(checks))
	return r
}
