package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
)

// Kind selects the handler for a [Request].
type Kind int

const (
	KindFreeText Kind = iota
	KindSelection
	KindTopChart
	KindMix
	KindStart
	KindSetMode
	KindHistory
	KindArtistTop
)

var kindNames = map[Kind]string{
	KindFreeText:  "search",
	KindSelection: "select",
	KindTopChart:  "top",
	KindMix:       "mix",
	KindStart:     "start",
	KindSetMode:   "mode",
	KindHistory:   "history",
	KindArtistTop: "artist",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a wire name such as "search" or "select" to a [Kind].
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", shared.ErrUnknownRequest, s)
}

// MarshalText implements [encoding.TextMarshaler].
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// DeliverFunc hands a downloaded artifact to the front-end.
// The artifact is released as soon as it returns.
type DeliverFunc func(ctx context.Context, artifact *models.DownloadResult) error

// Request is one inbound interaction from a front-end.
type Request struct {
	Kind        Kind   `json:"kind"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Query       string `json:"query,omitempty"`  // KindFreeText
	Token       string `json:"token,omitempty"`  // KindSelection
	Artist      string `json:"artist,omitempty"` // KindArtistTop
	Mode        string `json:"mode,omitempty"`   // KindSetMode

	Deliver  DeliverFunc           `json:"-"`
	Progress chan<- ProgressUpdate `json:"-"`
}

// Action is a selectable element. Token is what comes back in a [KindSelection] request.
type Action struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Row is one listed track with its actions.
type Row struct {
	Label   string   `json:"label"`
	Actions []Action `json:"actions"`
}

// Response is the rendering-agnostic answer to a [Request].
type Response struct {
	Text      string                 `json:"text"`
	Rows      []Row                  `json:"rows,omitempty"`
	Artifact  *models.DownloadResult `json:"artifact,omitempty"`
	Promotion string                 `json:"promotion,omitempty"`
	Err       error                  `json:"-"`
}

// Failed reports whether the response carries an error.
func (r *Response) Failed() bool {
	return r.Err != nil
}
