// package models defines the data model for the track resolution and delivery engine
package models

import (
	"fmt"
	"strings"
	"time"
)

// Track is a catalog entry. The upstream provides no stable ID, so (Artist, Title) is the natural key.
type Track struct {
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Duration int    `json:"duration_seconds,omitempty"` // seconds, 0 when unknown
}

// Query returns the free-text form used to look the track up in the media index.
func (t Track) Query() string {
	return strings.TrimSpace(t.Artist + " " + t.Title)
}

// String renders "Artist - Title".
func (t Track) String() string {
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// Intent is the action a selectable element asks for.
type Intent int

const (
	IntentDownload Intent = iota
	IntentShowSimilar
)

func (i Intent) String() string {
	switch i {
	case IntentDownload:
		return "download"
	case IntentShowSimilar:
		return "similar"
	default:
		return "unknown"
	}
}

// ActionToken is the decoded form of a selection payload.
type ActionToken struct {
	Intent Intent
	Artist string
	Title  string
}

// Track returns the subject of the token.
func (a ActionToken) Track() Track {
	return Track{Artist: a.Artist, Title: a.Title}
}

// DownloadResult describes an audio artifact in scratch storage.
type DownloadResult struct {
	LocalPath string `json:"local_path"`
	Title     string `json:"title"`
	Duration  int    `json:"duration_seconds"`
}

// Mode is a per-user display policy.
type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeExtended Mode = "extended"
)

// ParseMode accepts "basic", "extended" and the legacy "advanced" alias.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return ModeBasic, nil
	case "extended", "advanced":
		return ModeExtended, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// UserProfile is the persisted per-user state.
type UserProfile struct {
	UserID           int64     `json:"user_id"`
	Username         string    `json:"username"`
	Mode             Mode      `json:"mode"`
	InteractionCount int       `json:"interaction_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// DownloadRecord is one successful delivery.
type DownloadRecord struct {
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Track returns the downloaded track.
func (r DownloadRecord) Track() Track {
	return Track{Artist: r.Artist, Title: r.Title}
}
