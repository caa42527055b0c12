package tasks

import (
	"fmt"

	"github.com/desertthunder/melodyforge/internal/models"
)

// ProgressUpdate represents a progress event while a request is handled.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number
	Total   int    // Total steps for this request
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PhaseSearch Phase = iota
	PhaseRecommend
	PhaseDownload
	PhaseDeliver
	PhaseRecord
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseSearch:
		return "search"
	case PhaseRecommend:
		return "recommend"
	case PhaseDownload:
		return "download"
	case PhaseDeliver:
		return "deliver"
	case PhaseRecord:
		return "record"
	case PhaseDone:
		return "done"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

func searchUpdate(query string) ProgressUpdate {
	return ProgressUpdate{Phase: PhaseSearch, Step: 1, Total: 1, Message: fmt.Sprintf("Searching: %s...", query)}
}

func recommendUpdate(track models.Track) ProgressUpdate {
	return ProgressUpdate{Phase: PhaseRecommend, Step: 1, Total: 1, Message: fmt.Sprintf("Looking for tracks like %s...", track)}
}

func downloadUpdate(track models.Track) ProgressUpdate {
	return ProgressUpdate{Phase: PhaseDownload, Step: 1, Total: 3, Message: fmt.Sprintf("Downloading: %s...", track), Data: track}
}

func deliverUpdate(result *models.DownloadResult) ProgressUpdate {
	return ProgressUpdate{Phase: PhaseDeliver, Step: 2, Total: 3, Message: fmt.Sprintf("Sending %s...", result.Title), Data: result}
}

func recordUpdate(count int) ProgressUpdate {
	return ProgressUpdate{Phase: PhaseRecord, Step: 3, Total: 3, Message: fmt.Sprintf("Saved to history (%d downloads)", count), Data: count}
}
