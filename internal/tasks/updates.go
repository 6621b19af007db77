package tasks

import (
	"fmt"

	"github.com/desertthunder/tagalbum/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Search Phase = iota
	Merge
	FetchMedia
	Persist
	Done
)

func (p Phase) String() string {
	switch p {
	case Search:
		return "search"
	case Merge:
		return "merge"
	case FetchMedia:
		return "fetch_media"
	case Persist:
		return "persist"
	case Done:
		return "done"
	default:
		return ""
	}
}

func searchUpdate(tag string, sinceID int64) ProgressUpdate {
	msg := fmt.Sprintf("Searching for %s...", tag)
	if sinceID != 0 {
		msg = fmt.Sprintf("Searching for %s newer than %d...", tag, sinceID)
	}
	return ProgressUpdate{Phase: Search, Step: 1, Total: 1, Message: msg}
}

func foundUpdate(statuses, items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Search,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d images in %d statuses", items, statuses),
	}
}

func mergeUpdate(result MergeResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Merge,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d new, %d dropped", len(result.Create), len(result.Delete)),
		Data:    result,
	}
}

func fetchMediaUpdate(pending int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMedia,
		Step:    0,
		Total:   pending,
		Message: fmt.Sprintf("Downloading %d images...", pending),
	}
}

func fetchedMediaUpdate(done, pending int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMedia,
		Step:    done,
		Total:   pending,
		Message: fmt.Sprintf("[%d/%d] images downloaded", done, pending),
	}
}

func persistUpdate(items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Persist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saving %d images...", items),
	}
}

func doneUpdate(album *models.Album) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Album #%d %s has %d images", album.Sequence, album.Hashtag, album.Len()),
		Data:    album,
	}
}
