package tasks

import (
	"fmt"

	"github.com/desertthunder/songdeck/internal/models"
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
	FetchDocument Phase = iota
	ParseSlides
	ExportDeck
)

func (p Phase) String() string {
	switch p {
	case FetchDocument:
		return "fetch_document"
	case ParseSlides:
		return "parse_slides"
	case ExportDeck:
		return "export_deck"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// A full channel drops the update.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchDocumentUpdate(song models.Song) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDocument,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Fetching %s...", song.Title),
	}
}

func parseSlidesUpdate(song models.Song) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParseSlides,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Parsing slides for %s...", song.Title),
	}
}

func parsedSlidesUpdate(song models.Song, deck models.Deck) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParseSlides,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Loaded %s (%d slides, %s)", song.Title, len(deck.Slides), deck.Shape),
		Data:    deck,
	}
}

func exportingDeckUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportDeck,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, title),
	}
}

func exportCompletedUpdate(step, total int, title string, slides int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportDeck,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d slides)", step, total, title, slides),
	}
}

func exportFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportDeck,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}
