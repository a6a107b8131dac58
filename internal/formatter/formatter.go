// package formatter provides functions to export decks and catalogs to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/desertthunder/songdeck/internal/slides"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Export formats accepted by [WriteDeckExport].
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// ExportSlide is one slide in a [DeckExport].
type ExportSlide struct {
	Index int    `json:"index"`
	Label string `json:"label,omitempty"`
	HTML  string `json:"html"`
	Text  string `json:"text"`
}

// DeckExport is the JSON shape of an exported deck.
type DeckExport struct {
	Song   models.Song          `json:"song"`
	Shape  models.DocumentShape `json:"shape"`
	Slides []ExportSlide        `json:"slides"`
}

// NewDeckExport pairs each slide with its label and plain-text rendering.
func NewDeckExport(song models.Song, deck models.Deck) DeckExport {
	out := DeckExport{Song: song, Shape: deck.Shape, Slides: make([]ExportSlide, 0, len(deck.Slides))}
	for i, slide := range deck.Slides {
		out.Slides = append(out.Slides, ExportSlide{
			Index: i,
			Label: deck.Label(i),
			HTML:  string(slide),
			Text:  slides.PlainText(slide),
		})
	}
	return out
}

// ExportToJSON converts a deck to indented JSON.
func ExportToJSON(song models.Song, deck models.Deck) ([]byte, error) {
	return shared.MarshalJSON(NewDeckExport(song, deck), true)
}

// ExportToMarkdown converts a deck to Markdown with one fenced block per slide
func ExportToMarkdown(song models.Song, deck models.Deck) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", song.Title))
	if song.Category != "" {
		buf.WriteString(fmt.Sprintf("**Category**: %s\n", song.Category))
	}
	if len(song.Tags) > 0 {
		buf.WriteString(fmt.Sprintf("**Tags**: %s\n", strings.Join(song.Tags, ", ")))
	}
	buf.WriteString(fmt.Sprintf("**Slides**: %d\n\n", len(deck.Slides)))

	for i, slide := range deck.Slides {
		heading := fmt.Sprintf("Slide %d", i+1)
		if label := deck.Label(i); label != "" {
			heading = fmt.Sprintf("%d. %s", i+1, label)
		}
		buf.WriteString(fmt.Sprintf("## %s\n\n```\n%s\n```\n\n", heading, slides.PlainText(slide)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a deck to plain text, slides separated by blank lines
func ExportToText(song models.Song, deck models.Deck) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Song: %s\n", song.Title))
	buf.WriteString(fmt.Sprintf("Slides: %d\n", len(deck.Slides)))

	for i, slide := range deck.Slides {
		buf.WriteString("\n")
		if label := deck.Label(i); label != "" {
			buf.WriteString(fmt.Sprintf("[%s]\n", label))
		}
		buf.WriteString(slides.PlainText(slide))
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportCatalogCSV converts catalog songs to CSV format with columns: Key, Title, Category, Tags
func ExportCatalogCSV(songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Key", "Title", "Category", "Tags"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range songs {
		record := []string{song.Key(), song.Title, song.Category, strings.Join(song.Tags, ";")}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// CatalogTable renders songs as a table.
func CatalogTable(w io.Writer, songs []models.Song) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Title", "Category", "Key"})
	for i, song := range songs {
		t.AppendRow(table.Row{i + 1, song.Title, song.Category, song.Key()})
	}
	t.AppendFooter(table.Row{"", "", "Songs", strconv.Itoa(len(songs))})
	t.Render()
}

// DeckTable renders a deck's slides as a table of label and first line.
func DeckTable(w io.Writer, deck models.Deck) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Label", "First line", "Lines"})
	for i, slide := range deck.Slides {
		lines := strings.Split(slides.PlainText(slide), "\n")
		t.AppendRow(table.Row{i + 1, deck.Label(i), lines[0], len(lines)})
	}
	t.Render()
}

// WriteDeckExport writes song's deck in format to dir, named after the song key, and returns the
// written path. Unknown formats fall back to JSON.
func WriteDeckExport(song models.Song, deck models.Deck, format, dir string) (string, error) {
	name := song.Key()
	if name == "" {
		name = shared.Slugify(song.Title)
	}

	var (
		data []byte
		ext  string
		err  error
	)
	switch format {
	case FormatMarkdown:
		data, err = ExportToMarkdown(song, deck)
		ext = ".md"
	case FormatText:
		data, err = ExportToText(song, deck)
		ext = ".txt"
	default:
		data, err = ExportToJSON(song, deck)
		ext = ".json"
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s export: %w", format, err)
	}

	path := filepath.Join(dir, name+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// ManifestEntry records the outcome of one song in a bulk export.
type ManifestEntry struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Success bool     `json:"success"`
	Slides  int      `json:"slides"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Manifest summarizes a bulk export.
type Manifest struct {
	GeneratedAt     time.Time       `json:"generated_at"`
	Format          string          `json:"format"`
	OutputDirectory string          `json:"output_directory"`
	Total           int             `json:"total"`
	Successful      int             `json:"successful"`
	Failed          int             `json:"failed"`
	Entries         []ManifestEntry `json:"entries"`
}

// WriteExportManifest writes m as indented JSON to path.
func WriteExportManifest(m Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
