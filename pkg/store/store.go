// Package store writes imported decks to disk as Anki text imports, JSON
// or Markdown.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/pkg/processor"
	"github.com/xhad/quizdeck/pkg/richtext"
)

type Format string

const (
	FormatTSV      Format = "tsv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts a format name or its file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "tsv", "txt", "anki":
		return FormatTSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Extension returns the file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

type StoreConfig struct {
	OutputDir string
	Format    Format
}

type Store struct {
	config StoreConfig
}

func NewWithConfig(config StoreConfig) (*Store, error) {
	if config.OutputDir == "" {
		config.OutputDir = "."
	}
	if config.Format == "" {
		config.Format = FormatTSV
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Store{config: config}, nil
}

// SaveDeck writes deck and its notes and returns the file path.
func (s *Store) SaveDeck(deck *models.Deck, notes []models.Note) (string, error) {
	data, err := Render(s.config.Format, deck, notes)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.config.OutputDir, Filename(deck)+s.config.Format.Extension())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// Render encodes deck in format f.
func Render(f Format, deck *models.Deck, notes []models.Note) ([]byte, error) {
	switch f {
	case FormatTSV:
		return renderTSV(deck, notes), nil
	case FormatJSON:
		return renderJSON(deck)
	case FormatMarkdown:
		return renderMarkdown(deck)
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

// Filename derives a flat file name from the deck's full name.
func Filename(deck *models.Deck) string {
	name := strings.ReplaceAll(deck.FullName(), "::", "__")
	var b strings.Builder
	for _, ch := range name {
		switch {
		case ch == '/' || ch == '\\' || ch == ':' || ch == '*' || ch == '?' || ch == '"' || ch == '<' || ch == '>' || ch == '|':
			b.WriteRune('_')
		case ch < ' ':
		default:
			b.WriteRune(ch)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" || out == "." || out == ".." {
		return "deck"
	}
	return out
}

// fieldEscaper keeps each note on one line of the text import.
var fieldEscaper = strings.NewReplacer("\t", " ", "\r\n", "<br>", "\n", "<br>", "\r", "<br>")

func renderTSV(deck *models.Deck, notes []models.Note) []byte {
	var b strings.Builder
	b.WriteString("#separator:tab\n")
	b.WriteString("#html:true\n")
	fmt.Fprintf(&b, "#deck:%s\n", deck.FullName())
	fmt.Fprintf(&b, "#columns:%s\n", strings.Join(processor.FieldNames, "\t"))
	for _, n := range notes {
		fields := processor.Fields(n)
		for i, f := range fields {
			fields[i] = fieldEscaper.Replace(f)
		}
		b.WriteString(strings.Join(fields, "\t"))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

type itemJSON struct {
	ID                 string `json:"id"`
	Term               string `json:"term"`
	TermText           string `json:"term_text"`
	Definition         string `json:"definition"`
	DefinitionText     string `json:"definition_text"`
	TermAudioURL       string `json:"term_audio_url,omitempty"`
	TermAudio          string `json:"term_audio,omitempty"`
	DefinitionAudioURL string `json:"definition_audio_url,omitempty"`
	DefinitionAudio    string `json:"definition_audio,omitempty"`
	ImageURL           string `json:"image_url,omitempty"`
	Image              string `json:"image,omitempty"`
}

type deckJSON struct {
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Parent    string     `json:"parent,omitempty"`
	SourceURL string     `json:"source_url"`
	Variant   string     `json:"variant"`
	Items     []itemJSON `json:"items"`
}

// DeckJSON is the JSON form of deck.
func DeckJSON(deck *models.Deck) any {
	out := deckJSON{
		Name:      deck.FullName(),
		Title:     deck.Title,
		Parent:    deck.Parent,
		SourceURL: deck.SourceURL,
		Variant:   deck.Variant.String(),
		Items:     make([]itemJSON, 0, len(deck.Items)),
	}
	for _, it := range deck.Items {
		out.Items = append(out.Items, itemJSON{
			ID:                 it.ID,
			Term:               it.Term,
			TermText:           it.TermText,
			Definition:         it.Definition,
			DefinitionText:     it.DefinitionText,
			TermAudioURL:       it.TermAudio.URL,
			TermAudio:          it.TermAudioFile,
			DefinitionAudioURL: it.DefinitionAudio.URL,
			DefinitionAudio:    it.DefinitionAudioFile,
			ImageURL:           it.Image.URL,
			Image:              it.ImageFile,
		})
	}
	return out
}

func renderJSON(deck *models.Deck) ([]byte, error) {
	data, err := json.MarshalIndent(DeckJSON(deck), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

func renderMarkdown(deck *models.Deck) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", deck.FullName())
	if deck.SourceURL != "" {
		fmt.Fprintf(&b, "Source: <%s>\n\n", deck.SourceURL)
	}

	for i, it := range deck.Items {
		term, err := toMarkdown(it.Term)
		if err != nil {
			return nil, fmt.Errorf("item %s term: %w", it.ID, err)
		}
		definition, err := toMarkdown(it.Definition)
		if err != nil {
			return nil, fmt.Errorf("item %s definition: %w", it.ID, err)
		}

		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, strings.ReplaceAll(term, "\n", " "))
		if definition != "" {
			b.WriteString(definition)
			b.WriteString("\n\n")
		}
		if it.ImageFile != "" {
			fmt.Fprintf(&b, "![](%s)\n\n", it.ImageFile)
		}
	}
	return []byte(b.String()), nil
}

func toMarkdown(html string) (string, error) {
	md, err := htmltomarkdown.ConvertString(richtext.Ankify(html))
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
