// Package processor turns imported decks into notes for the host
// application's flashcard model.
package processor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/internal/types"
	"github.com/xhad/quizdeck/pkg/richtext"
)

// StylesheetName is the media file the rich-text notes link to.
const StylesheetName = "_quizlet.css"

// Stylesheet defines the highlight classes rich text may still carry, with
// darker variants for night mode.
const Stylesheet = `:root {
  --yellow_light_background: #fff4e5;
  --blue_light_background: #cde7fa;
  --pink_light_background: #fde8ff;
}

.nightMode {
  --yellow_light_background: #8c7620;
  --blue_light_background: #295f87;
  --pink_light_background: #7d537f;
}

.bgY {
  background-color: var(--yellow_light_background);
}

.bgB {
  background-color: var(--blue_light_background);
}

.bgP {
  background-color: var(--pink_light_background);
}
`

var stylesheetLink = fmt.Sprintf(`<link rel="stylesheet" href="%s">`, StylesheetName)

type ProcessorConfig struct {
	// RichText keeps the rendered formatting; otherwise the plain text is
	// used.
	RichText   bool
	AddReverse bool
	// ImageOnBack appends the image to the Back field instead of filling the
	// Image field.
	ImageOnBack bool
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	return Processor{
		config: config,
	}
}

// Process builds one note per deck item, in deck order.
func (p *Processor) Process(deck *models.Deck) []models.Note {
	notes := make([]models.Note, 0, len(deck.Items))
	for _, item := range deck.Items {
		notes = append(notes, p.note(item))
	}
	return notes
}

func (p *Processor) note(item models.DeckItem) models.Note {
	note := models.Note{
		Front:      p.text(item.Term, item.TermText),
		Back:       p.text(item.Definition, item.DefinitionText),
		FrontAudio: sound(item.TermAudioFile),
		BackAudio:  sound(item.DefinitionAudioFile),
		AddReverse: p.config.AddReverse,
	}

	if item.ImageFile != "" {
		img := fmt.Sprintf(`<div><img src="%s"></div>`, item.ImageFile)
		if p.config.ImageOnBack {
			if note.Back != "" {
				note.Back += "<div><br></div>"
			}
			note.Back += img
		} else {
			note.Image = img
		}
	}

	if p.config.RichText {
		note.Front = stylesheetLink + note.Front
	}
	return note
}

// starBold is the asterisk emphasis plain-text cards use.
var starBold = regexp.MustCompile(`\*(.+?)\*`)

func (p *Processor) text(html, plain string) string {
	if p.config.RichText {
		return richtext.Ankify(html)
	}
	text := starBold.ReplaceAllString(richtext.EscapeText(plain), "<b>$1</b>")
	return richtext.Ankify(text)
}

func sound(file string) string {
	if file == "" {
		return ""
	}
	return "[sound:" + file + "]"
}

// Fields returns the note's field values in model order.
func Fields(n models.Note) []string {
	reverse := ""
	if n.AddReverse {
		reverse = "y"
	}
	return []string{n.Front, n.Back, n.FrontAudio, n.BackAudio, n.Image, reverse}
}

// FieldNames lists the note model's fields in order.
var FieldNames = []string{"Front", "Back", "FrontAudio", "BackAudio", "Image", "Add Reverse"}

// WriteStylesheet saves the highlight stylesheet into the media store so
// rich-text notes can link to it.
func WriteStylesheet(ms types.MediaStore) error {
	return ms.Save(StylesheetName, strings.NewReader(Stylesheet))
}
