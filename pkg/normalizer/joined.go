package normalizer

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/pkg/richtext"
)

// normalizeJoined handles studiableData, which spreads a card over three
// tables: items, card sides pointing at items, and media connections
// pointing at card sides.
func normalizeJoined(data gjson.Result) ([]models.CanonicalItem, error) {
	items := data.Get("studiableItems")
	if !items.IsArray() {
		return nil, &models.MalformedPayloadError{Detail: "studiableData has no studiableItems"}
	}
	sides := data.Get("studiableCardSides").Array()
	connections := data.Get("studiableMediaConnections").Array()

	result := make([]models.CanonicalItem, 0, len(items.Array()))
	for i, item := range items.Array() {
		id, err := itemID(item, i)
		if err != nil {
			return nil, err
		}

		ci := models.CanonicalItem{ID: id}

		word, err := joinSide(id, sideWord, sides, connections)
		if err != nil {
			return nil, err
		}
		ci.Term, ci.TermText, ci.TermAudio = word.html, word.plain, word.audio

		definition, err := joinSide(id, sideDefinition, sides, connections)
		if err != nil {
			return nil, err
		}
		ci.Definition, ci.DefinitionText, ci.DefinitionAudio = definition.html, definition.plain, definition.audio
		ci.Image = definition.image

		result = append(result, ci)
	}
	return result, nil
}

// joinSide finds the item's side with a linear scan on (itemId, label) and
// then reads the media connections whose connectionModelId is that side.
func joinSide(id, label string, sides, connections []gjson.Result) (sideContent, error) {
	var side gjson.Result
	found := false
	for _, s := range sides {
		if s.Get("studiableItemId").String() == id && s.Get("label").String() == label {
			side, found = s, true
			break
		}
	}
	if !found {
		return sideContent{}, &models.MalformedItemError{ItemID: id, Field: label + " side"}
	}
	sideID := side.Get("id").String()
	if sideID == "" {
		return sideContent{}, &models.MalformedItemError{ItemID: id, Field: label + " side id"}
	}

	var (
		out       sideContent
		text      gjson.Result
		hasText   bool
		directURL string
	)
	for _, c := range connections {
		if c.Get("connectionModelId").String() != sideID {
			continue
		}
		switch connectionType(c) {
		case mediaText:
			if !hasText {
				text, hasText = c, true
			}
		case mediaAudio:
			if directURL == "" {
				directURL = first(c, "audio.url", "url").String()
			}
		case mediaImage:
			if label == sideDefinition && out.image.IsZero() {
				out.image = imageRef(first(c, "image.url", "url").String())
			}
		}
	}

	if !hasText {
		return sideContent{}, &models.MalformedItemError{ItemID: id, Field: label + " text"}
	}
	plain := text.Get("text.plainText")
	if plain.Type != gjson.String {
		return sideContent{}, &models.MalformedItemError{ItemID: id, Field: label + " plainText"}
	}
	node, err := richtext.Parse(text.Get("text.richText"))
	if err != nil {
		return sideContent{}, fmt.Errorf("item %s %s: %w", id, label, err)
	}

	out.plain = plain.Str
	out.html = richtext.Render(node, richtext.EscapeText(plain.Str))
	out.audio = audioRef(directURL, text.Get("text.ttsUrl").String())
	return out, nil
}

// connectionType reads mediaType, inferring it from the payload key for
// connections that omit it.
func connectionType(c gjson.Result) int64 {
	if t := c.Get("mediaType"); t.Exists() {
		return t.Int()
	}
	switch {
	case c.Get("text").IsObject():
		return mediaText
	case c.Get("image").IsObject():
		return mediaImage
	case c.Get("audio").IsObject():
		return mediaAudio
	}
	return 0
}
