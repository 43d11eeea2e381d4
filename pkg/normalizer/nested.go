package normalizer

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/pkg/richtext"
)

// normalizeNested handles studiableDocumentData, where every item carries
// its card sides and each side its media list.
func normalizeNested(doc gjson.Result) ([]models.CanonicalItem, error) {
	items := doc.Get("studiableItems")
	if !items.IsArray() {
		return nil, &models.MalformedPayloadError{Detail: "studiableDocumentData has no studiableItems"}
	}
	return normalizeItemList(items.Array(), doc.Get("setIdToDiagramImage"))
}

// normalizeWebAPI handles studiable-item API responses, which may be paged
// over several responses.
func normalizeWebAPI(root gjson.Result) ([]models.CanonicalItem, error) {
	responses := root.Get("responses")
	if !responses.IsArray() {
		return nil, &models.MalformedPayloadError{Detail: "web api response has no responses"}
	}
	var items []gjson.Result
	var diagrams gjson.Result
	for _, resp := range responses.Array() {
		items = append(items, resp.Get("models.studiableItem").Array()...)
		if d := resp.Get("models.setIdToDiagramImage"); d.IsObject() && !diagrams.Exists() {
			diagrams = d
		}
	}
	return normalizeItemList(items, diagrams)
}

func normalizeItemList(items []gjson.Result, diagrams gjson.Result) ([]models.CanonicalItem, error) {
	result := make([]models.CanonicalItem, 0, len(items))
	for i, item := range items {
		ci, err := normalizeNestedItem(item, i, diagrams)
		if err != nil {
			return nil, err
		}
		result = append(result, ci)
	}
	return result, nil
}

func normalizeNestedItem(item gjson.Result, index int, diagrams gjson.Result) (models.CanonicalItem, error) {
	id, err := itemID(item, index)
	if err != nil {
		return models.CanonicalItem{}, err
	}

	sides := item.Get("cardSides")
	if !sides.IsArray() {
		return models.CanonicalItem{}, &models.MalformedItemError{ItemID: id, Field: "cardSides"}
	}
	word, ok := findSide(sides, sideWord)
	if !ok {
		return models.CanonicalItem{}, &models.MalformedItemError{ItemID: id, Field: "word side"}
	}
	definition, ok := findSide(sides, sideDefinition)
	if !ok {
		return models.CanonicalItem{}, &models.MalformedItemError{ItemID: id, Field: "definition side"}
	}

	ci := models.CanonicalItem{ID: id}

	w, err := readSide(id, sideWord, word)
	if err != nil {
		return models.CanonicalItem{}, err
	}
	ci.Term, ci.TermText, ci.TermAudio = w.html, w.plain, w.audio

	d, err := readSide(id, sideDefinition, definition)
	if err != nil {
		return models.CanonicalItem{}, err
	}
	ci.Definition, ci.DefinitionText, ci.DefinitionAudio = d.html, d.plain, d.audio
	ci.Image = d.image

	if location, ok := findSide(sides, sideLocation); ok && ci.Image.IsZero() {
		image, err := diagramImage(id, item, location, diagrams)
		if err != nil {
			return models.CanonicalItem{}, err
		}
		ci.Image = image
	}

	return ci, nil
}

func findSide(sides gjson.Result, label string) (gjson.Result, bool) {
	for _, side := range sides.Array() {
		if side.Get("label").String() == label {
			return side, true
		}
	}
	return gjson.Result{}, false
}

type sideContent struct {
	html  string
	plain string
	audio models.MediaRef
	image models.MediaRef
}

// readSide applies the per-side rules: the first text media gives the text,
// the first audio media gives the audio with the text's TTS URL as
// fallback, and on the definition side the first image media gives the
// image.
func readSide(id, label string, side gjson.Result) (sideContent, error) {
	media := side.Get("media")
	if !media.IsArray() {
		return sideContent{}, &models.MalformedItemError{ItemID: id, Field: label + " media"}
	}

	var (
		out       sideContent
		text      gjson.Result
		hasText   bool
		directURL string
	)
	for _, m := range media.Array() {
		switch m.Get("type").Int() {
		case mediaText:
			if !hasText {
				text, hasText = m, true
			}
		case mediaAudio:
			if directURL == "" {
				directURL = first(m, "url", "audio.url").String()
			}
		case mediaImage:
			if label == sideDefinition && out.image.IsZero() {
				out.image = imageRef(first(m, "url", "image.url").String())
			}
		}
	}

	if !hasText {
		return sideContent{}, &models.MalformedItemError{ItemID: id, Field: label + " text"}
	}
	plain := text.Get("plainText")
	if !plain.Exists() {
		plain = text.Get("text.plainText")
	}
	if plain.Type != gjson.String {
		return sideContent{}, &models.MalformedItemError{ItemID: id, Field: label + " plainText"}
	}
	rich := text.Get("richText")
	if !rich.Exists() {
		rich = text.Get("text.richText")
	}
	node, err := richtext.Parse(rich)
	if err != nil {
		return sideContent{}, fmt.Errorf("item %s %s: %w", id, label, err)
	}

	out.plain = plain.Str
	out.html = richtext.Render(node, richtext.EscapeText(plain.Str))
	out.audio = audioRef(directURL, first(text, "ttsUrl", "text.ttsUrl").String())
	return out, nil
}

// diagramImage resolves a diagram card's image through the side-table keyed
// by the item's container id.
func diagramImage(id string, item, location, diagrams gjson.Result) (models.MediaRef, error) {
	hasDiagram := false
	for _, m := range location.Get("media").Array() {
		if m.Get("type").Int() == mediaDiagram {
			hasDiagram = true
			break
		}
	}
	if !hasDiagram {
		return models.MediaRef{}, nil
	}

	containerID := item.Get("studiableContainerId").String()
	if containerID == "" {
		return models.MediaRef{}, &models.MalformedItemError{ItemID: id, Field: "studiableContainerId"}
	}

	var url string
	diagrams.ForEach(func(key, value gjson.Result) bool {
		if key.String() == containerID {
			url = value.Get("url").String()
			return false
		}
		return true
	})
	if url == "" {
		return models.MediaRef{}, &models.MalformedItemError{ItemID: id, Field: "setIdToDiagramImage[" + containerID + "]"}
	}
	return models.MediaRef{Kind: models.MediaDiagramImage, URL: url, ContainerID: containerID}, nil
}
