package normalizer

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/pkg/media"
	"github.com/xhad/quizdeck/pkg/richtext"
)

type rankedItem struct {
	rank int64
	item models.CanonicalItem
}

// normalizeTermsMap handles the flat id-to-term map. Map order carries no
// meaning here; items are emitted by ascending rank.
func normalizeTermsMap(terms gjson.Result) ([]models.CanonicalItem, error) {
	if !terms.IsObject() {
		return nil, &models.MalformedPayloadError{Detail: "termIdToTermsMap is not an object"}
	}

	var (
		ranked []rankedItem
		err    error
	)
	terms.ForEach(func(key, term gjson.Result) bool {
		var ri rankedItem
		ri, err = normalizeTerm(key.String(), term)
		if err != nil {
			return false
		}
		ranked = append(ranked, ri)
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].rank < ranked[j].rank })

	result := make([]models.CanonicalItem, 0, len(ranked))
	for _, r := range ranked {
		result = append(result, r.item)
	}
	return result, nil
}

func normalizeTerm(key string, term gjson.Result) (rankedItem, error) {
	id := term.Get("id").String()
	if id == "" {
		id = key
	}
	if id == "" {
		return rankedItem{}, &models.MalformedItemError{ItemID: "?", Field: "id"}
	}

	rank := term.Get("rank")
	if rank.Type != gjson.Number {
		return rankedItem{}, &models.MalformedItemError{ItemID: id, Field: "rank"}
	}

	ci := models.CanonicalItem{ID: id}
	var err error

	ci.Term, ci.TermText, err = termText(id, term, "word")
	if err != nil {
		return rankedItem{}, err
	}
	ci.Definition, ci.DefinitionText, err = termText(id, term, "definition")
	if err != nil {
		return rankedItem{}, err
	}

	ci.TermAudio = audioRef(term.Get("_wordAudioUrl").String(), term.Get("_wordTtsUrl").String())
	ci.DefinitionAudio = audioRef(term.Get("_definitionAudioUrl").String(), term.Get("_definitionTtsUrl").String())

	image := term.Get("_imageUrl").String()
	if image == "" {
		if photo := term.Get("photo").String(); photo != "" {
			image, err = media.DecodeLegacyPhoto(photo)
			if err != nil {
				return rankedItem{}, fmt.Errorf("item %s: %w", id, err)
			}
		}
	}
	ci.Image = imageRef(image)

	return rankedItem{rank: rank.Int(), item: ci}, nil
}

func termText(id string, term gjson.Result, field string) (string, string, error) {
	plain := term.Get(field)
	if plain.Type != gjson.String {
		return "", "", &models.MalformedItemError{ItemID: id, Field: field}
	}
	node, err := richtext.Parse(term.Get(field + "RichText"))
	if err != nil {
		return "", "", fmt.Errorf("item %s %s: %w", id, field, err)
	}
	return richtext.Render(node, richtext.EscapeText(plain.Str)), plain.Str, nil
}
