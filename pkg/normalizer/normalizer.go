// Package normalizer maps every known study-set payload shape onto the
// canonical item model.
package normalizer

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/xhad/quizdeck/internal/models"
)

// Media type codes used by studiable payloads.
const (
	mediaText    = 1
	mediaImage   = 2
	mediaAudio   = 4
	mediaDiagram = 5
)

// Card side labels.
const (
	sideWord       = "word"
	sideDefinition = "definition"
	sideLocation   = "location"
)

type shapeFunc func(root gjson.Result) ([]models.CanonicalItem, error)

type shape struct {
	path      string
	normalize shapeFunc
}

// studiableShapes are probed in order for the page-embedded variants. Older
// pages put the data at the root, server-rendered pages nest it inside the
// redux state.
var studiableShapes = []shape{
	{"studiableDocumentData", normalizeNested},
	{"studyModesCommon.studiableDocumentData", normalizeNested},
	{"studiableData", normalizeJoined},
	{"studyModesCommon.studiableData", normalizeJoined},
	{"termIdToTermsMap", normalizeTermsMap},
	{"setPage.termIdToTermsMap", normalizeTermsMap},
}

// Normalize turns a payload of the given variant into canonical items in
// source order. An item missing a required field fails the whole payload
// with a MalformedItemError.
func Normalize(variant models.SchemaVariant, payload string) ([]models.CanonicalItem, error) {
	if !gjson.Valid(payload) {
		return nil, &models.MalformedPayloadError{Detail: fmt.Sprintf("%s payload is not valid JSON", variant)}
	}
	root := gjson.Parse(payload)

	switch variant {
	case models.VariantLegacyTermsMap:
		return normalizeTermsMap(root.Get("termIdToTermsMap"))
	case models.VariantWebAPIResponse:
		return normalizeWebAPI(root)
	case models.VariantSetPageData, models.VariantAssistantModeData,
		models.VariantCardsModeData, models.VariantDehydratedState:
		for _, s := range studiableShapes {
			if value := root.Get(s.path); value.IsObject() {
				return s.normalize(value)
			}
		}
		return nil, &models.MalformedPayloadError{Detail: fmt.Sprintf("no studiable data in %s payload", variant)}
	default:
		return nil, fmt.Errorf("normalize %s: %w", variant, models.ErrSchemaNotRecognized)
	}
}

// itemID returns the source id of an item, failing when it has none.
func itemID(item gjson.Result, index int) (string, error) {
	id := item.Get("id")
	if !id.Exists() || id.String() == "" {
		return "", &models.MalformedItemError{ItemID: fmt.Sprintf("#%d", index), Field: "id"}
	}
	return id.String(), nil
}

// first returns the first field among paths that holds a non-empty value.
func first(value gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := value.Get(p); r.Exists() && r.Type != gjson.Null && r.String() != "" {
			return r
		}
	}
	return gjson.Result{}
}

// audioRef prefers a direct audio URL and falls back to the text-to-speech
// URL only when no direct URL exists. An empty string counts as absent.
func audioRef(direct, tts string) models.MediaRef {
	switch {
	case direct != "":
		return models.MediaRef{Kind: models.MediaInlineAudio, URL: direct}
	case tts != "":
		return models.MediaRef{Kind: models.MediaTextToSpeech, URL: tts}
	default:
		return models.MediaRef{}
	}
}

func imageRef(url string) models.MediaRef {
	if url == "" {
		return models.MediaRef{}
	}
	return models.MediaRef{Kind: models.MediaImage, URL: url}
}
