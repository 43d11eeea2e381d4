// Package detector locates the JSON payload a study-set page embeds and
// tells which of the site's historical formats it uses.
package detector

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xhad/quizdeck/internal/models"
)

// PasswordMarker appears on pages of password-protected or private sets.
const PasswordMarker = `window.Quizlet["setPasswordData"]`

// Marker is a literal prefix/suffix pair around an embedded payload.
type Marker struct {
	Prefix  string
	Suffix  string
	Variant models.SchemaVariant
	// Decode turns the captured text into the payload JSON. Nil means the
	// capture already is the payload.
	Decode func(captured string) (string, error)
}

// Markers lists the embedding formats in the order they are tried.
var Markers = []Marker{
	globalAssignment("setPageData", models.VariantSetPageData),
	globalAssignment("assistantModeData", models.VariantAssistantModeData),
	globalAssignment("cardsModeData", models.VariantCardsModeData),
	{
		Prefix:  `<script id="__NEXT_DATA__" type="application/json">`,
		Suffix:  `</script>`,
		Variant: models.VariantDehydratedState,
		Decode:  decodeDehydratedState,
	},
}

func globalAssignment(name string, variant models.SchemaVariant) Marker {
	return Marker{
		Prefix:  `window.Quizlet["` + name + `"] = `,
		Suffix:  `; QLoad("Quizlet.` + name + `");`,
		Variant: variant,
	}
}

// dehydratedStatePath holds the redux state, itself a JSON-encoded string.
const dehydratedStatePath = "props.pageProps.dehydratedReduxStateKey"

func decodeDehydratedState(captured string) (string, error) {
	if !gjson.Valid(captured) {
		return "", &models.MalformedPayloadError{Detail: "next data is not valid JSON"}
	}
	state := gjson.Get(captured, dehydratedStatePath)
	switch {
	case !state.Exists():
		return "", &models.MalformedPayloadError{Detail: "next data has no " + dehydratedStatePath}
	case state.Type == gjson.String:
		if !gjson.Valid(state.Str) {
			return "", &models.MalformedPayloadError{Detail: "dehydrated state is not valid JSON"}
		}
		return state.Str, nil
	case state.IsObject():
		return state.Raw, nil
	default:
		return "", &models.MalformedPayloadError{Detail: "dehydrated state has unexpected type " + state.Type.String()}
	}
}

// Capture returns the trimmed text between the first prefix occurrence and
// the nearest following suffix.
func Capture(text, prefix, suffix string) (string, bool) {
	start := strings.Index(text, prefix)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(prefix):]
	end := strings.Index(rest, suffix)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// DetectAndExtract finds the embedded payload in html. A page carrying the
// password marker fails with an AccessDeniedError before any payload is
// searched for; a page with none of the markers fails with
// models.ErrSchemaNotRecognized.
func DetectAndExtract(html string) (models.SchemaVariant, string, error) {
	if strings.Contains(html, PasswordMarker) {
		return models.VariantUnknown, "", &models.AccessDeniedError{Status: 403}
	}

	for _, m := range Markers {
		captured, ok := Capture(html, m.Prefix, m.Suffix)
		if !ok {
			continue
		}
		payload := captured
		if m.Decode != nil {
			var err error
			payload, err = m.Decode(captured)
			if err != nil {
				return m.Variant, "", err
			}
		}
		return refine(m.Variant, payload), payload, nil
	}

	if payload, ok := webAPIPayload(html); ok {
		return models.VariantWebAPIResponse, payload, nil
	}

	return models.VariantUnknown, "", models.ErrSchemaNotRecognized
}

// refine recognises the flat term map that older setPageData payloads used.
func refine(variant models.SchemaVariant, payload string) models.SchemaVariant {
	if variant == models.VariantSetPageData && gjson.Get(payload, "termIdToTermsMap").IsObject() {
		return models.VariantLegacyTermsMap
	}
	return variant
}

// webAPIPayload accepts a document that is itself a studiable-item API
// response rather than an HTML page.
func webAPIPayload(doc string) (string, bool) {
	trimmed := strings.TrimSpace(doc)
	if !strings.HasPrefix(trimmed, "{") || !gjson.Valid(trimmed) {
		return "", false
	}
	if !gjson.Get(trimmed, "responses.0.models.studiableItem").IsArray() {
		return "", false
	}
	return trimmed, true
}
