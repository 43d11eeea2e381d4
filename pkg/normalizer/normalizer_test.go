package normalizer

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/quizdeck/internal/models"
)

const boldRichText = `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hola","marks":[{"type":"b"}]}]}]}`

const nestedItem = `{
	"id": 101,
	"cardSides": [
		{"label": "word", "media": [
			{"type": 1, "plainText": "hola", "richText": ` + boldRichText + `, "ttsUrl": "/tts/es.mp3?b=hola"},
			{"type": 4, "url": "https://audio.example/hola.mp3"}
		]},
		{"label": "definition", "media": [
			{"type": 1, "plainText": "hello & hi", "ttsUrl": "/tts/en.mp3?b=hello"},
			{"type": 2, "url": "https://o.quizlet.com/img_m.jpg"}
		]}
	]
}`

func assertFullItem(t *testing.T, items []models.CanonicalItem) {
	t.Helper()
	require.Len(t, items, 1)
	item := items[0]

	assert.Equal(t, "101", item.ID)
	assert.Equal(t, "<div><b>hola</b></div>", item.Term)
	assert.Equal(t, "hola", item.TermText)
	assert.Equal(t, "hello &amp; hi", item.Definition)
	assert.Equal(t, "hello & hi", item.DefinitionText)
	assert.Equal(t, models.MediaRef{Kind: models.MediaInlineAudio, URL: "https://audio.example/hola.mp3"}, item.TermAudio)
	assert.Equal(t, models.MediaRef{Kind: models.MediaTextToSpeech, URL: "/tts/en.mp3?b=hello"}, item.DefinitionAudio)
	assert.Equal(t, models.MediaRef{Kind: models.MediaImage, URL: "https://o.quizlet.com/img_m.jpg"}, item.Image)
}

func TestNormalizeVariants(t *testing.T) {
	documentData := `{"studiableItems":[` + nestedItem + `]}`

	tests := []struct {
		name    string
		variant models.SchemaVariant
		payload string
	}{
		{"set page data", models.VariantSetPageData, `{"studiableDocumentData":` + documentData + `}`},
		{"assistant mode data", models.VariantAssistantModeData, `{"studyModesCommon":{"studiableDocumentData":` + documentData + `}}`},
		{"cards mode data", models.VariantCardsModeData, `{"studiableDocumentData":` + documentData + `}`},
		{"dehydrated state", models.VariantDehydratedState, `{"studyModesCommon":{"studiableDocumentData":` + documentData + `}}`},
		{"web api response", models.VariantWebAPIResponse, `{"responses":[{"models":{"studiableItem":[` + nestedItem + `]}}]}`},
		{"joined tables", models.VariantSetPageData, `{"studiableData":{
			"studiableItems": [{"id": 101}],
			"studiableCardSides": [
				{"id": 7, "studiableItemId": 101, "label": "word"},
				{"id": 8, "studiableItemId": 101, "label": "definition"}
			],
			"studiableMediaConnections": [
				{"connectionModelId": 7, "mediaType": 1, "text": {"plainText": "hola", "richText": ` + strconv.Quote(boldRichText) + `, "ttsUrl": "/tts/es.mp3"}},
				{"connectionModelId": 7, "audio": {"url": "https://audio.example/hola.mp3"}},
				{"connectionModelId": 8, "text": {"plainText": "hello & hi", "ttsUrl": "/tts/en.mp3?b=hello"}},
				{"connectionModelId": 8, "mediaType": 2, "image": {"url": "https://o.quizlet.com/img_m.jpg"}}
			]
		}}`},
		{"legacy terms map", models.VariantLegacyTermsMap, `{"termIdToTermsMap":{"101":{
			"id": 101, "rank": 0,
			"word": "hola", "wordRichText": ` + boldRichText + `,
			"definition": "hello & hi",
			"_wordAudioUrl": "https://audio.example/hola.mp3", "_wordTtsUrl": "/tts/es.mp3",
			"_definitionTtsUrl": "/tts/en.mp3?b=hello",
			"_imageUrl": "https://o.quizlet.com/img_m.jpg"
		}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Normalize(tt.variant, tt.payload)
			require.NoError(t, err)
			assertFullItem(t, items)
		})
	}
}

func TestNormalizePreservesOrder(t *testing.T) {
	item := func(id, word string) string {
		return `{"id":"` + id + `","cardSides":[
			{"label":"word","media":[{"type":1,"plainText":"` + word + `"}]},
			{"label":"definition","media":[{"type":1,"plainText":"d"}]}]}`
	}
	payload := `{"studiableDocumentData":{"studiableItems":[` + item("z", "A") + `,` + item("a", "B") + `,` + item("m", "C") + `]}}`

	items, err := Normalize(models.VariantSetPageData, payload)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "A", items[0].TermText)
	assert.Equal(t, "B", items[1].TermText)
	assert.Equal(t, "C", items[2].TermText)
	assert.Equal(t, "z", items[0].ID)
	assert.Equal(t, "A", items[0].Term, "plain text is the fallback when rich text is absent")
}

func TestNormalizeMalformedItem(t *testing.T) {
	payload := `{"studiableDocumentData":{"studiableItems":[{"id":55,"cardSides":[
		{"label":"word","media":[{"type":4,"url":"x.mp3"}]},
		{"label":"definition","media":[{"type":1,"plainText":"d"}]}]}]}}`

	_, err := Normalize(models.VariantSetPageData, payload)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMalformedItem))

	var itemErr *models.MalformedItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "55", itemErr.ItemID)
	assert.Equal(t, models.KindMalformedItem, models.Classify(err))
}

func TestNormalizeMissingDefinitionSide(t *testing.T) {
	payload := `{"studiableDocumentData":{"studiableItems":[{"id":9,"cardSides":[
		{"label":"word","media":[{"type":1,"plainText":"w"}]}]}]}}`

	_, err := Normalize(models.VariantSetPageData, payload)
	var itemErr *models.MalformedItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "9", itemErr.ItemID)
	assert.Equal(t, "definition side", itemErr.Field)
}

func TestNormalizeTermsMapRankOrder(t *testing.T) {
	payload := `{"termIdToTermsMap":{
		"3":{"id":3,"rank":2,"word":"C","definition":"c"},
		"1":{"id":1,"rank":0,"word":"A","definition":"a"},
		"2":{"id":2,"rank":1,"word":"B","definition":"b","photo":"2,abc"}
	}}`

	items, err := Normalize(models.VariantLegacyTermsMap, payload)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "https://o.quizlet.com/i/abc.jpg", items[1].Image.URL)
	assert.True(t, items[0].Image.IsZero())
	assert.True(t, items[0].TermAudio.IsZero())
}

func TestNormalizeTermsMapMissingRank(t *testing.T) {
	payload := `{"termIdToTermsMap":{"1":{"id":1,"word":"A","definition":"a"}}}`

	_, err := Normalize(models.VariantLegacyTermsMap, payload)
	var itemErr *models.MalformedItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "rank", itemErr.Field)
}

func TestNormalizeDiagram(t *testing.T) {
	payload := `{"studiableDocumentData":{
		"setIdToDiagramImage":{"777":{"url":"https://o.quizlet.com/diagram.png"}},
		"studiableItems":[{"id":1,"studiableContainerId":777,"cardSides":[
			{"label":"word","media":[{"type":1,"plainText":"heart"}]},
			{"label":"definition","media":[{"type":1,"plainText":"organ"}]},
			{"label":"location","media":[{"type":5}]}]}]}}`

	items, err := Normalize(models.VariantSetPageData, payload)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.MediaRef{Kind: models.MediaDiagramImage, URL: "https://o.quizlet.com/diagram.png", ContainerID: "777"}, items[0].Image)
}

func TestNormalizeDiagramMissingEntry(t *testing.T) {
	payload := `{"studiableDocumentData":{
		"setIdToDiagramImage":{},
		"studiableItems":[{"id":1,"studiableContainerId":777,"cardSides":[
			{"label":"word","media":[{"type":1,"plainText":"heart"}]},
			{"label":"definition","media":[{"type":1,"plainText":"organ"}]},
			{"label":"location","media":[{"type":5}]}]}]}}`

	_, err := Normalize(models.VariantSetPageData, payload)
	var itemErr *models.MalformedItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "setIdToDiagramImage[777]", itemErr.Field)
}

func TestNormalizeAudioFallback(t *testing.T) {
	tests := []struct {
		name  string
		media string
		want  models.MediaRef
	}{
		{
			name:  "direct audio wins",
			media: `{"type":1,"plainText":"w","ttsUrl":"/tts"},{"type":4,"url":"/direct.mp3"}`,
			want:  models.MediaRef{Kind: models.MediaInlineAudio, URL: "/direct.mp3"},
		},
		{
			name:  "tts when no direct audio",
			media: `{"type":1,"plainText":"w","ttsUrl":"/tts"}`,
			want:  models.MediaRef{Kind: models.MediaTextToSpeech, URL: "/tts"},
		},
		{
			name:  "empty direct url counts as absent",
			media: `{"type":1,"plainText":"w","ttsUrl":"/tts"},{"type":4,"url":""}`,
			want:  models.MediaRef{Kind: models.MediaTextToSpeech, URL: "/tts"},
		},
		{
			name:  "no audio",
			media: `{"type":1,"plainText":"w"}`,
			want:  models.MediaRef{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"studiableDocumentData":{"studiableItems":[{"id":1,"cardSides":[
				{"label":"word","media":[` + tt.media + `]},
				{"label":"definition","media":[{"type":1,"plainText":"d"}]}]}]}}`
			items, err := Normalize(models.VariantSetPageData, payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, items[0].TermAudio)
		})
	}
}

func TestNormalizeBadPayload(t *testing.T) {
	_, err := Normalize(models.VariantSetPageData, `{not json`)
	assert.ErrorIs(t, err, models.ErrMalformedPayload)

	_, err = Normalize(models.VariantSetPageData, `{"other":{}}`)
	assert.ErrorIs(t, err, models.ErrMalformedPayload)

	_, err = Normalize(models.VariantUnknown, `{}`)
	assert.ErrorIs(t, err, models.ErrSchemaNotRecognized)
}

func TestNormalizeUnknownRichTextTag(t *testing.T) {
	payload := `{"studiableDocumentData":{"studiableItems":[{"id":1,"cardSides":[
		{"label":"word","media":[{"type":1,"plainText":"w","richText":{"type":"doc","content":[{"type":"table"}]}}]},
		{"label":"definition","media":[{"type":1,"plainText":"d"}]}]}]}}`

	_, err := Normalize(models.VariantSetPageData, payload)
	var schemaErr *models.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "table", schemaErr.Tag)
}
