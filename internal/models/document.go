package models

import "fmt"

// RawDocument is a fetched page together with the URL it came from.
type RawDocument struct {
	URL  string
	HTML string
}

// SchemaVariant identifies which embedding format a document carried.
type SchemaVariant int

const (
	VariantUnknown SchemaVariant = iota
	VariantSetPageData
	VariantAssistantModeData
	VariantCardsModeData
	VariantDehydratedState
	VariantWebAPIResponse
	VariantLegacyTermsMap
)

var variantNames = map[SchemaVariant]string{
	VariantUnknown:           "unknown",
	VariantSetPageData:       "setPageData",
	VariantAssistantModeData: "assistantModeData",
	VariantCardsModeData:     "cardsModeData",
	VariantDehydratedState:   "dehydratedState",
	VariantWebAPIResponse:    "webApiResponse",
	VariantLegacyTermsMap:    "legacyTermsMap",
}

func (v SchemaVariant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("SchemaVariant(%d)", int(v))
}

// MediaKind tags the variant held by a MediaRef.
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaInlineAudio
	MediaTextToSpeech
	MediaImage
	MediaDiagramImage
)

// MediaRef points at an audio or image asset attached to a card side.
// For MediaDiagramImage, ContainerID names the diagram and URL holds the
// image resolved from the payload's side-table.
type MediaRef struct {
	Kind        MediaKind
	URL         string
	ContainerID string
}

// IsZero reports whether the reference is empty.
func (m MediaRef) IsZero() bool {
	return m.Kind == MediaNone
}

// IsAudio reports whether the reference is an audio asset.
func (m MediaRef) IsAudio() bool {
	return m.Kind == MediaInlineAudio || m.Kind == MediaTextToSpeech
}

// CanonicalItem is one flashcard, independent of the payload shape it was
// read from. Term and Definition hold HTML; TermText and DefinitionText
// hold the source's plain text.
type CanonicalItem struct {
	ID              string
	Term            string
	TermText        string
	TermAudio       MediaRef
	Definition      string
	DefinitionText  string
	DefinitionAudio MediaRef
	Image           MediaRef
}

// CanonicalSet is the title and ordered items of one study set.
type CanonicalSet struct {
	Title   string
	Variant SchemaVariant
	Items   []CanonicalItem
}

// DownloadedMedia maps a resolved media URL to the local filename it was
// stored under.
type DownloadedMedia map[string]string

// DeckItem is a canonical item plus the local filenames of its media.
// Empty filenames mean the asset was absent or not requested.
type DeckItem struct {
	CanonicalItem
	TermAudioFile       string
	DefinitionAudioFile string
	ImageFile           string
}

// Deck is the result of one import: the set title, the parent deck name for
// folder imports, and the items selected by the phrase range.
type Deck struct {
	Parent    string
	Title     string
	SourceURL string
	Variant   SchemaVariant
	Items     []DeckItem
}

// FullName returns the deck name with its parent, joined by "::".
func (d *Deck) FullName() string {
	if d.Parent == "" {
		return d.Title
	}
	return d.Parent + "::" + d.Title
}

// Folder is a named group of study sets.
type Folder struct {
	Name    string
	SetURLs []string
}

// Note is a flashcard ready for the host application.
type Note struct {
	Front      string `json:"front"`
	Back       string `json:"back"`
	FrontAudio string `json:"front_audio,omitempty"`
	BackAudio  string `json:"back_audio,omitempty"`
	Image      string `json:"image,omitempty"`
	AddReverse bool   `json:"add_reverse,omitempty"`
}
