package types

import (
	"context"
	"io"

	"github.com/xhad/quizdeck/internal/models"
)

// Route selects how a page is retrieved.
type Route int

const (
	RouteDirect Route = iota
	RouteProxy
)

func (r Route) String() string {
	if r == RouteProxy {
		return "proxy"
	}
	return "direct"
}

// Fetcher retrieves a page over one of the retrieval routes.
type Fetcher interface {
	Fetch(ctx context.Context, url string, route Route) (*models.RawDocument, error)
}

// MediaStore is where downloaded media files end up. It is normally the
// host application's media folder.
type MediaStore interface {
	Save(name string, r io.Reader) error
}

// DeckImporter is the entry point the host application calls.
type DeckImporter interface {
	ImportDeck(ctx context.Context, sourceURL string, opts ImportOptions) (*models.Deck, error)
}

// ImportOptions controls which items are imported and whether audio is
// downloaded. Empty phrases mean no restriction.
type ImportOptions struct {
	DownloadAudio bool   `json:"download_audio" yaml:"download_audio"`
	StartPhrase   string `json:"start_phrase" yaml:"start_phrase"`
	StopPhrase    string `json:"stop_phrase" yaml:"stop_phrase"`
	// Parent names the enclosing deck for folder imports.
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
}
