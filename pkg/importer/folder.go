package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/internal/types"
	"github.com/xhad/quizdeck/pkg/detector"
	"golang.org/x/time/rate"
)

// ImportFolder imports every set of a folder in order, naming each deck
// "<folder>::<set>". Sets are paced FolderDelay apart. The first failing
// set stops the import; the decks imported so far are returned with the
// error.
func (im *Importer) ImportFolder(ctx context.Context, folderURL string, opts types.ImportOptions) ([]*models.Deck, error) {
	folder, err := im.FetchFolder(ctx, folderURL)
	if err != nil {
		return nil, err
	}
	im.log.InfoContext(ctx, "folder found", slog.String("folder", folder.Name), slog.Int("sets", len(folder.SetURLs)))

	opts.Parent = folder.Name
	limiter := rate.NewLimiter(rate.Every(im.config.FolderDelay), 1)
	dl := im.newDownloader()

	decks := make([]*models.Deck, 0, len(folder.SetURLs))
	for _, setURL := range folder.SetURLs {
		if err := limiter.Wait(ctx); err != nil {
			return decks, err
		}
		deck, err := im.importDeck(ctx, dl, setURL, opts)
		if err != nil {
			return decks, fmt.Errorf("set %s: %w", setURL, err)
		}
		decks = append(decks, deck)
	}
	return decks, nil
}

// FetchFolder reads a folder page over the direct route, falling back to
// the proxy route once like set pages do.
func (im *Importer) FetchFolder(ctx context.Context, folderURL string) (*models.Folder, error) {
	var lastErr error
	for _, route := range []types.Route{types.RouteDirect, types.RouteProxy} {
		doc, err := im.config.Source.Fetch(ctx, folderURL, route)
		if err == nil {
			var folder *models.Folder
			if folder, err = detector.ExtractFolder(doc.HTML); err == nil {
				return folder, nil
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

// Import dispatches to ImportFolder or ImportDeck depending on the URL.
func (im *Importer) Import(ctx context.Context, sourceURL string, opts types.ImportOptions) ([]*models.Deck, error) {
	if im.config.Source.IsFolderURL(sourceURL) {
		return im.ImportFolder(ctx, sourceURL, opts)
	}
	deck, err := im.ImportDeck(ctx, sourceURL, opts)
	if err != nil {
		return nil, err
	}
	return []*models.Deck{deck}, nil
}
