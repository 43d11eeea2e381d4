// Package importer runs the fetch, detect and normalize pipeline for a set,
// retrying once through the proxy route, and then downloads the media the
// selected items reference.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/internal/types"
	"github.com/xhad/quizdeck/pkg/detector"
	"github.com/xhad/quizdeck/pkg/media"
	"github.com/xhad/quizdeck/pkg/normalizer"
	"github.com/xhad/quizdeck/pkg/title"
)

// maxAttempts bounds the pipeline to the direct route plus one proxy retry.
const maxAttempts = 2

// Source fetches pages and understands the site's URL layout.
type Source interface {
	types.Fetcher
	ParseDeckURL(raw string) (id, fetchURL string, err error)
	IsFolderURL(raw string) bool
}

// State is a step of the retrieval state machine.
type State int

const (
	StateFetchingDirect State = iota
	StateDetected
	StateAccessDenied
	StateFetchFailed
	StateFetchingProxy
	StateTerminalError
	// StateDownloading follows StateDetected while media is fetched.
	StateDownloading
)

func (s State) String() string {
	switch s {
	case StateFetchingDirect:
		return "fetching_direct"
	case StateDetected:
		return "detected"
	case StateAccessDenied:
		return "access_denied"
	case StateFetchFailed:
		return "fetch_failed"
	case StateFetchingProxy:
		return "fetching_proxy"
	case StateTerminalError:
		return "terminal_error"
	case StateDownloading:
		return "downloading"
	default:
		return "unknown"
	}
}

// Progress reports pipeline activity to the caller.
type Progress struct {
	Deck  string
	State State
	// Done and Total count finished and scheduled media downloads.
	Done  int
	Total int
}

type ImporterConfig struct {
	Source     Source
	Store      types.MediaStore // nil disables media downloads
	Resolver   *media.Resolver
	Downloader media.DownloaderConfig
	// FolderDelay paces the sets of a folder import.
	FolderDelay time.Duration
	Logger      *slog.Logger
	// OnProgress is never called concurrently.
	OnProgress func(Progress)
}

type Importer struct {
	config ImporterConfig
	log    *slog.Logger
	mu     sync.Mutex
}

var _ types.DeckImporter = (*Importer)(nil)

func NewWithConfig(config ImporterConfig) (*Importer, error) {
	if config.Source == nil {
		return nil, errors.New("importer needs a source")
	}
	if config.Resolver == nil {
		config.Resolver = media.NewResolver("", "")
	}
	if config.FolderDelay == 0 {
		config.FolderDelay = 1500 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Importer{
		config: config,
		log:    config.Logger.With("component", "importer"),
	}, nil
}

// ImportDeck imports the set at sourceURL.
func (im *Importer) ImportDeck(ctx context.Context, sourceURL string, opts types.ImportOptions) (*models.Deck, error) {
	return im.importDeck(ctx, im.newDownloader(), sourceURL, opts)
}

func (im *Importer) importDeck(ctx context.Context, dl *media.Downloader, sourceURL string, opts types.ImportOptions) (*models.Deck, error) {
	_, fetchURL, err := im.config.Source.ParseDeckURL(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid set URL %q: %w", sourceURL, err)
	}

	set, err := im.Retrieve(ctx, fetchURL, sourceURL)
	if err != nil {
		return nil, err
	}
	return im.buildDeck(ctx, dl, set, sourceURL, opts)
}

// ImportHTML runs the pipeline on page source the user already has, for
// sets the fetch routes cannot reach.
func (im *Importer) ImportHTML(ctx context.Context, html, sourceURL string, opts types.ImportOptions) (*models.Deck, error) {
	set, err := Parse(&models.RawDocument{URL: sourceURL, HTML: html})
	if err != nil {
		return nil, err
	}
	return im.buildDeck(ctx, im.newDownloader(), set, sourceURL, opts)
}

// Parse detects, normalizes and titles one fetched page.
func Parse(doc *models.RawDocument) (*models.CanonicalSet, error) {
	variant, payload, err := detector.DetectAndExtract(doc.HTML)
	if err != nil {
		return nil, err
	}
	items, err := normalizer.Normalize(variant, payload)
	if err != nil {
		return nil, err
	}
	return &models.CanonicalSet{
		Title:   title.ExtractTitle(doc.HTML, doc.URL),
		Variant: variant,
		Items:   items,
	}, nil
}

// Retrieve fetches and parses fetchURL over the direct route. Any failure
// other than a 404 or a malformed item is retried once over the proxy
// route; the second failure is returned as is.
func (im *Importer) Retrieve(ctx context.Context, fetchURL, sourceURL string) (*models.CanonicalSet, error) {
	route := types.RouteDirect
	state := StateFetchingDirect
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		im.transition(ctx, sourceURL, state)

		set, err := im.attempt(ctx, fetchURL, sourceURL, route)
		if err == nil {
			im.transition(ctx, sourceURL, StateDetected)
			return set, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		if errors.Is(err, models.ErrAccessDenied) {
			im.transition(ctx, sourceURL, StateAccessDenied)
		} else {
			im.transition(ctx, sourceURL, StateFetchFailed)
		}
		im.log.WarnContext(ctx, "attempt failed",
			slog.String("url", sourceURL),
			slog.String("route", route.String()),
			slog.Int("attempt", attempt),
			slog.String("kind", models.Classify(err).String()),
			slog.String("error", err.Error()))

		if !retryable(err) {
			break
		}
		route = types.RouteProxy
		state = StateFetchingProxy
	}

	im.transition(ctx, sourceURL, StateTerminalError)
	return nil, lastErr
}

func (im *Importer) attempt(ctx context.Context, fetchURL, sourceURL string, route types.Route) (*models.CanonicalSet, error) {
	doc, err := im.config.Source.Fetch(ctx, fetchURL, route)
	if err != nil {
		return nil, err
	}
	return Parse(&models.RawDocument{URL: sourceURL, HTML: doc.HTML})
}

// retryable reports whether the proxy route might succeed where the direct
// route failed. A missing set and a broken item are the same on both.
func retryable(err error) bool {
	return !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrMalformedItem)
}

func (im *Importer) transition(ctx context.Context, deck string, state State) {
	im.log.DebugContext(ctx, "state", slog.String("url", deck), slog.String("state", state.String()))
	im.progress(ctx, Progress{Deck: deck, State: state})
}

type progressKey struct{}

// WithProgress returns a context whose imports also report to fn, in
// addition to the configured OnProgress.
func WithProgress(ctx context.Context, fn func(Progress)) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

func (im *Importer) progress(ctx context.Context, p Progress) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.report(ctx, p)
}

// report must be called with im.mu held.
func (im *Importer) report(ctx context.Context, p Progress) {
	if im.config.OnProgress != nil {
		im.config.OnProgress(p)
	}
	if fn, ok := ctx.Value(progressKey{}).(func(Progress)); ok && fn != nil {
		fn(p)
	}
}

func (im *Importer) newDownloader() *media.Downloader {
	if im.config.Store == nil {
		return nil
	}
	return media.NewDownloader(im.config.Downloader, im.config.Store, im.config.Logger)
}

// Side names used in media filenames.
const (
	sideFront = "front"
	sideBack  = "back"
	sideImage = "image"
)

// buildDeck applies the phrase range and downloads the media of the
// selected items. Items keep their order whatever order downloads finish in.
func (im *Importer) buildDeck(ctx context.Context, dl *media.Downloader, set *models.CanonicalSet, sourceURL string, opts types.ImportOptions) (*models.Deck, error) {
	selected := SliceByPhrases(set.Items, opts.StartPhrase, opts.StopPhrase)
	deck := &models.Deck{
		Parent:    opts.Parent,
		Title:     set.Title,
		SourceURL: sourceURL,
		Variant:   set.Variant,
		Items:     make([]models.DeckItem, len(selected)),
	}
	for i, item := range selected {
		deck.Items[i].CanonicalItem = item
	}
	im.log.InfoContext(ctx, "set parsed",
		slog.String("deck", deck.FullName()),
		slog.String("variant", set.Variant.String()),
		slog.Int("items", len(set.Items)),
		slog.Int("selected", len(selected)))

	if dl == nil {
		return deck, nil
	}

	var (
		jobs    []media.Job
		targets []*string
	)
	add := func(ref models.MediaRef, item *models.DeckItem, side string, target *string) {
		if ref.IsZero() {
			return
		}
		jobs = append(jobs, media.Job{
			URL:      im.config.Resolver.Resolve(ref.URL),
			Filename: im.config.Resolver.LocalFilename(ref, item.ID, side),
		})
		targets = append(targets, target)
	}
	for i := range deck.Items {
		item := &deck.Items[i]
		if opts.DownloadAudio {
			add(item.TermAudio, item, sideFront, &item.TermAudioFile)
			add(item.DefinitionAudio, item, sideBack, &item.DefinitionAudioFile)
		}
		add(item.Image, item, sideImage, &item.ImageFile)
	}
	if len(jobs) == 0 {
		return deck, nil
	}

	done := 0
	im.progress(ctx, Progress{Deck: deck.FullName(), State: StateDownloading, Total: len(jobs)})
	names, err := dl.FetchAll(ctx, jobs, func() {
		im.mu.Lock()
		defer im.mu.Unlock()
		done++
		im.report(ctx, Progress{Deck: deck.FullName(), State: StateDownloading, Done: done, Total: len(jobs)})
	})
	for j, name := range names {
		*targets[j] = name
	}
	if err != nil {
		return nil, err
	}
	return deck, nil
}
