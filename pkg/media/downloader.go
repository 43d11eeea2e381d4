package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/internal/types"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

type DownloaderConfig struct {
	Concurrency int
	RateLimit   float64 // requests per second
	Timeout     time.Duration
	UserAgent   string
	RetryDelay  time.Duration
}

// Downloader fetches media into a MediaStore. Within one Downloader a URL
// is fetched at most once; later requests for it return the first
// filename. Create one Downloader per import run.
type Downloader struct {
	config  DownloaderConfig
	client  *http.Client
	limiter *rate.Limiter
	store   types.MediaStore
	log     *slog.Logger

	group   singleflight.Group
	mu      sync.Mutex
	cache   models.DownloadedMedia
	fetches atomic.Int64
}

func NewDownloader(config DownloaderConfig, store types.MediaStore, logger *slog.Logger) *Downloader {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Downloader{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		store:   store,
		log:     logger.With("component", "media"),
		cache:   make(models.DownloadedMedia),
	}
}

// Fetch downloads url into filename unless the URL was already fetched in
// this run, and returns the filename the asset is stored under.
func (d *Downloader) Fetch(ctx context.Context, url, filename string) (string, error) {
	key := NormalizeURL(url)
	if name, ok := d.lookup(key); ok {
		return name, nil
	}

	v, err, _ := d.group.Do(key, func() (any, error) {
		if name, ok := d.lookup(key); ok {
			return name, nil
		}
		if err := d.download(ctx, key, filename); err != nil {
			return "", err
		}
		d.mu.Lock()
		d.cache[key] = filename
		d.mu.Unlock()
		return filename, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (d *Downloader) lookup(key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name, ok := d.cache[key]
	return name, ok
}

// Downloaded returns a copy of the URL to filename mapping of this run.
func (d *Downloader) Downloaded() models.DownloadedMedia {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(models.DownloadedMedia, len(d.cache))
	for k, v := range d.cache {
		out[k] = v
	}
	return out
}

// Fetches reports how many network downloads were started.
func (d *Downloader) Fetches() int64 {
	return d.fetches.Load()
}

func (d *Downloader) download(ctx context.Context, url, filename string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	d.fetches.Add(1)

	resp, err := d.doWithRetry(ctx, url)
	if err != nil {
		return &models.NetworkError{Detail: "fetch " + url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &models.NetworkError{Detail: "fetch " + url, Status: resp.StatusCode}
	}

	if err := d.store.Save(filename, resp.Body); err != nil {
		return fmt.Errorf("saving %s: %w", filename, err)
	}
	d.log.DebugContext(ctx, "media saved", slog.String("url", url), slog.String("file", filename))
	return nil
}

// doWithRetry makes one more attempt after a network error or a 5xx.
func (d *Downloader) doWithRetry(ctx context.Context, url string) (*http.Response, error) {
	resp, err := d.do(ctx, url)
	shouldRetry := err != nil || resp.StatusCode >= 500
	if !shouldRetry || ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
		resp.Body.Close()
	}
	d.log.WarnContext(ctx, "media retry", slog.String("url", url), slog.String("reason", reason))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(d.config.RetryDelay):
	}
	return d.do(ctx, url)
}

func (d *Downloader) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if d.config.UserAgent != "" {
		req.Header.Set("User-Agent", d.config.UserAgent)
	}
	return d.client.Do(req)
}

// Job is one media file to fetch.
type Job struct {
	URL      string
	Filename string
}

// FetchAll downloads jobs with bounded parallelism. The returned slice is
// index-aligned with jobs; a failed download leaves an empty name and is
// logged. Cancelling ctx stops new downloads and returns ctx's error.
func (d *Downloader) FetchAll(ctx context.Context, jobs []Job, onDone func()) ([]string, error) {
	results := make([]string, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Concurrency)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			name, err := d.Fetch(gctx, job.URL, job.Filename)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				d.log.WarnContext(ctx, "media download failed", slog.String("url", job.URL), slog.String("error", err.Error()))
			}
			results[i] = name
			if onDone != nil {
				onDone()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
