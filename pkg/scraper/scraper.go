// Package scraper fetches study-set pages over the direct route or through
// the proxy route, and classifies HTTP failures.
package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/internal/types"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://quizlet.com"
	DefaultProxyURL  = "https://quizlet-proxy.proto.click/quizlet-deck?url="
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36"
)

// maxPageSize caps how much of a response body is read.
const maxPageSize = 32 << 20

var (
	ErrEmptyURL   = errors.New("empty set URL")
	ErrForeignURL = errors.New("URL does not belong to the study site")
	ErrNoSetID    = errors.New("no set id in URL")
)

type ScraperConfig struct {
	BaseURL   string
	ProxyURL  string
	UserAgent string
	// Cookies is a raw Cookie header value; QLTS, when set, takes precedence.
	Cookies   string
	QLTS      string
	RateLimit float64 // requests per second
	Timeout   time.Duration
	Logger    *slog.Logger
}

type Scraper struct {
	config   ScraperConfig
	client   *http.Client
	limiter  *rate.Limiter
	baseHost string
	log      *slog.Logger
}

var _ types.Fetcher = (*Scraper)(nil)

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.ProxyURL == "" {
		config.ProxyURL = DefaultProxyURL
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
		log:      config.Logger.With("component", "scraper"),
	}, nil
}

func New(baseURL string) *Scraper {
	s, _ := NewWithConfig(ScraperConfig{
		BaseURL: baseURL,
	})
	return s
}

var setIDPattern = regexp.MustCompile(`\d+`)

// ParseDeckURL validates a set URL and returns the set id and the
// canonical flashcards URL to fetch.
func (s *Scraper) ParseDeckURL(raw string) (id, fetchURL string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", ErrEmptyURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if !s.sameSite(parsedURL.Host) {
		return "", "", ErrForeignURL
	}

	id = setIDPattern.FindString(parsedURL.Path)
	if id == "" {
		return "", "", ErrNoSetID
	}
	return id, strings.TrimRight(s.config.BaseURL, "/") + "/" + id + "/flashcards", nil
}

// IsFolderURL reports whether raw points at a folder rather than a set.
func (s *Scraper) IsFolderURL(raw string) bool {
	parsedURL, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !s.sameSite(parsedURL.Host) {
		return false
	}
	return strings.Contains(parsedURL.Path, "/folders/")
}

// sameSite accepts the base host and its subdomains, with or without www.
func (s *Scraper) sameSite(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	base := strings.TrimPrefix(strings.ToLower(s.baseHost), "www.")
	return host == base || strings.HasSuffix(host, "."+base)
}

// ProxyURL returns the proxy route address for u.
func (s *Scraper) ProxyURL(u string) string {
	return s.config.ProxyURL + url.QueryEscape(u)
}

// Fetch retrieves u over the given route. A 403 becomes an
// AccessDeniedError, flagged as a captcha when the response carries a
// challenge header; a 404 becomes a NotFoundError; anything else that is
// not a 200 is a NetworkError.
func (s *Scraper) Fetch(ctx context.Context, u string, route types.Route) (*models.RawDocument, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := u
	if route == types.RouteProxy {
		target = s.ProxyURL(u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &models.NetworkError{Detail: "building request", Err: err}
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	if route == types.RouteDirect {
		s.setCookies(req)
	}

	s.log.DebugContext(ctx, "fetching", slog.String("url", u), slog.String("route", route.String()))
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &models.NetworkError{Detail: route.String() + " fetch " + u, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, &models.AccessDeniedError{Captcha: isChallenge(resp.Header), Status: resp.StatusCode}
	case http.StatusNotFound:
		return nil, &models.NotFoundError{URL: u}
	default:
		return nil, &models.NetworkError{Detail: route.String() + " fetch " + u, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, &models.NetworkError{Detail: "reading " + u, Err: err}
	}
	return &models.RawDocument{URL: u, HTML: string(body)}, nil
}

func (s *Scraper) setCookies(req *http.Request) {
	switch {
	case s.config.QLTS != "":
		req.AddCookie(&http.Cookie{Name: "qlts", Value: s.config.QLTS})
	case s.config.Cookies != "":
		req.Header.Set("Cookie", strings.TrimSpace(s.config.Cookies))
	}
}

func isChallenge(h http.Header) bool {
	return len(h.Values("CF-Chl-Bypass")) > 0 || strings.EqualFold(h.Get("cf-mitigated"), "challenge")
}
