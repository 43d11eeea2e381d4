package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/internal/types"
)

func TestScraperConfig(t *testing.T) {
	config := ScraperConfig{
		BaseURL:   "https://quizlet.com",
		RateLimit: 1.0,
		Timeout:   10 * time.Second,
	}

	s, err := NewWithConfig(config)
	require.NoError(t, err)
	assert.Equal(t, config.BaseURL, s.config.BaseURL)
	assert.Equal(t, DefaultProxyURL, s.config.ProxyURL)
	assert.Equal(t, DefaultUserAgent, s.config.UserAgent)
	assert.Equal(t, "quizlet.com", s.baseHost)
}

func TestParseDeckURL(t *testing.T) {
	s := New("https://quizlet.com")

	tests := []struct {
		url      string
		id       string
		fetchURL string
		err      error
	}{
		{"https://quizlet.com/515858716/spanish-verbs-flash-cards/", "515858716", "https://quizlet.com/515858716/flashcards", nil},
		{"https://www.quizlet.com/gb/12345/x/", "12345", "https://quizlet.com/12345/flashcards", nil},
		{"quizlet.com/777/abc", "777", "https://quizlet.com/777/flashcards", nil},
		{"", "", "", ErrEmptyURL},
		{"https://example.com/123/", "", "", ErrForeignURL},
		{"https://quizlet.com/latest", "", "", ErrNoSetID},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			id, fetchURL, err := s.ParseDeckURL(tt.url)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.fetchURL, fetchURL)
		})
	}
}

func TestIsFolderURL(t *testing.T) {
	s := New("https://quizlet.com")
	assert.True(t, s.IsFolderURL("https://quizlet.com/user/bob/folders/spanish/sets"))
	assert.False(t, s.IsFolderURL("https://quizlet.com/123/x"))
	assert.False(t, s.IsFolderURL("https://example.com/folders/x"))
}

func TestFetchWithMockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		if cookie, err := r.Cookie("qlts"); assert.NoError(t, err) {
			assert.Equal(t, "token", cookie.Value)
		}

		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Test Page</title></head></html>`))
	}))
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{BaseURL: server.URL, QLTS: "token", RateLimit: 100})
	require.NoError(t, err)

	doc, err := s.Fetch(context.Background(), server.URL+"/1/flashcards", types.RouteDirect)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/1/flashcards", doc.URL)
	assert.Contains(t, doc.HTML, "Test Page")
}

func TestFetchRawCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a=1; b=2", r.Header.Get("Cookie"))
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{BaseURL: server.URL, Cookies: " a=1; b=2 ", RateLimit: 100})
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), server.URL, types.RouteDirect)
	require.NoError(t, err)
}

func TestFetchProxyRoute(t *testing.T) {
	var gotTarget string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.URL.Query().Get("url")
		assert.Empty(t, r.Header.Get("Cookie"))
		w.Write([]byte("proxied"))
	}))
	defer proxy.Close()

	s, err := NewWithConfig(ScraperConfig{
		BaseURL:   "https://quizlet.com",
		ProxyURL:  proxy.URL + "/quizlet-deck?url=",
		QLTS:      "token",
		RateLimit: 100,
	})
	require.NoError(t, err)

	target := "https://quizlet.com/1/flashcards?x=1&y=2"
	assert.Equal(t, proxy.URL+"/quizlet-deck?url="+url.QueryEscape(target), s.ProxyURL(target))

	doc, err := s.Fetch(context.Background(), target, types.RouteProxy)
	require.NoError(t, err)
	assert.Equal(t, "proxied", doc.HTML)
	assert.Equal(t, target, doc.URL)
	assert.Equal(t, target, gotTarget)
}

func TestFetchStatusClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		header  map[string]string
		kind    models.ErrorKind
		captcha bool
	}{
		{"forbidden", http.StatusForbidden, nil, models.KindAccessDenied, false},
		{"captcha bypass header", http.StatusForbidden, map[string]string{"CF-Chl-Bypass": "1"}, models.KindAccessDenied, true},
		{"cf mitigated", http.StatusForbidden, map[string]string{"cf-mitigated": "challenge"}, models.KindAccessDenied, true},
		{"not found", http.StatusNotFound, nil, models.KindNotFound, false},
		{"server error", http.StatusBadGateway, nil, models.KindNetwork, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			s, err := NewWithConfig(ScraperConfig{BaseURL: server.URL, RateLimit: 100})
			require.NoError(t, err)

			_, err = s.Fetch(context.Background(), server.URL, types.RouteDirect)
			require.Error(t, err)
			assert.Equal(t, tt.kind, models.Classify(err))
			assert.Equal(t, tt.captcha, models.IsCaptcha(err))
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	s, err := NewWithConfig(ScraperConfig{BaseURL: addr, RateLimit: 100})
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), addr, types.RouteDirect)
	assert.ErrorIs(t, err, models.ErrNetwork)
}
