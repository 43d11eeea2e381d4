// Package media resolves the media references found on cards into
// fetchable URLs and stable local filenames, and downloads them once per
// import run.
package media

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/xhad/quizdeck/internal/models"
)

const (
	DefaultBaseURL = "https://quizlet.com"
	DefaultPrefix  = "quizlet"
)

// mobileMarker tags reduced-size assets; removing it requests the original.
const mobileMarker = "_m"

// Resolver turns raw media references into absolute URLs and local names.
type Resolver struct {
	BaseURL string
	Prefix  string
}

// NewResolver returns a Resolver, defaulting empty fields.
func NewResolver(baseURL, prefix string) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Resolver{BaseURL: strings.TrimRight(baseURL, "/"), Prefix: prefix}
}

// Resolve returns the absolute, original-resolution URL for ref.
func (r *Resolver) Resolve(ref string) string {
	u := strings.TrimSpace(ref)
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "//"):
		u = "https:" + u
	case !hasScheme(u):
		u = r.BaseURL + "/" + strings.TrimLeft(u, "/")
	}
	return NormalizeURL(u)
}

// NormalizeURL strips the mobile-size marker. It is the de-duplication key
// for downloads.
func NormalizeURL(u string) string {
	return strings.ReplaceAll(u, mobileMarker, "")
}

func hasScheme(u string) bool {
	i := strings.Index(u, "://")
	if i <= 0 {
		return false
	}
	for _, c := range u[:i] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

// LocalFilename names the local copy of ref. Audio is named after the item
// and side, images after the last path segment of their URL, so the same
// asset always maps to the same file.
func (r *Resolver) LocalFilename(ref models.MediaRef, itemID, side string) string {
	if ref.IsAudio() {
		return fmt.Sprintf("%s-%s-%s.mp3", r.Prefix, itemID, side)
	}
	base := ""
	if parsed, err := url.Parse(r.Resolve(ref.URL)); err == nil {
		base = path.Base(parsed.Path)
	}
	if base == "" || base == "." || base == "/" {
		base = fmt.Sprintf("%s-%s.jpg", itemID, side)
	}
	return r.Prefix + "-" + base
}

// DecodeLegacyPhoto expands the comma-separated photo field of old term
// maps into an image URL.
func DecodeLegacyPhoto(photo string) (string, error) {
	tokens := strings.Split(photo, ",")
	need := map[string]int{"1": 5, "2": 2, "3": 3}
	n, ok := need[tokens[0]]
	if !ok {
		return "", &models.MalformedPayloadError{Detail: fmt.Sprintf("unknown photo type %q", tokens[0])}
	}
	if len(tokens) < n {
		return "", &models.MalformedPayloadError{Detail: fmt.Sprintf("photo %q has %d fields, want %d", photo, len(tokens), n)}
	}

	switch tokens[0] {
	case "1":
		return fmt.Sprintf("https://farm%s.staticflickr.com/%s/%s_%s.jpg", tokens[1], tokens[2], tokens[3], tokens[4]), nil
	case "2":
		return fmt.Sprintf("https://o.quizlet.com/i/%s.jpg", tokens[1]), nil
	default:
		return fmt.Sprintf("https://o.quizlet.com/%s.%s", tokens[1], tokens[2]), nil
	}
}
