// Package title derives a deck name from a set page.
package title

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default is used when neither the page nor its URL yields a name.
const Default = "Quizlet Flashcards"

const (
	siteSuffix  = " | Quizlet"
	titlePrefix = "Flashcards "
)

// ExtractTitle returns the cleaned contents of the page's first <title>.
// Pages without a usable title are named after the last segment of
// fallbackURL.
func ExtractTitle(html, fallbackURL string) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		if t := Clean(doc.Find("title").First().Text()); t != "" {
			return t
		}
	}
	return fromURL(fallbackURL)
}

// Clean strips the site decorations and collapses whitespace.
func Clean(raw string) string {
	t := strings.Join(strings.Fields(raw), " ")
	t = strings.TrimSuffix(t, siteSuffix)
	t = strings.TrimPrefix(t, titlePrefix)
	return strings.TrimSpace(t)
}

func fromURL(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	base := strings.TrimSpace(path.Base(strings.TrimRight(p, "/")))
	if base == "" || base == "." || base == "/" {
		return Default
	}
	return base
}
