package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/quizdeck/internal/models"
	"github.com/xhad/quizdeck/pkg/importer"
)

const setPage = `<html><head><title>Flashcards Spanish Basics | Quizlet</title></head><body><script>` +
	`window.Quizlet["setPageData"] = {"studiableDocumentData":{"studiableItems":[` +
	`{"id":1,"cardSides":[{"label":"word","media":[{"type":1,"plainText":"hola"}]},{"label":"definition","media":[{"type":1,"plainText":"hello"}]}]},` +
	`{"id":2,"cardSides":[{"label":"word","media":[{"type":1,"plainText":"adiós"}]},{"label":"definition","media":[{"type":1,"plainText":"goodbye"}]}]}` +
	`]}}; QLoad("Quizlet.setPageData");</script></body></html>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestImportFromHTMLFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "quizdeck.yaml", "log:\n  level: error\n")
	page := writeFile(t, dir, "page.html", setPage)
	out := filepath.Join(dir, "decks")

	stdout, _, err := execute(t, "-c", cfgPath, "import", "https://quizlet.com/1/spanish",
		"--html-file", page, "--no-media", "--out", out, "--stop", "hola")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Spanish Basics: 1 cards")

	data, err := os.ReadFile(filepath.Join(out, "Spanish Basics.txt"))
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "#separator:tab\n"))
	assert.Contains(t, text, "hola\thello")
	assert.NotContains(t, text, "goodbye")
}

func TestImportRejectsBadFormat(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "quizdeck.yaml", "log:\n  level: error\n")
	page := writeFile(t, dir, "page.html", setPage)

	_, _, err := execute(t, "-c", cfgPath, "import", "https://quizlet.com/1/x",
		"--html-file", page, "--no-media", "--format", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")
}

func TestInspectFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "quizdeck.yaml", "log:\n  level: error\n")
	page := writeFile(t, dir, "page.html", setPage)

	stdout, _, err := execute(t, "-c", cfgPath, "inspect", page, "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"variant": "setPageData"`)
	assert.Contains(t, stdout, `"items": 2`)
	assert.Contains(t, stdout, `"title": "Spanish Basics"`)
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "quizdeck.yaml", "source:\n  rate_limit: -1\n")

	_, _, err := execute(t, "-c", cfgPath, "inspect", "page.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRemediation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"captcha", &models.AccessDeniedError{Captcha: true, Status: 403}, "VPN"},
		{"private", &models.AccessDeniedError{}, "sharing settings"},
		{"not found", &models.NotFoundError{URL: "x"}, "set ID"},
		{"status", &models.NetworkError{Detail: "fetch", Status: 502}, "HTTP 502"},
		{"schema", models.ErrSchemaNotRecognized, "--html-file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, remediation(tt.err), tt.want)
		})
	}
	assert.Empty(t, remediation(assert.AnError))
}

func TestProgressView(t *testing.T) {
	var buf bytes.Buffer
	v := newProgressView(&buf)

	v.update(importer.Progress{Deck: "d", State: importer.StateFetchingDirect})
	require.NotNil(t, v.spinner)
	v.update(importer.Progress{Deck: "d", State: importer.StateAccessDenied})
	assert.Nil(t, v.spinner)
	assert.Contains(t, buf.String(), "Access failed for d")

	v.update(importer.Progress{Deck: "d", State: importer.StateDownloading, Total: 2})
	require.NotNil(t, v.bar)
	v.update(importer.Progress{Deck: "d", State: importer.StateDownloading, Done: 2, Total: 2})
	assert.Nil(t, v.bar)
}
