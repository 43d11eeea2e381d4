package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var exportFormats = map[string]bool{"tsv": true, "txt": true, "anki": true, "json": true, "md": true, "markdown": true}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Source config
	if u, err := url.Parse(c.Source.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "source.base_url",
			Message: "base_url must be an absolute URL",
		})
	}

	if !strings.HasPrefix(c.Source.ProxyURL, "http://") && !strings.HasPrefix(c.Source.ProxyURL, "https://") {
		errors = append(errors, ValidationError{
			Field:   "source.proxy_url",
			Message: "proxy_url must be an http(s) URL prefix",
		})
	}

	if c.Source.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "source.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Source.Cookies != "" && c.Source.QLTS != "" {
		errors = append(errors, ValidationError{
			Field:   "source.cookies",
			Message: "set either cookies or qlts, not both",
		})
	}

	// Validate Media config
	if c.Media.Concurrency < 1 || c.Media.Concurrency > 32 {
		errors = append(errors, ValidationError{
			Field:   "media.concurrency",
			Message: "concurrency must be between 1 and 32",
		})
	}

	if c.Media.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "media.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if strings.ContainsAny(c.Media.Prefix, `/\`) {
		errors = append(errors, ValidationError{
			Field:   "media.prefix",
			Message: "prefix must not contain path separators",
		})
	}

	// Validate Import config
	if c.Import.FolderDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "import.folder_delay",
			Message: "folder_delay must not be negative",
		})
	}

	// Validate Export config
	if !exportFormats[strings.ToLower(c.Export.Format)] {
		errors = append(errors, ValidationError{
			Field:   "export.format",
			Message: fmt.Sprintf("unsupported export format: %s", c.Export.Format),
		})
	}

	// Validate Log config
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown log level: %s", c.Log.Level),
		})
	}

	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Message: "format must be text or json",
		})
	}

	// Validate Server config
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be a number between 1 and 65535",
		})
	}

	return errors
}
