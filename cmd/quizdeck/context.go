package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/xhad/quizdeck/pkg/config"
	"github.com/xhad/quizdeck/pkg/importer"
	"github.com/xhad/quizdeck/pkg/media"
	"github.com/xhad/quizdeck/pkg/scraper"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadConfig(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := validate(cfg); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// validate reports every config problem in one error.
func validate(cfg *config.Config) error {
	var errs []error
	for _, e := range cfg.Validate() {
		errs = append(errs, e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c *commandContext) logger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return c.config.NewLogger(w)
}

// pipeline wires the scraper, media store and importer from the config.
// A nil store disables media downloads.
type pipeline struct {
	scraper  *scraper.Scraper
	store    *media.FileStore
	importer *importer.Importer
}

func (c *commandContext) newPipeline(logger *slog.Logger, withMedia bool, onProgress func(importer.Progress)) (*pipeline, error) {
	cfg := c.config

	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:   cfg.Source.BaseURL,
		ProxyURL:  cfg.Source.ProxyURL,
		UserAgent: cfg.Source.UserAgent,
		Cookies:   cfg.Source.Cookies,
		QLTS:      cfg.Source.QLTS,
		RateLimit: cfg.Source.RateLimit,
		Timeout:   cfg.Source.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scraper: %w", err)
	}

	p := &pipeline{scraper: s}
	importerConfig := importer.ImporterConfig{
		Source:   s,
		Resolver: media.NewResolver(cfg.Source.BaseURL, cfg.Media.Prefix),
		Downloader: media.DownloaderConfig{
			Concurrency: cfg.Media.Concurrency,
			RateLimit:   cfg.Media.RateLimit,
			Timeout:     cfg.Media.Timeout,
			UserAgent:   cfg.Source.UserAgent,
		},
		FolderDelay: cfg.Import.FolderDelay,
		Logger:      logger,
		OnProgress:  onProgress,
	}
	if withMedia {
		p.store, err = media.NewFileStore(cfg.Media.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open media directory: %w", err)
		}
		importerConfig.Store = p.store
	}

	p.importer, err = importer.NewWithConfig(importerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize importer: %w", err)
	}
	return p, nil
}
