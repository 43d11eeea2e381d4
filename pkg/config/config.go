package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Source struct {
		BaseURL   string        `yaml:"base_url"`
		ProxyURL  string        `yaml:"proxy_url"`
		UserAgent string        `yaml:"user_agent"`
		Cookies   string        `yaml:"cookies"`
		QLTS      string        `yaml:"qlts"`
		RateLimit float64       `yaml:"rate_limit"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"source"`

	Media struct {
		Dir         string        `yaml:"dir"`
		Prefix      string        `yaml:"prefix"`
		Concurrency int           `yaml:"concurrency"`
		RateLimit   float64       `yaml:"rate_limit"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"media"`

	Import struct {
		DownloadAudio bool          `yaml:"download_audio"`
		RichText      bool          `yaml:"rich_text"`
		AddReverse    bool          `yaml:"add_reverse"`
		ImageOnBack   bool          `yaml:"image_on_back"`
		FolderDelay   time.Duration `yaml:"folder_delay"`
	} `yaml:"import"`

	Export struct {
		Dir    string `yaml:"dir"`
		Format string `yaml:"format"`
	} `yaml:"export"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"quizdeck.yaml",
			"quizdeck.yml",
			filepath.Join(os.Getenv("HOME"), ".config/quizdeck/config.yaml"),
			"/etc/quizdeck/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Source.BaseURL == "" {
		config.Source.BaseURL = "https://quizlet.com"
	}
	if config.Source.ProxyURL == "" {
		config.Source.ProxyURL = "https://quizlet-proxy.proto.click/quizlet-deck?url="
	}
	if config.Source.RateLimit == 0 {
		config.Source.RateLimit = 2.0
	}
	if config.Source.Timeout == 0 {
		config.Source.Timeout = 30 * time.Second
	}

	if config.Media.Dir == "" {
		config.Media.Dir = "media"
	}
	if config.Media.Prefix == "" {
		config.Media.Prefix = "quizlet"
	}
	if config.Media.Concurrency == 0 {
		config.Media.Concurrency = 4
	}
	if config.Media.RateLimit == 0 {
		config.Media.RateLimit = 5.0
	}
	if config.Media.Timeout == 0 {
		config.Media.Timeout = 15 * time.Second
	}

	if config.Import.FolderDelay == 0 {
		config.Import.FolderDelay = 1500 * time.Millisecond
	}

	if config.Export.Dir == "" {
		config.Export.Dir = "."
	}
	if config.Export.Format == "" {
		config.Export.Format = "tsv"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if cookies := os.Getenv("QUIZLET_COOKIES"); cookies != "" {
		config.Source.Cookies = cookies
	}
	if qlts := os.Getenv("QUIZLET_QLTS"); qlts != "" {
		config.Source.QLTS = qlts
	}
	if proxyURL := os.Getenv("QUIZDECK_PROXY_URL"); proxyURL != "" {
		config.Source.ProxyURL = proxyURL
	}
	if mediaDir := os.Getenv("QUIZDECK_MEDIA_DIR"); mediaDir != "" {
		config.Media.Dir = mediaDir
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}

// NewLogger builds the structured logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Log.Level)}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
