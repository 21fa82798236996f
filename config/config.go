package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL            string
	SearchPath         string
	Query              string
	Parallelism        int
	Delay              time.Duration
	Timeout            time.Duration
	OutputFile         string
	OutputFormat       string // text, csv, json, or dual
	UserAgent          string
	Locale             string
	Verbose            bool
	RespectRobotsTxt   bool
	MetricsAddr        string
	PipelineBufferSize int
	DiscardLogSize     int
}

// DefaultConfig returns conservative defaults for the shoe catalog target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "https://obuv-tut2000.ru",
		SearchPath:         "/magazin/search",
		Parallelism:        1,
		Delay:              3 * time.Second,
		Timeout:            15 * time.Second,
		OutputFile:         "sorted_products.txt",
		OutputFormat:       "text",
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Locale:             "ru",
		Verbose:            false,
		RespectRobotsTxt:   false,
		PipelineBufferSize: 256,
		DiscardLogSize:     128,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if strings.HasSuffix(c.BaseURL, "/") {
		return fmt.Errorf("base URL must not end with a slash")
	}

	if !strings.HasPrefix(c.SearchPath, "/") {
		return fmt.Errorf("search path must start with a slash")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "text", "csv", "json", "dual":
	default:
		return fmt.Errorf("output format must be text, csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Locale == "" {
		return fmt.Errorf("locale cannot be empty")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.DiscardLogSize <= 0 {
		return fmt.Errorf("discard log size must be positive")
	}

	return nil
}
