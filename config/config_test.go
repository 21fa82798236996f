package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative parallelism",
			mutate: func(cfg *Config) {
				cfg.Parallelism = -1
			},
			wantErr: "parallelism",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "trailing slash",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "https://example.test/"
			},
			wantErr: "slash",
		},
		{
			name: "relative search path",
			mutate: func(cfg *Config) {
				cfg.SearchPath = "magazin/search"
			},
			wantErr: "search path",
		},
		{
			name: "negative delay",
			mutate: func(cfg *Config) {
				cfg.Delay = -1 * time.Second
			},
			wantErr: "delay",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "empty locale",
			mutate: func(cfg *Config) {
				cfg.Locale = ""
			},
			wantErr: "locale",
		},
		{
			name: "zero discard log",
			mutate: func(cfg *Config) {
				cfg.DiscardLogSize = 0
			},
			wantErr: "discard log",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Parallelism != 1 {
		t.Fatalf("default parallelism = %d, want sequential", cfg.Parallelism)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", " 4 ")
	t.Setenv("SCRAPER_TEST_BAD", "four")
	t.Setenv("SCRAPER_TEST_DELAY", "1500ms")
	t.Setenv("SCRAPER_TEST_EMPTY", "   ")

	if v, ok, err := EnvInt("SCRAPER_TEST_INT"); err != nil || !ok || v != 4 {
		t.Fatalf("EnvInt = %d, %v, %v", v, ok, err)
	}
	if _, _, err := EnvInt("SCRAPER_TEST_BAD"); err == nil {
		t.Fatalf("expected parse error")
	}
	if v, ok, err := EnvDuration("SCRAPER_TEST_DELAY"); err != nil || !ok || v != 1500*time.Millisecond {
		t.Fatalf("EnvDuration = %v, %v, %v", v, ok, err)
	}
	if _, ok := EnvString("SCRAPER_TEST_EMPTY"); ok {
		t.Fatalf("blank variable should be treated as unset")
	}
	if _, ok, err := EnvInt("SCRAPER_TEST_MISSING"); ok || err != nil {
		t.Fatalf("missing variable should be ok=false, err=nil")
	}
}
