package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Fetcher.HeadTimeout != 5*time.Second {
		t.Errorf("head timeout = %v, want 5s", cfg.Fetcher.HeadTimeout)
	}
	if cfg.Fetcher.MaxRedirects != 5 {
		t.Errorf("max redirects = %d, want 5", cfg.Fetcher.MaxRedirects)
	}
	if cfg.Importer.Concurrency != 5 {
		t.Errorf("importer concurrency = %d, want 5", cfg.Importer.Concurrency)
	}
	if cfg.Importer.BatchSize != 50 {
		t.Errorf("importer batch size = %d, want 50", cfg.Importer.BatchSize)
	}
	if cfg.LLM.DefaultProvider != LLMProviderGemini {
		t.Errorf("default provider = %q, want gemini", cfg.LLM.DefaultProvider)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFilesMerge(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	if err := os.WriteFile(base, []byte("[server]\nport = 9000\nhost = \"0.0.0.0\"\n"), 0644); err != nil {
		t.Fatalf("write base config: %v", err)
	}
	override := filepath.Join(dir, "override.toml")
	if err := os.WriteFile(override, []byte("[server]\nport = 9001\n\n[importer]\nconcurrency = 3\n"), 0644); err != nil {
		t.Fatalf("write override config: %v", err)
	}

	cfg, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}

	// Later file wins, untouched fields fall through
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Importer.Concurrency != 3 {
		t.Errorf("importer concurrency = %d, want 3", cfg.Importer.Concurrency)
	}
	// Defaults survive for sections neither file mentions
	if cfg.Fetcher.Concurrency != 5 {
		t.Errorf("fetcher concurrency = %d, want default 5", cfg.Fetcher.Concurrency)
	}
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	if _, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FURY_SERVER_PORT", "7777")
	t.Setenv("FURY_LOG_LEVEL", "debug")
	t.Setenv("FURY_LLM_DEFAULT_PROVIDER", "claude")
	t.Setenv("FURY_FETCHER_FETCH_TIMEOUT", "30s")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.LLM.DefaultProvider != LLMProviderClaude {
		t.Errorf("provider = %q, want claude", cfg.LLM.DefaultProvider)
	}
	if cfg.Fetcher.FetchTimeout != 30*time.Second {
		t.Errorf("fetch timeout = %v, want 30s", cfg.Fetcher.FetchTimeout)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 9999, "example.org")

	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Server.Host != "example.org" {
		t.Errorf("host = %q, want example.org", cfg.Server.Host)
	}

	// Zero values leave the config untouched
	ApplyFlagOverrides(cfg, 0, "")
	if cfg.Server.Port != 9999 || cfg.Server.Host != "example.org" {
		t.Error("zero flag values must not override config")
	}
}

func TestValidateRejectsBadProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.LLM.DefaultProvider = "openai"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		wantErr  bool
	}{
		{"0 3 * * *", false},
		{"*/15 * * * *", false},
		{"* * * * *", true},   // every minute
		{"*/2 * * * *", true}, // below 5-minute floor
		{"not a schedule", true},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSchedule(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}
}
