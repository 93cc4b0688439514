package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 8080

[jwt]
secret = "s3cret"
expiry_days = 1

[ratelimit]
requests = 5
window_seconds = 10
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want default", cfg.Server.Host)
	}
	if cfg.Upload.MaxFiles != 10 {
		t.Errorf("MaxFiles = %d, want default 10", cfg.Upload.MaxFiles)
	}
	if cfg.JWT.Expiry() != 24*time.Hour {
		t.Errorf("Expiry = %v, want 24h", cfg.JWT.Expiry())
	}
	if cfg.RateLimit.Requests != 5 {
		t.Errorf("RateLimit.Requests = %d, want 5", cfg.RateLimit.Requests)
	}
}

func TestLoadConfigRejectsMissingSecret(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 8080
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("config without jwt.secret accepted")
	}
}

func TestLoadConfigRejectsSMTPWithoutServer(t *testing.T) {
	path := writeConfig(t, `
[jwt]
secret = "s3cret"

[smtp]
enabled = true
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("enabled smtp without server accepted")
	}
}

func TestLoadConfigRejectsZeroRateLimit(t *testing.T) {
	path := writeConfig(t, `
[jwt]
secret = "s3cret"

[ratelimit]
requests = 0
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("zero rate limit budget accepted")
	}
}

func TestUploadTypeAllowed(t *testing.T) {
	if !UploadTypeAllowed("application/pdf") {
		t.Error("pdf rejected")
	}
	if UploadTypeAllowed("application/x-msdownload") {
		t.Error("executable type accepted")
	}
}
