package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"webmail/models"
)

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Dir string `toml:"dir"` // directory holding the bbolt file
}

type JWTConfig struct {
	Secret    string `toml:"secret"`
	ExpiryDay int    `toml:"expiry_days"`
}

// Expiry returns the token lifetime.
func (c JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryDay) * 24 * time.Hour
}

type SMTPConfig struct {
	Enabled     bool   `toml:"enabled"`
	Server      string `toml:"server"`
	Port        int    `toml:"port"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	UseSTARTTLS bool   `toml:"use_starttls"` // true for 587, false for 465
}

type UploadConfig struct {
	Dir      string `toml:"dir"`
	MaxSize  int64  `toml:"max_size"`
	MaxFiles int    `toml:"max_files"`
}

type QuotaConfig struct {
	DefaultBytes int64 `toml:"default_bytes"`
}

type RateLimitConfig struct {
	Requests int `toml:"requests"`
	Window   int `toml:"window_seconds"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	JWT       JWTConfig       `toml:"jwt"`
	SMTP      SMTPConfig      `toml:"smtp"`
	Upload    UploadConfig    `toml:"upload"`
	Quota     QuotaConfig     `toml:"quota"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
}

// AllowedUploadTypes is the MIME allowlist for attachments.
var AllowedUploadTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"text/csv",
	"application/zip",
	"application/x-zip-compressed",
}

// UploadTypeAllowed reports whether the MIME type may be attached.
func UploadTypeAllowed(contentType string) bool {
	for _, t := range AllowedUploadTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 3003},
		Database: DatabaseConfig{Dir: "./data"},
		JWT:      JWTConfig{ExpiryDay: 7},
		SMTP: SMTPConfig{
			Port:        587,
			UseSTARTTLS: true,
		},
		Upload: UploadConfig{
			Dir:      "./uploads",
			MaxSize:  10 * 1024 * 1024,
			MaxFiles: 10,
		},
		Quota:     QuotaConfig{DefaultBytes: models.DefaultEmailQuota},
		RateLimit: RateLimitConfig{Requests: 100, Window: 60},
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret must be set")
	}
	if cfg.SMTP.Enabled && cfg.SMTP.Server == "" {
		return nil, fmt.Errorf("smtp.server must be set when smtp is enabled")
	}
	if cfg.RateLimit.Requests < 1 || cfg.RateLimit.Window < 1 {
		return nil, fmt.Errorf("ratelimit.requests and ratelimit.window_seconds must be positive")
	}

	return cfg, nil
}
