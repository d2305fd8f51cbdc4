// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sitefoundry/internal/models"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// BaseHost is the host client sites hang off as subdomains
	// ("sites.example.com" serves "padaria.sites.example.com").
	BaseHost string
	// SecureCookies marks session and CSRF cookies HTTPS-only.
	SecureCookies bool

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache, sessions and blobs)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Single agency operator
	AdminEmail      string
	AdminPassword   string
	Admin2FA        bool
	AdminTOTPSecret string // optional; enrolment stores one in site_settings otherwise

	// Trial defaults applied to newly created clients
	TrialValue int
	TrialUnit  models.TrialUnit

	// Runtime tuning
	QueueDelay   time.Duration
	BlobTTL      time.Duration
	ViewIdle     time.Duration
	EditorIdle   time.Duration
	PageCacheTTL time.Duration

	// AI provider settings
	AIProvider string // active provider: "openai", "gemini", "claude", "mistral"

	OpenAIKey      string
	OpenAIModel    string
	OpenAIModelPro string
	OpenAIBaseURL  string

	GeminiKey      string
	GeminiModel    string
	GeminiModelPro string
	GeminiBaseURL  string

	ClaudeKey      string
	ClaudeModel    string
	ClaudeModelPro string
	ClaudeBaseURL  string

	MistralKey      string
	MistralModel    string
	MistralModelPro string
	MistralBaseURL  string

	// S3-compatible object storage for image overrides (optional)
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	// ChromePath points chromedp at a browser binary; empty lets it search.
	ChromePath string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode or a value cannot be parsed.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		BaseHost: strings.ToLower(envOrDefault("SITE_BASE_HOST", "localhost")),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "sitefoundry"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "sitefoundry"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		AdminEmail:      strings.ToLower(envOrDefault("ADMIN_EMAIL", "admin@localhost")),
		AdminPassword:   envOrDefault("ADMIN_PASSWORD", "changeme"),
		AdminTOTPSecret: os.Getenv("ADMIN_TOTP_SECRET"),

		AIProvider: envOrDefault("AI_PROVIDER", "gemini"),

		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIModelPro: envOrDefault("OPENAI_MODEL_PRO", "gpt-4o"),
		OpenAIBaseURL:  envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiModelPro: envOrDefault("GEMINI_MODEL_PRO", "gemini-2.5-pro"),
		GeminiBaseURL:  envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),

		ClaudeKey:      os.Getenv("CLAUDE_API_KEY"),
		ClaudeModel:    envOrDefault("CLAUDE_MODEL", "claude-sonnet-4-5"),
		ClaudeModelPro: os.Getenv("CLAUDE_MODEL_PRO"),
		ClaudeBaseURL:  envOrDefault("CLAUDE_BASE_URL", "https://api.anthropic.com"),

		MistralKey:      os.Getenv("MISTRAL_API_KEY"),
		MistralModel:    envOrDefault("MISTRAL_MODEL", "mistral-large-latest"),
		MistralModelPro: os.Getenv("MISTRAL_MODEL_PRO"),
		MistralBaseURL:  envOrDefault("MISTRAL_BASE_URL", "https://api.mistral.ai"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "fsn1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "sitefoundry-media"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		ChromePath: os.Getenv("CHROME_PATH"),
	}

	var err error
	if cfg.Admin2FA, err = envBool("ADMIN_2FA", true); err != nil {
		return nil, err
	}
	if cfg.SecureCookies, err = envBool("COOKIE_SECURE", cfg.Env == "production"); err != nil {
		return nil, err
	}

	if cfg.TrialValue, err = strconv.Atoi(envOrDefault("TRIAL_DEFAULT_VALUE", "7")); err != nil || cfg.TrialValue < 0 {
		return nil, fmt.Errorf("TRIAL_DEFAULT_VALUE must be a non-negative integer")
	}
	if cfg.TrialUnit, err = models.ParseTrialUnit(envOrDefault("TRIAL_DEFAULT_UNIT", string(models.TrialDays))); err != nil {
		return nil, fmt.Errorf("TRIAL_DEFAULT_UNIT: %w", err)
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"QUEUE_DELAY", "1s", &cfg.QueueDelay},
		{"BLOB_TTL", "30m", &cfg.BlobTTL},
		{"VIEW_IDLE", "2h", &cfg.ViewIdle},
		{"EDITOR_IDLE", "2h", &cfg.EditorIdle},
		{"PAGE_CACHE_TTL", "10m", &cfg.PageCacheTTL},
	}
	for _, d := range durations {
		if *d.dst, err = envDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.AdminPassword == "changeme" {
			return nil, fmt.Errorf("ADMIN_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// Trial returns the configured default trial. Site settings override it at
// runtime.
func (c *Config) Trial() models.TrialSettings {
	return models.TrialSettings{Value: c.TrialValue, Unit: c.TrialUnit}
}

// HasS3 reports whether object storage credentials are present.
func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != ""
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func envDuration(key, fallback string) (time.Duration, error) {
	v := envOrDefault(key, fallback)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like %q, got %q", key, fallback, v)
	}
	return d, nil
}
