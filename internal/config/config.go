// Package config provides configuration management for the coach CLI.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

const appName = "coach"

// Defaults mirror the web client's build-time configuration.
const (
	DefaultOrigin          = "http://localhost:8080"
	DefaultBaseURL         = "/api"
	DefaultTimeoutMS       = 10000
	DefaultAppName         = "Coach AI"
	DefaultAppVersion      = "1.0.0"
	DefaultTokenKey        = "token"
	DefaultRefreshTokenKey = "refreshToken"
)

// Config is the top-level configuration structure.
type Config struct {
	API     APIConfig  `json:"api"`
	App     AppConfig  `json:"app"`
	Auth    AuthConfig `json:"auth"`
	Options *Options   `json:"options,omitempty"`
}

// APIConfig describes how to reach the backend.
//
// BaseURL may be absolute ("https://coach.example.com/api") or a path
// ("/api"); a path is resolved against Origin the way a browser resolves it
// against the page origin.
type APIConfig struct {
	Origin    string `json:"origin,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

// AppConfig holds application identity.
type AppConfig struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// AuthConfig names the persisted slots holding credentials.
type AuthConfig struct {
	TokenKey        string `json:"token_key,omitempty"`
	RefreshTokenKey string `json:"refresh_token_key,omitempty"`
}

// Options holds optional configuration settings.
type Options struct {
	DataDir string `json:"data_directory,omitempty"`
	Debug   bool   `json:"debug,omitempty"`
}

// NewConfig creates a Config populated with defaults. Loading layers files
// and environment over it, so an explicit timeout_ms of 0 survives.
func NewConfig() *Config {
	cfg := &Config{
		API:     APIConfig{TimeoutMS: DefaultTimeoutMS},
		Options: &Options{},
	}
	applyDefaults(cfg)
	return cfg
}

// Endpoint returns the absolute API base URL without a trailing slash.
func (a APIConfig) Endpoint() string {
	base := strings.TrimRight(a.BaseURL, "/")
	if isAbsolute(base) {
		return base
	}
	origin := strings.TrimRight(a.Origin, "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return origin + base
}

// Timeout returns the request timeout. Zero disables it.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutMS) * time.Millisecond
}

// Validate checks that the configuration can produce a usable client.
func (c *Config) Validate() error {
	if base := strings.TrimSpace(c.API.BaseURL); strings.Contains(base, "://") && !isAbsolute(base) {
		return fmt.Errorf("api base_url %q: only http and https URLs are supported", base)
	}
	endpoint := c.API.Endpoint()
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("api endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api endpoint %q: origin must be an http(s) URL", endpoint)
	}
	if c.API.TimeoutMS < 0 {
		return fmt.Errorf("api timeout_ms must not be negative, got %d", c.API.TimeoutMS)
	}
	if c.Auth.TokenKey == c.Auth.RefreshTokenKey {
		return fmt.Errorf("auth token_key and refresh_token_key must differ (both %q)", c.Auth.TokenKey)
	}
	return nil
}

// DataDir returns the data directory path from configuration.
func (c *Config) DataDir() string {
	if c.Options != nil && c.Options.DataDir != "" {
		return c.Options.DataDir
	}
	return filepath.Join(xdg.DataHome, appName)
}

// DebugLogPath returns where --debug writes its log.
func (c *Config) DebugLogPath() string {
	return filepath.Join(c.DataDir(), "debug.log")
}

func isAbsolute(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

func applyDefaults(cfg *Config) {
	if cfg.Options == nil {
		cfg.Options = &Options{}
	}
	if cfg.API.Origin == "" {
		cfg.API.Origin = DefaultOrigin
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	if cfg.App.Name == "" {
		cfg.App.Name = DefaultAppName
	}
	if cfg.App.Version == "" {
		cfg.App.Version = DefaultAppVersion
	}
	if cfg.Auth.TokenKey == "" {
		cfg.Auth.TokenKey = DefaultTokenKey
	}
	if cfg.Auth.RefreshTokenKey == "" {
		cfg.Auth.RefreshTokenKey = DefaultRefreshTokenKey
	}
}
