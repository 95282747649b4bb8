// Package config collects the service's environment-driven settings in one
// place instead of scattering os.Getenv calls through the handlers.
package config

import (
	"os"
	"time"
)

type Config struct {
	// Auth
	JWTSecret string

	OIDCIssuerURL    string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURL  string

	// Collaboration backend selection happens in collab.GetService; the
	// values live in the environment so the factory reads them directly.

	// Route cache
	CacheTTL time.Duration
}

// Load reads the configuration from the environment. Callers load .env
// beforehand (godotenv) when present.
func Load() *Config {
	return &Config{
		JWTSecret: os.Getenv("JWT_SECRET"),

		OIDCIssuerURL:    os.Getenv("OIDC_ISSUER_URL"),
		OIDCClientID:     os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),

		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubRedirectURL:  os.Getenv("GITHUB_REDIRECT_URL"),

		CacheTTL: durationEnv("CACHE_TTL", time.Minute),
	}
}

// OIDCConfigured reports whether the OIDC provider can be initialized.
func (c *Config) OIDCConfigured() bool {
	return c.OIDCIssuerURL != "" && c.OIDCClientID != ""
}

// GitHubConfigured reports whether the GitHub OAuth provider can be
// initialized.
func (c *Config) GitHubConfigured() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
