package client

import (
	"errors"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "http://localhost:3001"
	DefaultTimeout = 30 * time.Second
)

var ErrMissingBaseURL = errors.New("API_BASE_URL must be an absolute http(s) URL")

// Config holds the settings for talking to the tree API.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// LoadFromEnv reads the client configuration.
//
// Environment variables:
//   - API_BASE_URL: server root (default: http://localhost:3001)
//   - API_TIMEOUT: per-request timeout as a Go duration (default: 30s)
func LoadFromEnv() Config {
	base := strings.TrimSpace(os.Getenv("API_BASE_URL"))
	if base == "" {
		base = DefaultBaseURL
	}

	timeout := DefaultTimeout
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	return Config{
		BaseURL: strings.TrimRight(base, "/"),
		Timeout: timeout,
	}
}

func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrMissingBaseURL
	}
	return nil
}
