package pagesapi

import (
	"fmt"
	"net/url"
	"time"

	"github.com/openmined/pagesync/internal/utils"
)

const (
	DefaultBaseURL    = "https://api.cloudflare.com/client/v4"
	DefaultTimeout    = 30 * time.Second
	DefaultRetryCount = 2
)

// Config is the configuration for the API client
type Config struct {
	BaseURL  string // BaseURL defaults to DefaultBaseURL
	Email    string // Email is used with APIKey
	APIKey   string // APIKey is the global api key
	APIToken string // APIToken is a scoped token, preferred over Email/APIKey

	Timeout    time.Duration // Timeout bounds every request
	RetryCount int           // RetryCount for idempotent requests, negative disables
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrNoBaseURL, c.BaseURL)
	}

	if c.APIToken == "" && (c.Email == "" || c.APIKey == "") {
		return ErrNoCredentials
	}

	if c.Email != "" {
		if err := utils.ValidateEmail(c.Email); err != nil {
			return err
		}
	}

	return nil
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	switch {
	case c.RetryCount == 0:
		c.RetryCount = DefaultRetryCount
	case c.RetryCount < 0:
		c.RetryCount = 0
	}
	return c
}
