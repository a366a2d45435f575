package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// APIConfig describes the upstream shop API the gateway talks to.
type APIConfig struct {
	BaseURL        *url.URL
	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	AuthPathPrefix string
	LoginPath      string
	OTPPath        string
	RefreshPath    string
	LogoutPath     string
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == nil {
		return fmt.Errorf("the api config is missing the base url of the shop API")
	}
	if c.BaseURL.Scheme != "http" && c.BaseURL.Scheme != "https" {
		return fmt.Errorf("the api base url must use http or https, got %q", c.BaseURL.Scheme)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout (%s) needs to be greater than 0", c.RequestTimeout)
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("refresh timeout (%s) needs to be greater than 0", c.RefreshTimeout)
	}
	if c.AuthPathPrefix == "" {
		return fmt.Errorf("the auth path prefix cannot be empty")
	}
	for _, p := range []string{c.LoginPath, c.OTPPath, c.RefreshPath, c.LogoutPath} {
		if !strings.HasPrefix(p, c.AuthPathPrefix) {
			return fmt.Errorf("the auth endpoint %q is not under the auth path prefix %q", p, c.AuthPathPrefix)
		}
	}
	return nil
}
