package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host        string
	Port        int
	RateLimits  RateLimits
	AllowOrigin []string
	// LoginLocation is where the dashboard sends the operator after a logout
	LoginLocation   string
	EventsKeepAlive time.Duration
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 {
		return fmt.Errorf("the server port (%d) needs to be greater than 0", c.Port)
	}
	if c.LoginLocation == "" {
		return fmt.Errorf("the login location cannot be empty")
	}
	if c.EventsKeepAlive <= 0 {
		return fmt.Errorf("the events keep alive interval (%s) needs to be greater than 0", c.EventsKeepAlive)
	}
	if c.RateLimits.Enabled && (c.RateLimits.Rate <= 0 || c.RateLimits.Burst <= 0) {
		return fmt.Errorf("rate limits need a positive rate and burst when enabled")
	}
	return nil
}

type MessagesConfig struct {
	// CatalogPath points to a yaml file that overrides the built-in toast messages.
	CatalogPath string
}

type SentryConfig struct {
	Enabled     bool
	Dsn         RedactedString
	Environment string
	SampleRate  float64
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type MonitoringConfig struct {
	Sentry     SentryConfig
	Prometheus PrometheusConfig
}

type RateLimits struct {
	Enabled bool
	Rate    float64
	Burst   int
}
