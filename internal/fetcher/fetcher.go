// Package fetcher provides the page-fetch collaborators used by the crawler.
package fetcher

import (
	"fmt"
	"time"

	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// Fetcher modes.
const (
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

// DefaultAllowedDomain keeps the HTTP fetcher on the crawled site.
const DefaultAllowedDomain = "pokemondb.net"

// Config holds configuration shared by all fetchers.
type Config struct {
	Mode          string        `mapstructure:"mode"`
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	PageTimeout   time.Duration `mapstructure:"page_timeout"`
	Retry         int           `mapstructure:"retry"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxBodySize   int           `mapstructure:"max_body_size"`
	Proxy         string        `mapstructure:"proxy"`
	Headers       []string      `mapstructure:"headers"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	RateLimit     time.Duration `mapstructure:"rate_limit"`
	Parallelism   int           `mapstructure:"parallelism"`
	AllowedDomain string        `mapstructure:"allowed_domain"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeHTTP,
		UserAgent:     "dexscrape/1.0",
		Timeout:       10 * time.Second,
		PageTimeout:   15 * time.Second,
		Retry:         1,
		RetryDelay:    500 * time.Millisecond,
		MaxBodySize:   4 * 1024 * 1024,
		RespectRobots: true,
		Parallelism:   5,
		AllowedDomain: DefaultAllowedDomain,
	}
}

// New builds the fetcher selected by cfg.Mode.
func New(cfg Config) (plugin.Fetcher, error) {
	switch cfg.Mode {
	case "", ModeHTTP:
		return NewHTTPFetcher(cfg)
	case ModeBrowser:
		return NewBrowserFetcher(cfg)
	default:
		return nil, fmt.Errorf("unknown fetcher mode %q", cfg.Mode)
	}
}
