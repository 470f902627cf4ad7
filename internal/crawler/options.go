package crawler

import (
	"errors"
	"fmt"
	"net/url"
)

// CrawlConfig holds all configuration for a crawl session.
type CrawlConfig struct {
	// StartURL is the home page listing the type categories.
	StartURL string `mapstructure:"start_url"`

	// Parallelism bounds the number of fetches in flight.
	Parallelism int `mapstructure:"parallelism"`

	// MaxFailures stops the walk once more pages than this have failed.
	// Zero means no limit.
	MaxFailures int `mapstructure:"max_failures"`

	// RecordBuffer sizes the channel between entity tasks and the sink.
	RecordBuffer int `mapstructure:"record_buffer"`

	// EventBuffer sizes the event channel; events are dropped when it is full.
	EventBuffer int `mapstructure:"event_buffer"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		StartURL:     "https://pokemondb.net/",
		Parallelism:  5,
		RecordBuffer: 64,
		EventBuffer:  1000,
	}
}

// Validate reports configuration that would make the walk impossible.
func (c *CrawlConfig) Validate() error {
	if c.StartURL == "" {
		return errors.New("start URL is required")
	}
	u, err := url.Parse(c.StartURL)
	if err != nil {
		return fmt.Errorf("invalid start URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid start URL %q: scheme must be http or https", c.StartURL)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	if c.MaxFailures < 0 {
		return fmt.Errorf("max failures must not be negative, got %d", c.MaxFailures)
	}
	return nil
}
