// Package config loads the dexscrape configuration from a YAML file, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ramkansal/dexscrape/internal/crawler"
	"github.com/ramkansal/dexscrape/internal/extractor"
	"github.com/ramkansal/dexscrape/internal/fetcher"
	"github.com/ramkansal/dexscrape/internal/logger"
	"github.com/ramkansal/dexscrape/internal/output"
)

// EnvPrefix is prepended to every environment variable, e.g.
// DEXSCRAPE_CRAWL_PARALLELISM.
const EnvPrefix = "DEXSCRAPE"

// Config is the complete application configuration.
type Config struct {
	Crawl     crawler.CrawlConfig `mapstructure:"crawl"`
	Fetcher   fetcher.Config      `mapstructure:"fetcher"`
	Extractor ExtractorConfig     `mapstructure:"extractor"`
	Output    output.Config       `mapstructure:"output"`
	Log       logger.Config       `mapstructure:"log"`
}

// ExtractorConfig holds the page-parsing policies and selector overrides.
type ExtractorConfig struct {
	MissingMoves string              `mapstructure:"missing_moves"`
	BadMoveRow   string              `mapstructure:"bad_move_row"`
	Selectors    extractor.Selectors `mapstructure:"selectors"`
}

// Options converts the configuration into extractor options.
func (c ExtractorConfig) Options() (extractor.Options, error) {
	missing, err := extractor.ParseMissingMovesPolicy(c.MissingMoves)
	if err != nil {
		return extractor.Options{}, err
	}
	bad, err := extractor.ParseBadMoveRowPolicy(c.BadMoveRow)
	if err != nil {
		return extractor.Options{}, err
	}
	return extractor.Options{
		Selectors:    c.Selectors,
		MissingMoves: missing,
		BadMoveRow:   bad,
	}, nil
}

// Load reads configuration with the precedence env > file > defaults.
// An empty path searches for dexscrape.yaml in . and ./config; a missing
// file is only an error when path is given explicitly.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("dexscrape")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	crawl := crawler.DefaultConfig()
	v.SetDefault("crawl.start_url", crawl.StartURL)
	v.SetDefault("crawl.parallelism", crawl.Parallelism)
	v.SetDefault("crawl.max_failures", crawl.MaxFailures)
	v.SetDefault("crawl.record_buffer", crawl.RecordBuffer)
	v.SetDefault("crawl.event_buffer", crawl.EventBuffer)

	f := fetcher.DefaultConfig()
	v.SetDefault("fetcher.mode", f.Mode)
	v.SetDefault("fetcher.user_agent", f.UserAgent)
	v.SetDefault("fetcher.timeout", f.Timeout)
	v.SetDefault("fetcher.page_timeout", f.PageTimeout)
	v.SetDefault("fetcher.retry", f.Retry)
	v.SetDefault("fetcher.retry_delay", f.RetryDelay)
	v.SetDefault("fetcher.max_body_size", f.MaxBodySize)
	v.SetDefault("fetcher.proxy", f.Proxy)
	v.SetDefault("fetcher.headers", []string{})
	v.SetDefault("fetcher.respect_robots", f.RespectRobots)
	v.SetDefault("fetcher.rate_limit", f.RateLimit)
	v.SetDefault("fetcher.parallelism", f.Parallelism)
	v.SetDefault("fetcher.allowed_domain", f.AllowedDomain)

	sel := extractor.DefaultSelectors()
	v.SetDefault("extractor.missing_moves", string(extractor.MissingMovesFail))
	v.SetDefault("extractor.bad_move_row", string(extractor.BadMoveRowSkip))
	v.SetDefault("extractor.selectors.category_link", sel.CategoryLink)
	v.SetDefault("extractor.selectors.entity_card", sel.EntityCard)
	v.SetDefault("extractor.selectors.entity_link", sel.EntityLink)
	v.SetDefault("extractor.selectors.entity_name", sel.EntityName)
	v.SetDefault("extractor.selectors.dex_heading", sel.DexHeading)
	v.SetDefault("extractor.selectors.stats_heading", sel.StatsHeading)
	v.SetDefault("extractor.selectors.moves_heading", sel.MovesHeading)

	out := output.DefaultConfig()
	v.SetDefault("output.jsonl", out.JSONL)
	v.SetDefault("output.sqlite", out.SQLite)
	v.SetDefault("output.text", out.Text)
	v.SetDefault("output.redis.addr", out.Redis.Addr)
	v.SetDefault("output.redis.password", out.Redis.Password)
	v.SetDefault("output.redis.db", out.Redis.DB)
	v.SetDefault("output.redis.prefix", out.Redis.Prefix)

	v.SetDefault("log.level", logger.DefaultLevel)
	v.SetDefault("log.development", false)
	v.SetDefault("log.output_paths", []string{"stderr"})
}

// Validate checks the configuration as a whole.
func (c *Config) Validate() error {
	if err := c.Crawl.Validate(); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	switch c.Fetcher.Mode {
	case "", fetcher.ModeHTTP, fetcher.ModeBrowser:
	default:
		return fmt.Errorf("fetcher: unknown mode %q", c.Fetcher.Mode)
	}
	if c.Fetcher.Retry < 0 {
		return fmt.Errorf("fetcher: retry must not be negative, got %d", c.Fetcher.Retry)
	}
	if _, err := c.Extractor.Options(); err != nil {
		return fmt.Errorf("extractor: %w", err)
	}
	if !c.Output.Enabled() {
		return errors.New("output: at least one sink must be configured")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	return nil
}
