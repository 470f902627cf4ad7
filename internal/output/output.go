// Package output holds the sinks that receive extracted entity records.
package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// Writer is an OutputWriter that owns a resource.
type Writer interface {
	plugin.OutputWriter
	Close() error
}

// Config selects the sinks for a run. Empty paths disable a sink.
type Config struct {
	// JSONL is a file path, or "-" for stdout.
	JSONL  string      `mapstructure:"jsonl"`
	SQLite string      `mapstructure:"sqlite"`
	Text   string      `mapstructure:"text"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// DefaultConfig writes JSON lines to stdout.
func DefaultConfig() Config {
	return Config{
		JSONL: "-",
		Redis: RedisConfig{Prefix: DefaultRedisPrefix},
	}
}

// Enabled reports whether at least one sink is configured.
func (c Config) Enabled() bool {
	return c.JSONL != "" || c.SQLite != "" || c.Text != "" || c.Redis.Addr != ""
}

// Open builds every configured sink and combines them. Sinks opened before
// a failure are closed again.
func Open(ctx context.Context, cfg Config) (*MultiWriter, error) {
	if !cfg.Enabled() {
		return nil, errors.New("no output configured")
	}

	var writers []Writer
	fail := func(err error) (*MultiWriter, error) {
		for _, w := range writers {
			_ = w.Close()
		}
		return nil, err
	}

	if cfg.JSONL != "" {
		w, err := OpenJSONL(cfg.JSONL)
		if err != nil {
			return fail(fmt.Errorf("open jsonl output: %w", err))
		}
		writers = append(writers, w)
	}
	if cfg.SQLite != "" {
		w, err := OpenSQLite(ctx, cfg.SQLite)
		if err != nil {
			return fail(fmt.Errorf("open sqlite output: %w", err))
		}
		writers = append(writers, w)
	}
	if cfg.Redis.Addr != "" {
		w, err := OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return fail(fmt.Errorf("open redis output: %w", err))
		}
		writers = append(writers, w)
	}
	if cfg.Text != "" {
		writers = append(writers, NewTextWriter(cfg.Text))
	}

	return NewMultiWriter(writers...), nil
}
