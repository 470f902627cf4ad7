package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// DefaultRedisPrefix namespaces every key the Redis sink writes.
const DefaultRedisPrefix = "dex"

// connectionTimeout bounds the initial ping.
const connectionTimeout = 5 * time.Second

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisWriter stores each record as JSON under <prefix>:entity:<number>
// and indexes it in the <prefix>:entities sorted set. A later record with
// the same number replaces the earlier one.
type RedisWriter struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

// NewRedisWriter writes through an existing client. The caller keeps
// ownership of the client.
func NewRedisWriter(client redis.UniversalClient, prefix string) (*RedisWriter, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisWriter{client: client, prefix: prefix}, nil
}

// OpenRedis connects to the configured server and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisWriter, error) {
	if cfg.Addr == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	w, err := NewRedisWriter(client, cfg.Prefix)
	if err != nil {
		client.Close()
		return nil, err
	}
	w.owned = true
	return w, nil
}

func (w *RedisWriter) Name() string { return "redis" }

// EntityKey is the key a record with the given number is stored under.
func (w *RedisWriter) EntityKey(number int) string {
	return fmt.Sprintf("%s:entity:%d", w.prefix, number)
}

// IndexKey is the sorted set of stored entity numbers.
func (w *RedisWriter) IndexKey() string {
	return w.prefix + ":entities"
}

// RunKey is the hash holding a run summary.
func (w *RedisWriter) RunKey(runID string) string {
	return w.prefix + ":run:" + runID
}

func (w *RedisWriter) WriteRecord(ctx context.Context, rec *plugin.EntityRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal entity %d: %w", rec.Number, err)
	}

	_, err = w.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, w.EntityKey(rec.Number), data, 0)
		pipe.ZAdd(ctx, w.IndexKey(), redis.Z{
			Score:  float64(rec.Number),
			Member: strconv.Itoa(rec.Number),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store entity %d: %w", rec.Number, err)
	}
	return nil
}

// Finalize stores the run summary as a hash.
func (w *RedisWriter) Finalize(ctx context.Context, summary *plugin.CrawlSummary) error {
	err := w.client.HSet(ctx, w.RunKey(summary.RunID), map[string]any{
		"start_url":     summary.StartURL,
		"started_at":    summary.StartedAt.Format(time.RFC3339),
		"finished_at":   summary.FinishedAt.Format(time.RFC3339),
		"pages_fetched": summary.Stats.PagesFetched,
		"pages_failed":  summary.Stats.PagesFailed,
		"records":       summary.Stats.RecordsEmitted,
		"cancelled":     strconv.FormatBool(summary.Cancelled),
		"cancel_cause":  summary.CancelCause,
	}).Err()
	if err != nil {
		return fmt.Errorf("store run summary: %w", err)
	}
	return nil
}

// Close releases the client if the writer created it.
func (w *RedisWriter) Close() error {
	if !w.owned {
		return nil
	}
	return w.client.Close()
}
