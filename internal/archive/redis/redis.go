// Package redis provides a Redis-backed snapshot archive.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gezibash/hookmeta/internal/archive"
)

const (
	KeyAddr         = "addr"
	KeyPassword     = "password"
	KeyDB           = "db"
	KeyMaxRetries   = "max_retries"
	KeyDialTimeout  = "dial_timeout"
	KeyReadTimeout  = "read_timeout"
	KeyWriteTimeout = "write_timeout"
	KeyPoolSize     = "pool_size"
	KeyKeyPrefix    = "key_prefix"
)

func init() {
	archive.Register("redis", NewFactory, Defaults)
}

// Defaults returns the default options for the Redis backend.
func Defaults() archive.Options {
	return archive.Options{
		KeyAddr:         "localhost:6379",
		KeyDB:           "0",
		KeyMaxRetries:   "3",
		KeyDialTimeout:  "5s",
		KeyReadTimeout:  "3s",
		KeyWriteTimeout: "3s",
		KeyPoolSize:     "0",
		KeyKeyPrefix:    "hookmeta:",
	}
}

// NewFactory connects to Redis and pings it before returning.
func NewFactory(ctx context.Context, opts archive.Options) (archive.Backend, error) {
	r := opts.Read("redis")
	addr := r.Required(KeyAddr)
	db := r.Int(KeyDB, 0)
	maxRetries := r.Int(KeyMaxRetries, 3)
	dialTimeout := r.Duration(KeyDialTimeout, 5*time.Second)
	readTimeout := r.Duration(KeyReadTimeout, 3*time.Second)
	writeTimeout := r.Duration(KeyWriteTimeout, 3*time.Second)
	poolSize := r.Int(KeyPoolSize, 0)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if db < 0 {
		return nil, &archive.OptionError{Backend: "redis", Key: KeyDB, Value: opts[KeyDB], Reason: "must be non-negative"}
	}

	ropts := &redis.Options{
		Addr:         addr,
		Password:     r.String(KeyPassword, ""),
		DB:           db,
		MaxRetries:   maxRetries,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	if poolSize > 0 {
		ropts.PoolSize = poolSize
	}
	client := redis.NewClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}

	slog.Debug("redis archive opened", "addr", addr, "db", db)
	return New(client, r.String(KeyKeyPrefix, "hookmeta:")), nil
}

// Backend is a Redis implementation of archive.Backend. Each record is a
// string key; a sorted set scored by build time orders them.
type Backend struct {
	client *redis.Client
	prefix string
	closed atomic.Bool
}

// New wraps a connected client. Every key it writes starts with prefix.
func New(client *redis.Client, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix}
}

func (b *Backend) recordKey(id string) string { return b.prefix + "snapshot:" + id }
func (b *Backend) byTimeKey() string          { return b.prefix + "snapshots:by_time" }

// Put stores r and indexes it by build time in one transaction.
func (b *Backend) Put(ctx context.Context, r *archive.Record) error {
	if b.closed.Load() {
		return archive.ErrClosed
	}
	if err := r.Validate(); err != nil {
		return err
	}
	data, err := r.Marshal()
	if err != nil {
		return err
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.recordKey(r.ID), data, 0)
	pipe.ZAdd(ctx, b.byTimeKey(), redis.Z{Score: float64(r.BuiltAt.UnixNano()), Member: r.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// Get returns the record of a snapshot ID.
func (b *Backend) Get(ctx context.Context, id string) (*archive.Record, error) {
	if b.closed.Load() {
		return nil, archive.ErrClosed
	}

	data, err := b.client.Get(ctx, b.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return archive.Unmarshal(data)
}

// List returns up to limit records, newest first.
func (b *Backend) List(ctx context.Context, limit int) ([]*archive.Record, error) {
	if b.closed.Load() {
		return nil, archive.ErrClosed
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := b.client.ZRevRange(ctx, b.byTimeKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = b.recordKey(id)
	}
	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}

	records := make([]*archive.Record, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			slog.Warn("redis archive index points at a missing record", "id", ids[i])
			continue
		}
		rec, err := archive.Unmarshal([]byte(s))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the client.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.client.Close()
}
