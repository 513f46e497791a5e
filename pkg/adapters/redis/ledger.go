package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/shastarun/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the ledger and the locker.
const DefaultPrefix = "shastarun:"

// Ledger implements ports.RunLedger using Redis.
type Ledger struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Ledger)

// WithTTL sets the expiration for run records.
func WithTTL(ttl time.Duration) Option {
	return func(l *Ledger) {
		l.ttl = ttl
	}
}

// WithPrefix sets the key prefix for run records.
func WithPrefix(prefix string) Option {
	return func(l *Ledger) {
		l.prefix = prefix
	}
}

// New creates a new Redis ledger with options.
func New(address, password string, db int, opts ...Option) *Ledger {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis ledger from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Ledger {
	l := &Ledger{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Client exposes the underlying client so a Locker can share the connection.
func (l *Ledger) Client() *backend.Client {
	return l.client
}

// Prefix returns the key prefix in use.
func (l *Ledger) Prefix() string {
	return l.prefix
}

func (l *Ledger) key(runID string) string {
	return l.prefix + "run:" + runID
}

func (l *Ledger) indexKey() string {
	return l.prefix + "runs"
}

// Save persists the record to Redis.
func (l *Ledger) Save(ctx context.Context, rec *domain.RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	pipe := l.client.Pipeline()
	pipe.Set(ctx, l.key(rec.ID), data, l.ttl)

	// Score = expiry, so List can prune the index lazily.
	score := float64(time.Now().Add(l.ttl).Unix())
	if l.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, l.indexKey(), backend.Z{
		Score:  score,
		Member: rec.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the record from Redis.
func (l *Ledger) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	val, err := l.client.Get(ctx, l.key(runID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var rec domain.RunRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &rec, nil
}

// Delete removes the record and its index entry.
func (l *Ledger) Delete(ctx context.Context, runID string) error {
	pipe := l.client.Pipeline()
	pipe.Del(ctx, l.key(runID))
	pipe.ZRem(ctx, l.indexKey(), runID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns the IDs of records that have not expired.
func (l *Ledger) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := l.client.ZRemRangeByScore(ctx, l.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired runs: %w", err)
	}

	runs, err := l.client.ZRange(ctx, l.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close closes the redis client.
func (l *Ledger) Close() error {
	return l.client.Close()
}
