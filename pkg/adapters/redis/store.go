package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "arbor:result:"

// Store implements ports.EntryStore using Redis.
// Entries expire natively; a sorted set scored by expiry indexes them for
// List and ClearExpired.
type Store struct {
	client *backend.Client
	prefix string
	clock  func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix for entries.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock overrides the time source used to prune the index.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client, e.g. to build a Locker on it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// neverExpires is the index score of entries without an expiry.
var neverExpires = float64(time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC).UnixMilli())

// score orders entries by expiry in milliseconds.
func score(expiresAt time.Time) float64 {
	if expiresAt.IsZero() {
		return neverExpires
	}
	return float64(expiresAt.UnixMilli())
}

// Put writes the entry and its index record in one MULTI transaction.
func (s *Store) Put(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	if !expiresAt.IsZero() && !expiresAt.After(s.clock()) {
		// Already expired: nothing a reader could see.
		return s.Delete(ctx, key)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		// 1. Save payload, expiring natively when requested
		pipe.Set(ctx, s.key(key), data, 0)
		if !expiresAt.IsZero() {
			pipe.PExpireAt(ctx, s.key(key), expiresAt)
		}

		// 2. Index by expiry
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score(expiresAt), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves the entry from Redis.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// Delete removes the entry and its index record.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(key))
		pipe.ZRem(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns the keys of unexpired entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	from := strconv.FormatInt(s.clock().UnixMilli(), 10)
	keys, err := s.client.ZRangeByScore(ctx, s.indexKey(), &backend.ZRangeBy{Min: "(" + from, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return keys, nil
}

// clearExpired scans the index and deletes the expired entries in one
// atomic step, so a Put landing between the scan and the delete is never lost.
// KEYS[1] is the index, ARGV[1] the cutoff score and ARGV[2] the key prefix.
var clearExpired = backend.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, member in ipairs(expired) do
  redis.call('DEL', ARGV[2] .. member)
  redis.call('ZREM', KEYS[1], member)
end
return #expired
`)

// ClearExpired removes entries whose expiry is at or before now.
func (s *Store) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	until := strconv.FormatInt(now.UnixMilli(), 10)
	n, err := clearExpired.Run(ctx, s.client, []string{s.indexKey()}, until, s.prefix).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired entries: %w", err)
	}
	return n, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
