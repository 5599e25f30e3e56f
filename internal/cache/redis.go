// Package cache holds the Redis-backed availability cache shared between
// server instances.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/agenda-booking/internal/application"
)

const (
	defaultKeyPrefix = "availability"
	defaultTTL       = 30 * time.Second
	scanBatch        = 200
)

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a go-redis client and verifies the connection.
func NewRedisClient(opts RedisOptions) (*redis.Client, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisAvailabilityCache implements application.AvailabilityCache on Redis.
// Entries expire after the configured TTL; invalidation scans the agenda's
// key prefix.
type RedisAvailabilityCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

var _ application.AvailabilityCache = (*RedisAvailabilityCache)(nil)

// NewRedisAvailabilityCache wraps client. A non-positive ttl falls back to 30 seconds.
func NewRedisAvailabilityCache(client redis.UniversalClient, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl, prefix: defaultKeyPrefix}
}

// Key renders the Redis key for an availability entry.
func (c *RedisAvailabilityCache) Key(key application.AvailabilityKey) string {
	return c.agendaPrefix(key.AgendaID) + key.Date + ":" + strings.ToLower(key.Service)
}

func (c *RedisAvailabilityCache) agendaPrefix(agendaID string) string {
	return c.prefix + ":" + agendaID + ":"
}

func (c *RedisAvailabilityCache) Get(ctx context.Context, key application.AvailabilityKey) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, c.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read availability: %w", err)
	}
	var slots []string
	if err := json.Unmarshal(raw, &slots); err != nil {
		// Corrupt entries count as a miss and get overwritten on the next Set.
		return nil, false, nil
	}
	if slots == nil {
		slots = []string{}
	}
	return slots, true, nil
}

func (c *RedisAvailabilityCache) Set(ctx context.Context, key application.AvailabilityKey, slots []string) error {
	if slots == nil {
		slots = []string{}
	}
	payload, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("write availability: %w", err)
	}
	return nil
}

func (c *RedisAvailabilityCache) InvalidateAgenda(ctx context.Context, agendaID string) error {
	return c.deleteMatching(ctx, escapePattern(c.agendaPrefix(agendaID))+"*")
}

func (c *RedisAvailabilityCache) InvalidateAll(ctx context.Context) error {
	return c.deleteMatching(ctx, escapePattern(c.prefix+":")+"*")
}

func (c *RedisAvailabilityCache) deleteMatching(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan availability keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete availability keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping reports whether the Redis server is reachable.
func (c *RedisAvailabilityCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *RedisAvailabilityCache) Close() error {
	return c.client.Close()
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapePattern(value string) string {
	return globReplacer.Replace(value)
}
