package mutes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// MutePrefix is the Redis key prefix for persisted mute records.
	MutePrefix = "mute:"

	// globalKey holds the persisted global chat-mute flag.
	globalKey = "chat:muted"

	// permanentMarker is stored for records with no expiry. Timed records
	// store their expiry as a unix timestamp and carry a matching TTL, so
	// Redis drops them on its own if the service is down past the expiry.
	permanentMarker = "permanent"
)

// Store is the persistence contract for mute state. The in-memory State
// remains authoritative; implementations only need to survive restarts.
type Store interface {
	SaveAll(ctx context.Context, records map[string]time.Time, global bool) error
	LoadAll(ctx context.Context) (map[string]time.Time, bool, error)
}

// RedisStore persists mute snapshots in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// SaveAll writes the full mute snapshot, removing any persisted record absent
// from it. Timed records get a TTL matching their remaining duration.
func (s *RedisStore) SaveAll(ctx context.Context, records map[string]time.Time, global bool) error {
	now := time.Now()

	// Drop persisted records that no longer exist in memory.
	iter := s.client.Scan(ctx, 0, MutePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, ok := records[key[len(MutePrefix):]]; !ok {
			s.client.Del(ctx, key)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("mutes: scan persisted records: %w", err)
	}

	pipe := s.client.Pipeline()
	for id, expiresAt := range records {
		key := MutePrefix + id
		if expiresAt.IsZero() {
			pipe.Set(ctx, key, permanentMarker, 0)
			continue
		}
		ttl := expiresAt.Sub(now)
		if ttl <= 0 {
			continue
		}
		pipe.Set(ctx, key, fmt.Sprintf("%d", expiresAt.Unix()), ttl)
	}
	if global {
		pipe.Set(ctx, globalKey, "1", 0)
	} else {
		pipe.Del(ctx, globalKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mutes: save snapshot: %w", err)
	}
	return nil
}

// LoadAll reads the persisted snapshot. Records whose TTL lapsed while the
// service was down are already gone from Redis and simply don't come back.
func (s *RedisStore) LoadAll(ctx context.Context) (map[string]time.Time, bool, error) {
	records := make(map[string]time.Time)

	iter := s.client.Scan(ctx, 0, MutePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := key[len(MutePrefix):]

		val, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, false, fmt.Errorf("mutes: load record %s: %w", id, err)
		}

		if val == permanentMarker {
			records[id] = time.Time{}
			continue
		}
		var unix int64
		if _, err := fmt.Sscanf(val, "%d", &unix); err != nil {
			continue // unreadable record, drop it
		}
		records[id] = time.Unix(unix, 0)
	}
	if err := iter.Err(); err != nil {
		return nil, false, fmt.Errorf("mutes: scan persisted records: %w", err)
	}

	global, err := s.client.Exists(ctx, globalKey).Result()
	if err != nil {
		return nil, false, fmt.Errorf("mutes: load global flag: %w", err)
	}

	return records, global > 0, nil
}
