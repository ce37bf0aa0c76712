package mutes

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestStore creates a RedisStore connected to a local Redis instance and
// flushes any leftover mute keys. Tests using it require a running Redis on
// localhost:6379 and are skipped otherwise.
func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	flush := func() {
		iter := client.Scan(ctx, 0, MutePrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
		client.Del(ctx, globalKey)
	}
	flush()
	t.Cleanup(func() {
		flush()
		client.Close()
	})
	return NewRedisStore(client)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	records := map[string]time.Time{
		"perm_user": {},
		"temp_user": expiry,
	}

	if err := store.SaveAll(ctx, records, true); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	loaded, global, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if !global {
		t.Error("global flag should round-trip as true")
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d records, want 2", len(loaded))
	}
	if !loaded["perm_user"].IsZero() {
		t.Error("permanent record should load with zero expiry")
	}
	if !loaded["temp_user"].Equal(expiry) {
		t.Errorf("temp_user expiry = %v, want %v", loaded["temp_user"], expiry)
	}
}

func TestRedisStore_SaveAllRemovesStaleKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveAll(ctx, map[string]time.Time{"gone": {}, "kept": {}}, false); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	// Second snapshot no longer contains "gone".
	if err := store.SaveAll(ctx, map[string]time.Time{"kept": {}}, false); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	loaded, global, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if global {
		t.Error("global flag should round-trip as false")
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d records, want 1: %v", len(loaded), loaded)
	}
	if _, ok := loaded["kept"]; !ok {
		t.Error("surviving record missing from snapshot")
	}
}

func TestRedisStore_ExpiredRecordNotSaved(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := map[string]time.Time{
		"already_over": time.Now().Add(-time.Minute),
	}
	if err := store.SaveAll(ctx, records, false); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	loaded, _, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expired record should not be persisted, got %v", loaded)
	}
}
