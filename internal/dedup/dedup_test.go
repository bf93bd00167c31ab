package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memStore struct {
	keys map[string]time.Duration
	err  error
}

func (m *memStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) *redis.BoolCmd {
	if m.err != nil {
		return redis.NewBoolResult(false, m.err)
	}
	if _, ok := m.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.keys[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *memStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.keys[k]; ok {
			delete(m.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestClaimOnce(t *testing.T) {
	store := &memStore{keys: map[string]time.Duration{}}
	c := New(store, "stripe")
	ctx := context.Background()

	ok, err := c.Claim(ctx, "evt_1")
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = c.Claim(ctx, "evt_1")
	if err != nil || ok {
		t.Fatalf("second claim must lose: ok=%v err=%v", ok, err)
	}
	if ttl := store.keys["dedup:stripe:evt_1"]; ttl != TTL {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestReleaseAllowsReclaim(t *testing.T) {
	store := &memStore{keys: map[string]time.Duration{}}
	c := New(store, "stripe")
	ctx := context.Background()

	if _, err := c.Claim(ctx, "evt_1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := c.Release(ctx, "evt_1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := c.Claim(ctx, "evt_1"); !ok {
		t.Fatalf("expected reclaim after release")
	}
}

func TestClaimError(t *testing.T) {
	boom := errors.New("connection refused")
	c := New(&memStore{err: boom}, "stripe")
	if _, err := c.Claim(context.Background(), "evt_1"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
