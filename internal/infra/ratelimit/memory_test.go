package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Unix(1712345678, 0)
	l := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "add_block:10.0.0.1", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !d.Allowed || d.Remaining != 2-i {
			t.Fatalf("request %d: unexpected decision %+v", i, d)
		}
	}
	d, err := l.Allow(ctx, "add_block:10.0.0.1", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("expected denial, got %+v", d)
	}
	if d.RetryAfter(now) != 60 {
		t.Fatalf("unexpected retry after %d", d.RetryAfter(now))
	}

	other, err := l.Allow(ctx, "add_block:10.0.0.2", 3, time.Minute)
	if err != nil || !other.Allowed {
		t.Fatalf("keys must be independent, got %+v %v", other, err)
	}

	now = now.Add(61 * time.Second)
	d, err = l.Allow(ctx, "add_block:10.0.0.1", 3, time.Minute)
	if err != nil || !d.Allowed || d.Remaining != 2 {
		t.Fatalf("expected fresh window, got %+v %v", d, err)
	}
}

func TestMemoryLimiterDisabled(t *testing.T) {
	l := NewMemoryLimiter(MemoryLimiterConfig{})
	d, err := l.Allow(context.Background(), "k", 0, time.Minute)
	if err != nil || !d.Allowed {
		t.Fatalf("zero limit must allow, got %+v %v", d, err)
	}
}

func TestMemoryLimiterCapacity(t *testing.T) {
	now := time.Unix(1712345678, 0)
	l := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }, MaxKeys: 2})
	ctx := context.Background()

	for _, key := range []string{"a", "b"} {
		if _, err := l.Allow(ctx, key, 1, time.Second); err != nil {
			t.Fatalf("allow %s: %v", key, err)
		}
	}
	if _, err := l.Allow(ctx, "c", 1, time.Second); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := l.Allow(ctx, "c", 1, time.Second); err != nil {
		t.Fatalf("expected expired keys to be swept, got %v", err)
	}
}

func TestDecisionFromReply(t *testing.T) {
	now := time.Unix(1712345678, 0)
	d, err := decisionFromReply([]any{int64(4), int64(1500)}, 3, now)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Allowed || d.Remaining != 0 || !d.ResetAt.Equal(now.Add(1500*time.Millisecond)) {
		t.Fatalf("unexpected decision %+v", d)
	}
	d, err = decisionFromReply([]any{int64(1), int64(-1)}, 3, now)
	if err != nil || !d.Allowed || d.Remaining != 2 || !d.ResetAt.Equal(now) {
		t.Fatalf("unexpected decision %+v %v", d, err)
	}
	if _, err := decisionFromReply("OK", 3, now); err == nil {
		t.Fatal("expected error for malformed reply")
	}
	if _, err := decisionFromReply([]any{"1", int64(0)}, 3, now); err == nil {
		t.Fatal("expected error for non-integer counter")
	}
}

func TestNewRedisLimiterRequiresAddr(t *testing.T) {
	if _, err := NewRedisLimiter(RedisLimiterConfig{}); err == nil {
		t.Fatal("expected error without addr")
	}
}
