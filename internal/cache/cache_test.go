package cache

import (
	"testing"
	"time"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(ttl)
	c.now = clock.now
	return c, clock
}

func TestGetWithinTTLIsByteIdentical(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)
	c.Put("admin", "context v1")

	clock.advance(4 * time.Minute)

	first, builtAt1, err := c.Get("admin")
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, builtAt2, err := c.Get("admin")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if first != second {
		t.Fatalf("texts differ: %q vs %q", first, second)
	}
	if !builtAt1.Equal(builtAt2) {
		t.Fatalf("builtAt moved without a put: %v vs %v", builtAt1, builtAt2)
	}
}

func TestGetPastTTLMisses(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)
	c.Put("customer", "context")

	clock.advance(5*time.Minute + time.Second)

	if _, _, err := c.Get("customer"); err != ErrMiss {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
}

func TestGetAbsentKeyMisses(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	if _, _, err := c.Get("admin"); err != ErrMiss {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
}

func TestInvalidateExpiresImmediately(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	c.Put("admin", "context")
	c.Invalidate("admin")

	if _, _, err := c.Get("admin"); err != ErrMiss {
		t.Fatalf("err = %v, want ErrMiss after invalidate", err)
	}
}

func TestPutAdvancesBuiltAt(t *testing.T) {
	c, clock := newTestCache(time.Hour)
	c.Put("admin", "v1")
	_, builtAt1, _ := c.Get("admin")

	clock.advance(time.Minute)
	c.Put("admin", "v2")
	text, builtAt2, _ := c.Get("admin")

	if !builtAt2.After(builtAt1) {
		t.Fatalf("builtAt did not advance: %v -> %v", builtAt1, builtAt2)
	}
	if text != "v2" {
		t.Fatalf("text = %q, want v2", text)
	}
}

func TestInvalidateAll(t *testing.T) {
	c, _ := newTestCache(time.Hour)
	c.Put("admin", "a")
	c.Put("customer", "b")
	c.InvalidateAll()

	if s := c.Stats(); s.Entries != 0 {
		t.Fatalf("entries = %d, want 0", s.Entries)
	}
}
