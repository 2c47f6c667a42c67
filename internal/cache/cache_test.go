package cache

import (
	"testing"
	"time"
)

func TestCache_ExpiresEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := New[string](time.Minute).WithClock(func() time.Time { return now })

	c.Set("a", "1")
	c.SetWithTTL("b", "2", time.Hour)

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	now = now.Add(time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be expired at its deadline")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("expected b to be alive")
	}
}

func TestCache_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := New[int](time.Second).WithClock(func() time.Time { return now })

	c.Set("x", 1)
	c.Set("y", 2)
	c.SetWithTTL("z", 3, time.Hour)

	now = now.Add(2 * time.Second)

	if n := c.Sweep(); n != 2 {
		t.Fatalf("Sweep() = %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}
