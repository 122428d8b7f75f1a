package cache

import (
	"testing"
	"time"
)

func TestTTL_GetSet(t *testing.T) {
	t.Parallel()

	c := New[string, int](time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a hit")
	}

	c.Set("a", 7)
	v, ok := c.Get("a")
	if !ok || v != 7 {
		t.Fatalf("Get = %d, %v; want 7, true", v, ok)
	}
}

func TestTTL_Expiry(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	c := New[string, int](30 * time.Second)
	c.SetClock(func() time.Time { return now })

	c.Set("a", 1)
	c.SetWithTTL("b", 2, 5*time.Second)

	now = now.Add(10 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry a expired early")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("short-TTL entry b should have expired")
	}

	now = now.Add(30 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry a should have expired")
	}
}

func TestTTL_DeleteAndPurge(t *testing.T) {
	t.Parallel()

	c := New[int, string](time.Minute)
	c.Set(1, "x")
	c.Set(2, "y")

	c.Delete(1)
	if _, ok := c.Get(1); ok {
		t.Fatal("deleted entry still present")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("Len after purge = %d", c.Len())
	}
}
