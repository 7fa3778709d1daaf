package cache

import (
	"testing"
	"time"
)

func TestCache_Set_Get_Len(t *testing.T) {
	c := NewCache[string, string]()
	defer c.Close()

	if l := c.Len(); l != 0 {
		t.Errorf("Expected initial length 0, got %d", l)
	}

	c.Set("node1", "secret-a")
	val, ok := c.Get("node1")
	if !ok {
		t.Errorf("Expected 'node1' to be found")
	}
	if val != "secret-a" {
		t.Errorf("Expected value 'secret-a', got '%s'", val)
	}
	if l := c.Len(); l != 1 {
		t.Errorf("Expected length 1 after Set, got %d", l)
	}

	if _, ok = c.Get("node2"); ok {
		t.Errorf("Expected 'node2' to not be found")
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := NewCache[string, string]()
	defer c.Close()

	c.Set("node1", "stays")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("node1"); !ok {
		t.Errorf("entry with zero TTL must not expire")
	}
}

func TestCache_TTL_Expiration(t *testing.T) {
	c := NewCache[string, string](
		WithDefaultTTL[string, string](20*time.Millisecond),
		WithJanitorInterval[string, string](10*time.Millisecond),
	)
	defer c.Close()

	c.SetWithTTL("permanent", "no expiry", 0)
	c.SetWithTTL("temporary", "expires", 10*time.Millisecond)

	if _, ok := c.Get("temporary"); !ok {
		t.Errorf("'temporary' should exist immediately after set")
	}

	time.Sleep(15 * time.Millisecond)

	if val, ok := c.Get("temporary"); ok {
		t.Errorf("'temporary' should have expired, but got value: %s", val)
	}
	if _, ok := c.Get("permanent"); !ok {
		t.Errorf("'permanent' should still exist")
	}
}

func TestCache_GetOrSet(t *testing.T) {
	c := NewCache[string, string]()
	defer c.Close()

	val, loaded := c.GetOrSet("node1", "first")
	if loaded {
		t.Errorf("Expected 'node1' to be stored, not loaded")
	}
	if val != "first" {
		t.Errorf("Expected value 'first', got '%s'", val)
	}

	val, loaded = c.GetOrSet("node1", "second (ignored)")
	if !loaded {
		t.Errorf("Expected 'node1' to be loaded, not stored")
	}
	if val != "first" {
		t.Errorf("Expected value 'first', got '%s'", val)
	}
	if c.Len() != 1 {
		t.Errorf("Expected length 1, got %d", c.Len())
	}
}

func TestCache_NegativeTTLDeletes(t *testing.T) {
	c := NewCache[string, string]()
	defer c.Close()

	c.Set("node1", "secret")
	c.SetWithTTL("node1", "gone", -1)
	if _, ok := c.Get("node1"); ok {
		t.Errorf("negative TTL should delete the entry")
	}
}

func TestCache_RangeAndClean(t *testing.T) {
	c := NewCache[string, int]()
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)

	seen := map[string]int{}
	c.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	if len(seen) != 2 || seen["a"] != 1 || seen["b"] != 2 {
		t.Errorf("Range visited %v", seen)
	}

	c.Clean()
	if c.Len() != 0 {
		t.Errorf("Expected length 0 after Clean, got %d", c.Len())
	}
}
