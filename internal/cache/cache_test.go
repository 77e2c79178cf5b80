package cache

import (
	"fmt"
	"testing"
	"time"

	"unitune/internal/core"
)

func sampleResolution(key string) *core.Resolution {
	return &core.Resolution{
		EntityUniqueID:  key,
		PageURL:         "https://unitune.art/s/x",
		LinksByPlatform: map[string]core.LinkEntry{},
	}
}

func TestResultCache_GetPut(t *testing.T) {
	t.Helper()

	c := New(8, time.Minute)

	if _, ok := c.Get("TIDAL::SONG::1"); ok {
		t.Error("Get() on empty cache reported a hit")
	}

	res := sampleResolution("TIDAL::SONG::1")
	c.Put("TIDAL::SONG::1", res)

	got, ok := c.Get("TIDAL::SONG::1")
	if !ok {
		t.Fatal("Get() missed after Put()")
	}
	if got != res {
		t.Error("Get() returned a different resolution")
	}
}

func TestResultCache_TTLExpiry(t *testing.T) {
	t.Helper()

	c := New(8, 20*time.Millisecond)
	c.Put("TIDAL::SONG::1", sampleResolution("TIDAL::SONG::1"))

	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get("TIDAL::SONG::1"); ok {
		t.Error("Get() hit after TTL expiry")
	}
}

func TestResultCache_Eviction(t *testing.T) {
	t.Helper()

	c := New(2, time.Minute)
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("TIDAL::SONG::%d", i)
		c.Put(key, sampleResolution(key))
	}

	if c.Len() > 2 {
		t.Errorf("Len() = %d, want at most 2", c.Len())
	}
}

func TestResultCache_NegativeCache(t *testing.T) {
	t.Helper()

	c := New(8, time.Minute)

	// A never-seen key must not be suppressed.
	if c.WasNotFound("TIDAL::SONG::fresh") {
		t.Error("WasNotFound() true for fresh key")
	}

	c.MarkNotFound("TIDAL::SONG::dead")
	if !c.WasNotFound("TIDAL::SONG::dead") {
		t.Error("WasNotFound() false after MarkNotFound()")
	}

	// Other keys stay unaffected.
	if c.WasNotFound("TIDAL::SONG::other") {
		t.Error("WasNotFound() true for unrelated key")
	}
}

func TestResultCache_NegativeCacheExpiry(t *testing.T) {
	t.Helper()

	c := New(8, 20*time.Millisecond)
	c.MarkNotFound("TIDAL::SONG::dead")

	time.Sleep(50 * time.Millisecond)

	if c.WasNotFound("TIDAL::SONG::dead") {
		t.Error("WasNotFound() true after TTL expiry")
	}
}
