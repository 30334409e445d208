package lookupcache

import (
	"testing"
	"time"
)

func TestProfilesRoundTrip(t *testing.T) {
	c := New(time.Hour)
	c.SetProfiles("radarr:main", map[string]int{"hd-1080p": 6, "original": 9})

	values, ok := c.Profiles("radarr:main")
	if !ok {
		t.Fatal("expected cached profiles")
	}
	if values["hd-1080p"] != 6 || values["original"] != 9 {
		t.Fatalf("unexpected values: %v", values)
	}

	if _, ok := c.Profiles("radarr:other"); ok {
		t.Fatal("unexpected hit for different instance key")
	}
	if _, ok := c.Tags("radarr:main"); ok {
		t.Fatal("profiles must not leak into the tag bucket")
	}
}

func TestEntriesExpireLazily(t *testing.T) {
	current := time.Unix(1000, 0)
	c := New(time.Hour, WithClock(func() time.Time { return current }))

	c.SetProfiles("radarr:main", map[string]int{"original": 9})
	c.SetTags("radarr:main", map[string]int{"dub": 4})

	current = current.Add(59 * time.Minute)
	if _, ok := c.Profiles("radarr:main"); !ok {
		t.Fatal("entry expired before its TTL")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := c.Profiles("radarr:main"); ok {
		t.Fatal("expected profile entry to expire")
	}
	if _, ok := c.Tags("radarr:main"); ok {
		t.Fatal("expected tag entry to expire")
	}
}

func TestSetRefreshesExpiry(t *testing.T) {
	current := time.Unix(1000, 0)
	c := New(time.Hour, WithClock(func() time.Time { return current }))

	c.SetTags("sonarr:main", map[string]int{"dub": 4})
	current = current.Add(50 * time.Minute)
	c.SetTags("sonarr:main", map[string]int{"dub": 4, "german-audio": 7})

	current = current.Add(30 * time.Minute)
	values, ok := c.Tags("sonarr:main")
	if !ok {
		t.Fatal("refreshed entry should still be valid")
	}
	if len(values) != 2 {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestInvalidateDropsBothBuckets(t *testing.T) {
	c := New(time.Hour)
	c.SetProfiles("radarr:main", map[string]int{"original": 9})
	c.SetTags("radarr:main", map[string]int{"dub": 4})
	c.SetTags("sonarr:main", map[string]int{"dub": 2})

	c.Invalidate("radarr:main")

	if _, ok := c.Profiles("radarr:main"); ok {
		t.Fatal("profiles should be invalidated")
	}
	if _, ok := c.Tags("radarr:main"); ok {
		t.Fatal("tags should be invalidated")
	}
	if _, ok := c.Tags("sonarr:main"); !ok {
		t.Fatal("other instances must be untouched")
	}
}

func TestClear(t *testing.T) {
	c := New(time.Hour)
	c.SetProfiles("radarr:main", map[string]int{"original": 9})
	c.Clear()
	if _, ok := c.Profiles("radarr:main"); ok {
		t.Fatal("expected empty cache after Clear")
	}
}

func TestCachedMapsAreIsolated(t *testing.T) {
	c := New(time.Hour)
	source := map[string]int{"original": 9}
	c.SetProfiles("radarr:main", source)
	source["original"] = 1

	first, _ := c.Profiles("radarr:main")
	if first["original"] != 9 {
		t.Fatal("cache shared the caller's map")
	}
	first["original"] = 2

	second, _ := c.Profiles("radarr:main")
	if second["original"] != 9 {
		t.Fatal("readers share the cached map")
	}
}

func TestPerCallTTLOverride(t *testing.T) {
	current := time.Unix(1000, 0)
	c := New(time.Hour, WithClock(func() time.Time { return current }))

	c.SetProfilesTTL("radarr:main", map[string]int{"original": 9}, 10*time.Minute)
	c.SetTagsTTL("radarr:main", map[string]int{"dub": 4}, 2*time.Hour)

	current = current.Add(11 * time.Minute)
	if _, ok := c.Profiles("radarr:main"); ok {
		t.Fatal("short per-call TTL should have expired")
	}
	current = current.Add(100 * time.Minute)
	if _, ok := c.Tags("radarr:main"); !ok {
		t.Fatal("long per-call TTL should outlive the default")
	}
}

func TestZeroTTLFallsBackToDefault(t *testing.T) {
	current := time.Unix(1000, 0)
	c := New(0, WithClock(func() time.Time { return current }))
	c.SetProfiles("radarr:main", map[string]int{"original": 9})

	current = current.Add(DefaultTTL - time.Minute)
	if _, ok := c.Profiles("radarr:main"); !ok {
		t.Fatal("default TTL should keep the entry valid")
	}
	current = current.Add(2 * time.Minute)
	if _, ok := c.Profiles("radarr:main"); ok {
		t.Fatal("entry should expire after the default TTL")
	}
}
