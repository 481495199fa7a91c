package storage

import (
	"testing"
	"time"
)

func TestBoltStoreMarksAndExpiresItems(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		ItemTTL:         1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/seen.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	seen, err := store.SeenItem("https://example.com/p/1")
	if err != nil || seen {
		t.Fatalf("expected unseen item, seen=%v err=%v", seen, err)
	}

	if err := store.MarkItem("https://example.com/p/1"); err != nil {
		t.Fatalf("MarkItem: %v", err)
	}

	seen, err = store.SeenItem("https://example.com/p/1")
	if err != nil || !seen {
		t.Fatalf("expected item marked as seen, got seen=%v err=%v", seen, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = store.SeenItem("https://example.com/p/1")
	if err != nil {
		t.Fatalf("SeenItem after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkItem("x"); err != nil {
		t.Fatalf("noop store MarkItem: %v", err)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}
}
