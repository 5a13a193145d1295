package contentcache

import (
	"testing"
	"time"
)

func TestStoreHasGetRemove(t *testing.T) {
	c := New(t.TempDir())

	if c.Has("lodash@4.17.21") {
		t.Fatal("expected Has() false before store")
	}
	if err := c.Store("lodash@4.17.21", []byte("payload")); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if !c.Has("lodash@4.17.21") {
		t.Fatal("expected Has() true after store")
	}

	data, err := c.Get("lodash@4.17.21")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("Get() = %q, want payload", data)
	}

	if err := c.Remove("lodash@4.17.21"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if c.Has("lodash@4.17.21") {
		t.Fatal("expected Has() false after remove")
	}
}

func TestGet_AccessCountIncrements(t *testing.T) {
	c := New(t.TempDir())
	c.Store("pkg", []byte("x"))

	c.Get("pkg")
	c.Get("pkg")

	_, metaPath := c.paths("pkg")
	meta, err := readMeta(metaPath)
	if err != nil {
		t.Fatalf("readMeta() error: %v", err)
	}
	if meta.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", meta.AccessCount)
	}
}

func TestClear(t *testing.T) {
	c := New(t.TempDir())
	c.Store("pkg", []byte("x"))
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if c.Has("pkg") {
		t.Fatal("expected Has() false after Clear()")
	}
}

func TestEnforceSize_EvictsAscendingMtime(t *testing.T) {
	c := New(t.TempDir())
	c.MaxBytes = 10

	c.Store("old", make([]byte, 6))
	time.Sleep(2 * time.Millisecond)
	c.Store("new", make([]byte, 6))

	if c.Has("old") {
		t.Fatal("expected the oldest entry to be evicted once over the size cap")
	}
	if !c.Has("new") {
		t.Fatal("expected the newest entry to survive eviction")
	}
}

func TestGetStats(t *testing.T) {
	c := New(t.TempDir())
	c.Store("a", make([]byte, 1024))
	c.Store("b", make([]byte, 1024))

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", stats.FileCount)
	}
	if stats.TotalMiB <= 0 {
		t.Errorf("TotalMiB = %v, want > 0", stats.TotalMiB)
	}
}

func TestGetStats_EmptyCache(t *testing.T) {
	c := New(t.TempDir())
	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.FileCount != 0 {
		t.Errorf("FileCount = %d, want 0", stats.FileCount)
	}
}
