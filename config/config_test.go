package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[heap]
gc-threshold = 65536
max-heap = 1048576
growth-factor = 1.5
check-owner = false

[log]
verbosity = 2
path = "lispcore.log"

[stats]
database = "gc.db"

[server]
addr = "127.0.0.1:9000"
gc-interval = "5s"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Heap.GCThreshold != 65536 {
		t.Errorf("gc-threshold = %d, want 65536", c.Heap.GCThreshold)
	}
	if c.Heap.MaxHeap != 1048576 {
		t.Errorf("max-heap = %d, want 1048576", c.Heap.MaxHeap)
	}
	if c.Heap.GrowthFactor != 1.5 {
		t.Errorf("growth-factor = %v, want 1.5", c.Heap.GrowthFactor)
	}
	if c.Heap.CheckOwner {
		t.Error("check-owner = true, want false")
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", c.Log.Verbosity)
	}
	if got, want := c.DatabasePath(), filepath.Join(c.Dir, "gc.db"); got != want {
		t.Errorf("DatabasePath() = %q, want %q", got, want)
	}
	if got, want := c.LogPath(), filepath.Join(c.Dir, "lispcore.log"); got != want {
		t.Errorf("LogPath() = %q, want %q", got, want)
	}
	if c.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server addr = %q, want 127.0.0.1:9000", c.Server.Addr)
	}
	if d, err := c.Interval(); err != nil || d != 5*time.Second {
		t.Errorf("Interval() = %v, %v; want 5s", d, err)
	}

	hc := c.HeapConfig()
	if hc.GCThreshold != 65536 || hc.MaxHeapBytes != 1048576 || hc.CheckOwner {
		t.Errorf("HeapConfig() = %+v", hc)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[stats]
database = "/var/lib/lispcore/gc.db"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	d := Default()
	if c.Heap != d.Heap {
		t.Errorf("heap = %+v, want defaults %+v", c.Heap, d.Heap)
	}
	if c.Server.Addr != d.Server.Addr {
		t.Errorf("server addr = %q, want %q", c.Server.Addr, d.Server.Addr)
	}
	if c.DatabasePath() != "/var/lib/lispcore/gc.db" {
		t.Errorf("absolute database path rewritten to %q", c.DatabasePath())
	}
}

func TestLoadConfigBadInterval(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[server]
gc-interval = "soon"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load accepted an invalid gc-interval")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[log]\nverbosity = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if c.Log.Verbosity != 1 {
		t.Errorf("verbosity = %d, want 1", c.Log.Verbosity)
	}
	abs, _ := filepath.Abs(root)
	if c.Dir != abs {
		t.Errorf("Dir = %q, want %q", c.Dir, abs)
	}
}

func TestFindAndLoadMissing(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c != nil {
		// A lispcore.toml above the temp dir would be found; tolerate it.
		t.Logf("found config in %s", c.Dir)
	}
}
