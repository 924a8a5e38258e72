// Package config handles lispcore.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/lispcore/lisp"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "lispcore.toml"

// Config represents a lispcore.toml file.
type Config struct {
	Heap   Heap   `toml:"heap"`
	Log    Log    `toml:"log"`
	Stats  Stats  `toml:"stats"`
	Server Server `toml:"server"`

	// Dir is the directory containing the lispcore.toml file (set at load
	// time). Empty for the default configuration.
	Dir string `toml:"-"`
}

// Heap configures the collector.
type Heap struct {
	GCThreshold  int     `toml:"gc-threshold"`
	MaxHeap      int     `toml:"max-heap"`
	GrowthFactor float64 `toml:"growth-factor"`
	CheckOwner   bool    `toml:"check-owner"`
}

// Log configures commonlog. Verbosity follows commonlog: -4 is silent,
// 0 notices, 1 info, 2 and up debug.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// Stats configures the collection journal. An empty database disables it.
type Stats struct {
	Database string `toml:"database"`
}

// Server configures the inspection service.
type Server struct {
	Addr       string `toml:"addr"`
	GCInterval string `toml:"gc-interval"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	h := lisp.DefaultConfig()
	return &Config{
		Heap: Heap{
			GCThreshold:  h.GCThreshold,
			MaxHeap:      h.MaxHeapBytes,
			GrowthFactor: h.GrowthFactor,
			CheckOwner:   h.CheckOwner,
		},
		Server: Server{
			Addr:       "localhost:7411",
			GCInterval: "30s",
		},
	}
}

// Load parses a lispcore.toml file from the given directory. Keys absent
// from the file keep their default values.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if _, err := c.Interval(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a lispcore.toml file, then
// loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// HeapConfig converts the [heap] section for lisp.NewContext.
func (c *Config) HeapConfig() lisp.Config {
	return lisp.Config{
		GCThreshold:  c.Heap.GCThreshold,
		MaxHeapBytes: c.Heap.MaxHeap,
		GrowthFactor: c.Heap.GrowthFactor,
		CheckOwner:   c.Heap.CheckOwner,
	}
}

// Interval parses server.gc-interval. Zero disables periodic collection.
func (c *Config) Interval() (time.Duration, error) {
	if c.Server.GCInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Server.GCInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid gc-interval %q: %w", c.Server.GCInterval, err)
	}
	return d, nil
}

// DatabasePath returns the journal path, resolved against Dir. Empty if
// the journal is disabled.
func (c *Config) DatabasePath() string {
	return c.resolve(c.Stats.Database)
}

// LogPath returns the log file path, resolved against Dir.
func (c *Config) LogPath() string {
	return c.resolve(c.Log.Path)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ConfigureLogging applies the [log] section to commonlog.
func (c *Config) ConfigureLogging() {
	if p := c.LogPath(); p != "" {
		commonlog.Configure(c.Log.Verbosity, &p)
		return
	}
	commonlog.Configure(c.Log.Verbosity, nil)
}
