package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/ecsgraph/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Redis.Enabled() || cfg.Mongo.Enabled() {
		t.Error("remote sinks should be disabled by default")
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should be enabled by default")
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[log]
level = "debug"

[server]
addr = "127.0.0.1:9000"

[redis]
addr = "localhost:6379"
cache_ttl = "30m"

[mongo]
uri = "mongodb://localhost:27017"
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if level, _ := cfg.Log.ParseLevel(); level != log.DebugLevel {
		t.Errorf("level = %v, want debug", level)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Redis.CacheTTL != 30*time.Minute {
		t.Errorf("cache_ttl = %v", cfg.Redis.CacheTTL)
	}
	if cfg.Redis.Stream != "ecsgraph:events" {
		t.Errorf("stream default lost: %q", cfg.Redis.Stream)
	}
	if !cfg.Mongo.Enabled() || cfg.Mongo.Collection != "batches" {
		t.Errorf("mongo = %+v", cfg.Mongo)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", `[server`},
		{"unknown key", "[server]\nport = 80"},
		{"bad level", "[log]\nlevel = \"loud\""},
		{"empty addr", "[server]\naddr = \"\""},
		{"redis url", "[redis]\naddr = \"redis://localhost:6379\""},
		{"negative ttl", "[redis]\naddr = \"localhost:6379\"\ncache_ttl = \"-1h\""},
		{"mongo scheme", "[mongo]\nuri = \"http://localhost\""},
		{"mongo collection", "[mongo]\nuri = \"mongodb://localhost\"\ncollection = \"\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); !errs.Is(err, errs.ErrCodeInvalidConfig) {
				t.Errorf("Parse() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecsgraph.toml")
	if err := os.WriteFile(path, []byte("[metrics]\nenabled = false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics.enabled = true, want false")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("Load(missing) error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "examples", "ecsgraph.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Redis.Enabled() || !cfg.Mongo.Enabled() {
		t.Errorf("example should enable every sink: %s", cfg)
	}
	if cfg.Redis.CacheTTL != 12*time.Hour {
		t.Errorf("cache_ttl = %v, want 12h", cfg.Redis.CacheTTL)
	}
}
