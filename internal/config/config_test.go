package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"audiocloud/internal/config"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("AUDIOCLOUD_CATALOG", "")
	t.Setenv("AUDIOCLOUD_LOG_LEVEL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	want := filepath.Join(tempHome, ".config", "audiocloud", "config.toml")
	if resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}
	if !cfg.Engine.AtomicBatches || !cfg.Engine.RejectCycles {
		t.Fatalf("expected atomic batches and cycle rejection by default, got %+v", cfg.Engine)
	}
	if cfg.Engine.WireFormat != "json" {
		t.Fatalf("wire format = %q", cfg.Engine.WireFormat)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Catalog.Path != "" {
		t.Fatalf("expected built-in catalog, got %q", cfg.Catalog.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("AUDIOCLOUD_LOG_LEVEL", "")
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "models.toml")
	if err := os.WriteFile(catalogPath, []byte("[models]\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cfg := config.Default()
	cfg.Catalog.Path = catalogPath
	cfg.Engine.AtomicBatches = false
	cfg.Engine.WireFormat = "CBOR"
	cfg.Logging.Format = "JSON"
	cfg.Logging.Level = "Debug"
	cfg.Logging.Dir = filepath.Join(dir, "logs")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if loaded.Engine.AtomicBatches {
		t.Fatal("expected atomic_batches=false from file")
	}
	if !loaded.Engine.RejectCycles {
		t.Fatal("expected reject_cycles to keep its value")
	}
	if loaded.Engine.WireFormat != "cbor" || loaded.Logging.Format != "json" || loaded.Logging.Level != "debug" {
		t.Fatalf("expected lower-cased enums, got %+v / %+v", loaded.Engine, loaded.Logging)
	}
	if err := loaded.EnsureLogDir(); err != nil {
		t.Fatalf("EnsureLogDir: %v", err)
	}
	if info, err := os.Stat(loaded.Logging.Dir); err != nil || !info.IsDir() {
		t.Fatalf("log dir not created: %v", err)
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "models.json")
	if err := os.WriteFile(catalogPath, []byte(`{"models": {}}`), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	t.Setenv("AUDIOCLOUD_CATALOG", catalogPath)
	t.Setenv("AUDIOCLOUD_LOG_LEVEL", "WARN")

	cfg, _, _, err := config.Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.Path != catalogPath {
		t.Fatalf("catalog path = %q", cfg.Catalog.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("AUDIOCLOUD_CATALOG", "")
	t.Setenv("AUDIOCLOUD_LOG_LEVEL", "")
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "wire format", body: "[engine]\nwire_format = \"xml\"\n", wantErr: "engine.wire_format"},
		{name: "log format", body: "[logging]\nformat = \"yaml\"\n", wantErr: "logging.format"},
		{name: "log level", body: "[logging]\nlevel = \"trace\"\n", wantErr: "logging.level"},
		{name: "missing catalog", body: "[catalog]\npath = \"/definitely/not/here.toml\"\n", wantErr: "catalog.path"},
		{name: "unknown key", body: "[engine]\nturbo = true\n", wantErr: "parse config"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Load error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("AUDIOCLOUD_CATALOG", "")
	t.Setenv("AUDIOCLOUD_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	def := config.Default()
	if cfg.Engine != def.Engine {
		t.Fatalf("sample engine = %+v, want defaults %+v", cfg.Engine, def.Engine)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/models/catalog.toml")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "models", "catalog.toml") {
		t.Fatalf("ExpandPath = %q", got)
	}
	if got, _ := config.ExpandPath(""); got != "" {
		t.Fatalf("empty path expanded to %q", got)
	}
}
