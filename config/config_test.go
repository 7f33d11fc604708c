package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `DataDir = "./data"
GenesisFile = "genesis.yaml"
Environment = "testnet"

[store]
Backend = "Memory"

[log]
Level = "debug"
File = "./logs/marsd.log"
MaxSizeMB = 10
Compress = true

[telemetry]
Endpoint = "collector:4318"
Insecure = true
Headers = "authorization=Bearer abc"
Traces = true
SampleRatio = 0.25

[protocol]
SwapFee = "0.005"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Fatalf("expected normalized memory backend, got %q", cfg.Store.Backend)
	}
	if cfg.Environment != "testnet" || cfg.Log.Level != "debug" || !cfg.Log.Compress {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Log.MaxBackups != 5 {
		t.Fatalf("expected default MaxBackups to survive, got %d", cfg.Log.MaxBackups)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.Metrics || cfg.Telemetry.SampleRatio != 0.25 {
		t.Fatalf("unexpected telemetry %+v", cfg.Telemetry)
	}
	fee, err := cfg.Protocol.SwapFeeDecimal()
	if err != nil {
		t.Fatalf("swap fee: %v", err)
	}
	if fee.String() != "0.005" {
		t.Fatalf("unexpected swap fee %s", fee)
	}
	if got := cfg.StorePath(); got != filepath.Join("data", "state") {
		t.Fatalf("unexpected store path %q", got)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if cfg.Store.Backend != BackendLevelDB {
		t.Fatalf("unexpected default backend %q", cfg.Store.Backend)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}
	if !strings.Contains(string(raw), "DataDir") {
		t.Fatalf("persisted config missing DataDir: %s", raw)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload default: %v", err)
	}
	if again.DataDir != cfg.DataDir {
		t.Fatalf("reloaded DataDir %q, want %q", again.DataDir, cfg.DataDir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("DataDir = \"./data\"\nListenAddress = \":6001\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "ListenAddress") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"empty data dir": func(c *Config) { c.DataDir = "" },
		"bad backend":    func(c *Config) { c.Store.Backend = "postgres" },
		"bad level":      func(c *Config) { c.Log.Level = "loud" },
		"negative size":  func(c *Config) { c.Log.MaxSizeMB = -1 },
		"sample ratio":   func(c *Config) { c.Telemetry.SampleRatio = 2 },
		"bad swap fee":   func(c *Config) { c.Protocol.SwapFee = "abc" },
		"swap fee cap":   func(c *Config) { c.Protocol.SwapFee = "0.5" },
	}
	if err := ValidateConfig(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := ValidateConfig(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Store.Backend = BackendMemory
	cfg.Protocol.SwapFee = "0.01"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Store.Backend != BackendMemory || loaded.Protocol.SwapFee != "0.01" {
		t.Fatalf("unexpected config %+v", loaded)
	}

	cfg.Protocol.SwapFee = "0.5"
	if err := Save(path, cfg); err == nil {
		t.Fatalf("expected invalid config to be refused")
	}
}
