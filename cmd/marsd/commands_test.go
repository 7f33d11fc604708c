package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/mars-protocol/contracts-sub007/config"
	"github.com/mars-protocol/contracts-sub007/storage"
)

func TestExecFlagsEnv(t *testing.T) {
	flags := &execFlags{sender: " mars1sender ", funds: "10uosmo,5uatom", height: 7}
	now := time.Unix(1_700_000_000, 0)
	env, err := flags.env(now)
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	if env.Sender != "mars1sender" || env.BlockHeight != 7 {
		t.Fatalf("unexpected env %+v", env)
	}
	if env.BlockTime != uint64(now.Unix()) {
		t.Fatalf("expected block time to default to now, got %d", env.BlockTime)
	}
	if env.Funds.String() != "5uatom,10uosmo" {
		t.Fatalf("unexpected funds %s", env.Funds)
	}

	flags.time = -1
	if _, err := flags.env(now); err == nil {
		t.Fatalf("expected negative time to be rejected")
	}
	flags.time = 0
	flags.funds = "ten uosmo"
	if _, err := flags.env(now); err == nil {
		t.Fatalf("expected malformed funds to be rejected")
	}
}

func TestReadEnvelope(t *testing.T) {
	stdin := strings.NewReader(`{"type":"claim_rewards"}`)
	raw, err := readEnvelope(stdin, "-", nil)
	if err != nil || !strings.Contains(string(raw), "claim_rewards") {
		t.Fatalf("stdin envelope: %q %v", raw, err)
	}
	raw, err = readEnvelope(nil, "", []string{`{"type":"send"}`})
	if err != nil || string(raw) != `{"type":"send"}` {
		t.Fatalf("arg envelope: %q %v", raw, err)
	}
	if _, err := readEnvelope(nil, "", nil); err == nil {
		t.Fatalf("expected missing envelope error")
	}
	if _, err := readEnvelope(nil, filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestOpenStoreBackends(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory
	db, err := openStore(cfg)
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if _, ok := db.(*storage.MemDB); !ok {
		t.Fatalf("expected memdb, got %T", db)
	}
	db.Close()

	cfg.Store.Backend = config.BackendLevelDB
	cfg.Store.Path = filepath.Join(t.TempDir(), "state")
	db, err = openStore(cfg)
	if err != nil {
		t.Fatalf("leveldb store: %v", err)
	}
	db.Close()

	cfg.Store.Backend = "rocksdb"
	if _, err := openStore(cfg); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestLogWriterRotatesWhenFileSet(t *testing.T) {
	if _, ok := logWriter(config.Log{}).(*lumberjack.Logger); ok {
		t.Fatalf("expected stderr without a log file")
	}
	w, ok := logWriter(config.Log{File: "marsd.log", MaxSizeMB: 10, MaxBackups: 2}).(*lumberjack.Logger)
	if !ok {
		t.Fatalf("expected lumberjack writer")
	}
	if w.MaxSize != 10 || w.MaxBackups != 2 {
		t.Fatalf("rotation limits not applied: %+v", w)
	}
}

func TestQueryAgainstUninitializedStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Store.Backend = config.BackendMemory
	if err := config.Save(cfgPath, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	root := rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", cfgPath, "query", "contract", "version"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected missing contract version error, got %s", out.String())
	}
}
