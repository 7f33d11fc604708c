package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/mars-protocol/contracts-sub007/config"
	"github.com/mars-protocol/contracts-sub007/core"
	"github.com/mars-protocol/contracts-sub007/observability/logging"
	telemetry "github.com/mars-protocol/contracts-sub007/observability/otel"
	"github.com/mars-protocol/contracts-sub007/storage"
)

const serviceName = "marsd"

type rootOptions struct {
	configPath string
}

// runtime is the opened store plus the services wrapped around it.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         storage.Database
	dispatcher *core.Dispatcher
	shutdown   func(context.Context) error
}

func openRuntime(ctx context.Context, opts *rootOptions) (*runtime, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.Setup(logging.Options{
		Service: serviceName,
		Env:     cfg.Environment,
		Level:   cfg.Log.Level,
		Writer:  logWriter(cfg.Log),
	})
	if err != nil {
		return nil, err
	}

	headers := telemetry.ParseHeaders(cfg.Telemetry.Headers)
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: core.ContractVersion,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        headers,
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	if cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		logger.Info("telemetry enabled",
			slog.String("endpoint", cfg.Telemetry.Endpoint),
			logging.MaskHeaders(headers))
	}

	db, err := openStore(cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	fee, err := cfg.Protocol.SwapFeeDecimal()
	if err != nil {
		db.Close()
		_ = shutdown(ctx)
		return nil, err
	}
	dispatcher, err := core.NewDispatcher(db, core.WithLogger(logger), core.WithSwapFee(fee))
	if err != nil {
		db.Close()
		_ = shutdown(ctx)
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, db: db, dispatcher: dispatcher, shutdown: shutdown}, nil
}

func (r *runtime) Close(ctx context.Context) {
	if r == nil {
		return
	}
	r.db.Close()
	if err := r.shutdown(ctx); err != nil {
		r.logger.Warn("telemetry shutdown failed", slog.Any("error", err))
	}
}

func openStore(cfg *config.Config) (storage.Database, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendLevelDB:
		path := cfg.StorePath()
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		db, err := storage.NewLevelDB(path)
		if err != nil {
			return nil, fmt.Errorf("open leveldb %s: %w", path, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func logWriter(cfg config.Log) io.Writer {
	if strings.TrimSpace(cfg.File) == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}
