// Command kernelgod serves a kernelgo engine over websockets.
//
// Usage:
//
//	kernelgod -config kernelgod.yaml
//	kernelgod -listen :9000 -memory-limit 4294967296 -store local -store-path ./snapshots
//
// Flags given on the command line override the configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/kernelgo"
	"github.com/hupe1980/kernelgo/persistence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "kernelgod:", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closer, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := NewPrometheusCollector(reg)

	opts, err := engineOptions(cfg.Engine)
	if err != nil {
		return err
	}
	opts = append(opts,
		kernelgo.WithLogger(logger),
		kernelgo.WithMetricsCollector(metrics),
		kernelgo.WithBlobStore(store),
	)
	eng := kernelgo.New(opts...)
	defer func() { _ = eng.Close() }()
	reg.MustRegister(memoryGauge(eng))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(ctx, eng, logger, reg).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("kernelgod listening", "addr", cfg.Listen, "store", cfg.Store.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

// parseConfig loads the configuration file named by -config and applies
// every flag that was set explicitly.
func parseConfig(args []string, stderr io.Writer) (Config, error) {
	fs := flag.NewFlagSet("kernelgod", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configFile  = fs.String("config", "", "YAML configuration file")
		listen      = fs.String("listen", "", "listen address")
		memoryLimit = fs.Int64("memory-limit", 0, "memory budget in bytes (0 = unlimited)")
		workers     = fs.Int("workers", 0, "kernel worker goroutines (0 = GOMAXPROCS)")
		logLevel    = fs.String("log-level", "", "log level: debug, info, warn, error")
		logFormat   = fs.String("log-format", "", "log format: text or json")
		backend     = fs.String("store", "", "snapshot backend: memory, local, bolt, s3, s3+ddb, minio")
		storePath   = fs.String("store-path", "", "directory (local) or database file (bolt)")
	)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		return Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "memory-limit":
			cfg.Engine.MemoryLimit = *memoryLimit
		case "workers":
			cfg.Engine.Workers = *workers
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		case "store":
			cfg.Store.Backend = *backend
		case "store-path":
			cfg.Store.Path = *storePath
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newLogger(lc LogConfig, w io.Writer) *kernelgo.Logger {
	level, err := lc.level()
	if err != nil {
		level = slog.LevelInfo
	}
	if strings.EqualFold(lc.Format, "json") {
		return kernelgo.NewJSONLogger(w, level)
	}
	return kernelgo.NewTextLogger(w, level)
}

func engineOptions(ec EngineConfig) ([]kernelgo.Option, error) {
	compression, err := persistence.ParseCompression(ec.Compression)
	if err != nil {
		return nil, err
	}
	opts := []kernelgo.Option{
		kernelgo.WithMemoryLimit(ec.MemoryLimit),
		kernelgo.WithWorkers(ec.Workers, ec.Grain),
		kernelgo.WithCompression(compression),
		kernelgo.WithIOLimit(ec.IOLimit),
		kernelgo.WithBackgroundJobs(ec.BackgroundJobs),
	}
	if len(ec.HashKey) == 2 {
		opts = append(opts, kernelgo.WithHashKey(ec.HashKey[0], ec.HashKey[1]))
	}
	return opts, nil
}
