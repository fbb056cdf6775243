// Command auctiond serves escrow auctions over TCP or vsock.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/host"
	"github.com/cloudx-io/escrowauction/store"
)

const shutdownTimeout = 5 * time.Second

// Logger builds a production zap logger at level.
func Logger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	cfg.Level.SetLevel(lvl)

	return cfg.Build()
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}

func run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	db, err := store.Open(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()
	logger.Info("store opened", zap.String("backend", cfg.StoreBackend), zap.String("path", cfg.StorePath))

	h, err := host.New(db,
		host.WithLogger(logger.Named("host")),
		host.WithAddressCodec(core.NewAddressCodec(cfg.AddressPrefix)),
		host.WithCacheSize(cfg.CacheSize),
	)
	if err != nil {
		return errors.Wrap(err, "create host")
	}

	if cfg.MetricsAddr != "" {
		metrics := serveMetrics(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = metrics.Shutdown(shutdownCtx)
		}()
	}

	listener, err := Listen(cfg)
	if err != nil {
		return err
	}
	return NewServer(h, cfg, logger.Named("server")).Serve(ctx, listener)
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "auctiond: %v\n", err)
		os.Exit(1)
	}

	logger, err := Logger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auctiond: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("auctiond stopped", zap.Error(err))
	}
	logger.Info("auctiond stopped")
}
