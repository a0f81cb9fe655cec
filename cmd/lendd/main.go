package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lendledger/config"
	"lendledger/core"
	"lendledger/observability/logging"
	"lendledger/observability/otel"
	"lendledger/rpc"
	"lendledger/services/audit"
	"lendledger/storage"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config")
	genesisFlag := flag.String("genesis", "", "genesis time (RFC3339); defaults to process start")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.SetupWithFile(cfg.Service, cfg.Environment, logging.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: cfg.Service,
			Environment: cfg.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     otel.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
			Metrics:     true,
			Traces:      true,
		})
		if err != nil {
			logger.Error("telemetry init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", "err", err)
			}
		}()
	}

	db, err := openDatabase(cfg.Storage)
	if err != nil {
		logger.Error("open storage", "backend", cfg.Storage.Backend, "err", err)
		os.Exit(1)
	}

	genesis := time.Now()
	if *genesisFlag != "" {
		parsed, err := time.Parse(time.RFC3339, *genesisFlag)
		if err != nil {
			logger.Error("parse genesis time", "value", *genesisFlag, "err", err)
			os.Exit(1)
		}
		genesis = parsed
	}

	node := core.NewNode(db, cfg.Params(), core.NewBlockClock(genesis, core.DefaultBlockInterval), logger)
	defer node.Close()

	if cfg.Audit.Enabled {
		indexer, err := audit.Open(cfg.Audit.Path, logger)
		if err != nil {
			logger.Error("open audit indexer", "path", cfg.Audit.Path, "err", err)
			os.Exit(1)
		}
		defer indexer.Close()
		subID, ch := node.Subscribe(256)
		defer node.Unsubscribe(subID)
		go indexer.Run(ctx, ch)
		logger.Info("audit indexer running", "path", cfg.Audit.Path)
	}

	server := rpc.NewServer(node, logger, rpc.Config{
		JWTSecret:          cfg.RPC.JWTSecret,
		RateLimitPerMinute: cfg.RPC.RateLimitPerMinute,
	})
	httpServer := &http.Server{
		Addr:              cfg.RPC.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("rpc listening", "address", cfg.RPC.ListenAddress, "genesis", genesis.Format(time.RFC3339))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("rpc server failed", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("rpc shutdown failed", "err", err)
	}
}

func openDatabase(cfg config.StorageConfig) (storage.Database, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "memory":
		return storage.NewMemDB(), nil
	case "leveldb":
		return storage.NewLevelDB(cfg.Path)
	case "bolt":
		return storage.NewBoltDB(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
