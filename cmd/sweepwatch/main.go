package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweepwatch/internal/config"
	"sweepwatch/internal/ethereum"
	"sweepwatch/internal/ethereum/stub"
	"sweepwatch/internal/observability"
	"sweepwatch/internal/storage"
	chstore "sweepwatch/internal/storage/clickhouse"
	"sweepwatch/internal/storage/memory"
	"sweepwatch/internal/storage/migrations"
	pgstore "sweepwatch/internal/storage/postgres"
	"sweepwatch/internal/watcher"
)

// Exit codes. A supervisor restarting the process on exitTransport gets a
// fresh connection and empty queues, which is the designed recovery path.
const (
	exitConfig    = 1
	exitTransport = 2
)

func main() {
	logger := log.New(os.Stdout, "[sweepwatch] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Printf("Configuration error: %v", err)
		os.Exit(exitConfig)
	}

	// Flags override environment
	rpcEndpoint := flag.String("rpc-endpoint", cfg.RPCEndpoint, "Ethereum JSON-RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", cfg.WSEndpoint, "Ethereum WebSocket endpoint")
	watchAddress := flag.String("watch", cfg.WatchAddress, "Account to monitor and sweep from")
	destAddress := flag.String("dest", cfg.DestinationAddress, "Account to sweep funds to")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL DSN for the sweep ledger (empty to disable)")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse DSN for the detection archive (empty to disable)")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address (empty to disable)")
	queueCapacity := flag.Int("queue-capacity", cfg.QueueCapacity, "Ingest queue capacity")
	dustWei := flag.String("dust-wei", watcher.DefaultDustThreshold.String(), "Minimum balance worth sweeping, in wei")
	useMemory := flag.Bool("use-memory", false, "Use in-memory stores instead of PostgreSQL/ClickHouse")
	dryRun := flag.Bool("dry-run", false, "Run against a scripted stub chain instead of a live node")

	flag.Parse()

	cfg.RPCEndpoint = *rpcEndpoint
	cfg.WSEndpoint = *wsEndpoint
	cfg.WatchAddress = *watchAddress
	cfg.DestinationAddress = *destAddress
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickhouseDSN = *clickhouseDSN
	cfg.MetricsAddr = *metricsAddr
	cfg.QueueCapacity = *queueCapacity

	if *dryRun {
		applyDryRunDefaults(cfg)
	}
	if err := cfg.Validate(); err != nil {
		logger.Printf("Configuration error: %v", err)
		os.Exit(exitConfig)
	}

	dust, ok := new(big.Int).SetString(*dustWei, 10)
	if !ok || dust.Sign() < 0 {
		logger.Printf("Configuration error: invalid -dust-wei value %q", *dustWei)
		os.Exit(exitConfig)
	}

	// Start metrics server if enabled
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()

	sweepStore, detectionStore, cleanupStores, err := buildStores(ctx, cfg, *useMemory || *dryRun)
	if err != nil {
		logger.Printf("Storage error: %v", err)
		os.Exit(exitConfig)
	}
	defer cleanupStores()

	var client watcher.ChainClient
	var source watcher.PendingSource

	if *dryRun {
		stubClient := buildStubChain(cfg.WatchAddress)
		client = stubClient
		source = stubClient
		logger.Printf("Dry run: using scripted stub chain")
	} else {
		client = ethereum.NewHTTPClient(cfg.RPCEndpoint,
			ethereum.WithSigner(cfg.WatchAddress, cfg.AccountPassphrase))

		wsClient, err := ethereum.NewWSClient(ctx, cfg.WSEndpoint, nil)
		if err != nil {
			logger.Printf("WebSocket error: %v", err)
			os.Exit(exitConfig)
		}
		defer wsClient.Close()
		source = wsClient
	}

	ingest := watcher.NewQueue(cfg.QueueCapacity)
	triggers := watcher.NewQueue(0)

	fetcher := watcher.NewFetcher(client)

	sweeperOpts := []watcher.SweeperOption{watcher.WithDustThreshold(dust)}
	if sweepStore != nil {
		sweeperOpts = append(sweeperOpts, watcher.WithSweepStore(sweepStore))
	}
	sweeper := watcher.NewSweeper(triggers, client, cfg.WatchAddress, cfg.DestinationAddress, sweeperOpts...)

	var detectorOpts []watcher.DetectorOption
	if detectionStore != nil {
		detectorOpts = append(detectorOpts, watcher.WithDetectionStore(detectionStore))
	}
	detector := watcher.NewDetector(ingest, fetcher, triggers, sweeper, cfg.WatchAddress, detectorOpts...)

	runner := watcher.NewRunner(source, ingest, detector, sweeper)

	logger.Printf("Watching %s, sweeping to %s", cfg.WatchAddress, cfg.DestinationAddress)
	err = runner.Run(ctx)

	switch {
	case errors.Is(err, watcher.ErrTransportClosed):
		logger.Printf("Fatal: %v", err)
		os.Exit(exitTransport)
	case err != nil && !errors.Is(err, context.Canceled):
		logger.Printf("Fatal: %v", err)
		os.Exit(1)
	}

	logger.Println("Shutdown complete")
}

// buildStores wires the optional sweep ledger and detection archive.
func buildStores(ctx context.Context, cfg *config.Config, useMemory bool) (storage.SweepStore, storage.DetectionStore, func(), error) {
	if useMemory {
		return memory.NewSweepStore(), memory.NewDetectionStore(), func() {}, nil
	}

	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	var sweepStore storage.SweepStore
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, cleanup, err
		}
		cleanups = append(cleanups, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, nil, cleanup, err
		}
		sweepStore = pgstore.NewSweepStore(pool)
	}

	var detectionStore storage.DetectionStore
	if cfg.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, nil, cleanup, err
		}
		cleanups = append(cleanups, func() { conn.Close() })

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return nil, nil, cleanup, err
		}
		detectionStore = chstore.NewDetectionStore(conn)
	}

	return sweepStore, detectionStore, cleanup, nil
}

// applyDryRunDefaults fills required settings a stub chain does not need.
func applyDryRunDefaults(cfg *config.Config) {
	if cfg.RPCEndpoint == "" {
		cfg.RPCEndpoint = "stub://rpc"
	}
	if cfg.WSEndpoint == "" {
		cfg.WSEndpoint = "stub://ws"
	}
	if cfg.WatchAddress == "" {
		cfg.WatchAddress = "0x00000000000000000000000000000000000WATCH"
	}
	if cfg.DestinationAddress == "" {
		cfg.DestinationAddress = "0x000000000000000000000000000000000000DEST"
	}
	if cfg.AccountPassphrase == "" {
		cfg.AccountPassphrase = "dry-run"
	}
}

// buildStubChain scripts a stub client with one incoming transfer and one
// unrelated transaction.
func buildStubChain(watch string) *stub.Client {
	client := stub.NewClient()

	// 1 ETH balance, 10 gwei gas price
	client.SetBalance(new(big.Int).Mul(big.NewInt(1), big.NewInt(1_000_000_000_000_000_000)))
	client.SetGasPrice(big.NewInt(10_000_000_000))

	client.AddTransaction(&ethereum.Transaction{
		Hash:  "0xincoming000000000000000000000000000000000000000000000000000000aa",
		From:  "0x0000000000000000000000000000000000sender",
		To:    watch,
		Value: new(big.Int).Mul(big.NewInt(5), big.NewInt(100_000_000_000_000_000)),
	})
	client.AddTransaction(&ethereum.Transaction{
		Hash:  "0xunrelated000000000000000000000000000000000000000000000000000bb",
		From:  "0x0000000000000000000000000000000000sender",
		To:    "0x0000000000000000000000000000000000other0",
		Value: big.NewInt(1),
	})

	return client
}
