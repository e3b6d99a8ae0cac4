package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"pactd/config"
	"pactd/core/events"
	"pactd/native/agreement"
	"pactd/native/ledger"
	"pactd/observability/logging"
	"pactd/rpc"
	"pactd/storage"
)

func main() {
	configFile := flag.String("config", "./pactd.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("PACTD_ENV"))
	logger := logging.Setup("pactd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	holding, err := cfg.Holding()
	if err != nil {
		logger.Error("invalid holding address", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err), slog.String("dataDir", cfg.DataDir))
		os.Exit(1)
	}
	defer db.Close()

	book, err := ledger.NewKV(db)
	if err != nil {
		logger.Error("failed to initialise ledger", slog.Any("error", err))
		os.Exit(1)
	}
	registry, err := agreement.NewKVRegistry(db)
	if err != nil {
		logger.Error("failed to initialise registry", slog.Any("error", err))
		os.Exit(1)
	}
	recorder := events.NewRecorder(cfg.EventHistory)

	engine := agreement.NewEngine()
	engine.SetRegistry(registry)
	engine.SetLedger(book)
	engine.SetHoldingAccount(holding)
	engine.SetEmitter(recorder)

	server := rpc.NewServer(engine, recorder, logger)
	server.SetRateLimit(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	logger.Info("pactd ready",
		slog.String("rpcAddress", cfg.RPCAddress),
		slog.String("holding", cfg.HoldingAddress))
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
