package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ammLedger/internal/config"
	"ammLedger/internal/custody"
	"ammLedger/internal/engine"
	"ammLedger/internal/hook"
	"ammLedger/internal/runner"
	"ammLedger/internal/storage"
	"ammLedger/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "ammledger",
		Short:        "AMM liquidity-position accounting engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Process a JSONL stream of pool events and settlement batches",
		RunE:  runProcess,
	}

	processCmd.Flags().String("in", "", "input records JSONL")
	processCmd.Flags().String("out", "./data/settlements.jsonl", "output settlements JSONL")
	processCmd.Flags().String("pg-dsn", "", "Postgres DSN for snapshot persistence")
	processCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	processCmd.Flags().Int("batch-size", 1000, "outcomes per storage flush")
	processCmd.Flags().Uint64("hook-bps", 0, "swap-output fee hook cut in basis points")
	processCmd.Flags().String("vault", "0x0000000000000000000000000000000000000001", "custody vault address")
	processCmd.Flags().Int("max-retries", 5, "maximum retry attempts for storage writes")
	processCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	processCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(processCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runProcess(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if !common.IsHexAddress(cfg.Vault) {
		return fmt.Errorf("invalid vault address: %q", cfg.Vault)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var feeHook *hook.FeeHook
	if cfg.HookBps > 0 {
		feeHook, err = hook.NewFeeHook(cfg.HookBps)
		if err != nil {
			return err
		}
	}

	eng := engine.New(custody.NewLedger(), common.HexToAddress(cfg.Vault), feeHook, logger)
	sink := storage.NewJsonlSink(cfg.Out)

	var store runner.SnapshotStore
	if cfg.PgDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		store = pgStore
	}

	var stateStore *storage.FileStateStore
	if cfg.StateFile != "" {
		stateStore = &storage.FileStateStore{Path: cfg.StateFile}
	}

	run := runner.NewRunner(runner.RunConfig{
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		StateStore:   stateStore,
	}, eng, sink, store, logger)

	logger.Info("process start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("hook_bps", cfg.HookBps),
		zap.Bool("postgres", cfg.PgDSN != ""),
	)

	return run.Run(ctx, cfg.In)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
