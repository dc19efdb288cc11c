// Package runner streams a JSONL file of pool records through the engine:
// pool initializations, fee events and settlement batches in, settlement
// outcomes and state snapshots out.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammLedger/internal/engine"
	"ammLedger/internal/model"
	"ammLedger/internal/pool"
	"ammLedger/internal/storage"
)

// SnapshotStore persists pool and position snapshots plus settlement rows.
type SnapshotStore interface {
	UpsertPoolSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error
	UpsertPositionSnapshots(ctx context.Context, snapshots []model.PositionSnapshot) error
	InsertSettlements(ctx context.Context, records []model.SettlementRecord) error
}

// RunConfig holds runtime settings for the processing loop.
type RunConfig struct {
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	StateStore   *storage.FileStateStore
}

// Runner applies input records to the engine and flushes outcomes.
type Runner struct {
	cfg    RunConfig
	engine *engine.Engine
	sink   storage.SettlementSink
	store  SnapshotStore
	logger *zap.Logger
}

// NewRunner builds a Runner with its dependencies. store may be nil when no
// database is configured.
func NewRunner(cfg RunConfig, eng *engine.Engine, sink storage.SettlementSink, store SnapshotStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Runner{
		cfg:    cfg,
		engine: eng,
		sink:   sink,
		store:  store,
		logger: logger,
	}
}

// Run executes the processing loop over an input JSONL file.
func (r *Runner) Run(ctx context.Context, inputPath string) error {
	if r.engine == nil {
		return fmt.Errorf("engine is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("sink is nil")
	}

	var startSeq uint64
	if r.cfg.StateStore != nil {
		seq, ok, err := r.cfg.StateStore.Load()
		if err != nil {
			return err
		}
		if ok {
			startSeq = seq
			r.logger.Info("resume from state", zap.Uint64("last_processed_seq", seq))
		}
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	outcomes := make([]model.SettlementRecord, 0, r.cfg.BatchSize)
	var total, settled, rejected, skipped int
	lastSeq := startSeq

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.Record
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if record.Seq <= startSeq {
			skipped++
			continue
		}

		outcome, err := r.applyRecord(ctx, record)
		if err != nil {
			return fmt.Errorf("apply record seq %d: %w", record.Seq, err)
		}
		if outcome != nil {
			outcomes = append(outcomes, *outcome)
			if outcome.Status == model.StatusSettled {
				settled++
			} else {
				rejected++
			}
		}
		lastSeq = record.Seq

		if len(outcomes) >= r.cfg.BatchSize {
			if err := r.flush(ctx, outcomes, lastSeq); err != nil {
				return err
			}
			outcomes = outcomes[:0]
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if err := r.flush(ctx, outcomes, lastSeq); err != nil {
		return err
	}

	r.logger.Info("process complete",
		zap.Int("total", total),
		zap.Int("settled", settled),
		zap.Int("rejected", rejected),
		zap.Int("skipped", skipped),
	)
	return nil
}

// applyRecord dispatches one input record. Batch records yield a settlement
// outcome; a batch the engine rejects is recorded and processing continues.
func (r *Runner) applyRecord(ctx context.Context, record model.Record) (*model.SettlementRecord, error) {
	switch record.Kind {
	case model.KindInitPool:
		return nil, r.applyInitPool(record)
	case model.KindFund:
		return nil, r.applyFund(record)
	case model.KindSwap:
		return nil, r.applySwap(record)
	case model.KindDonate:
		return nil, r.applyDonate(record)
	case model.KindCollectTreasury:
		return nil, r.applyCollectTreasury(record)
	case model.KindCollectHook:
		return nil, r.applyCollectHook(record)
	case model.KindBatch:
		return r.applyBatch(ctx, record)
	default:
		return nil, fmt.Errorf("unknown record kind %q", record.Kind)
	}
}

func (r *Runner) applyInitPool(record model.Record) error {
	var payload model.InitPoolPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return fmt.Errorf("decode init_pool: %w", err)
	}

	token0, err := parseAddress(payload.Token0)
	if err != nil {
		return err
	}
	token1, err := parseAddress(payload.Token1)
	if err != nil {
		return err
	}
	sqrtPrice, err := parseAmount(payload.SqrtPriceX96)
	if err != nil {
		return err
	}

	p, err := r.engine.CreatePool(pool.Key{Token0: token0, Token1: token1, Fee: payload.Fee}, sqrtPrice)
	if err != nil {
		return err
	}
	r.logger.Debug("pool initialized", zap.String("pool", p.Key.ID().Hex()))
	return nil
}

func (r *Runner) applyFund(record model.Record) error {
	var payload model.FundPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return fmt.Errorf("decode fund: %w", err)
	}

	token, err := parseAddress(payload.Token)
	if err != nil {
		return err
	}
	account, err := parseAddress(payload.Account)
	if err != nil {
		return err
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		return err
	}

	r.engine.Custody().Credit(token, account, amount)
	return nil
}

func (r *Runner) applySwap(record model.Record) error {
	var payload model.SwapPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return fmt.Errorf("decode swap: %w", err)
	}

	poolID, err := parsePoolID(payload.Pool)
	if err != nil {
		return err
	}
	sqrtPrice, err := parseAmount(payload.SqrtPriceX96After)
	if err != nil {
		return err
	}
	fee0, err := parseAmount(payload.FeeAmount0)
	if err != nil {
		return err
	}
	fee1, err := parseAmount(payload.FeeAmount1)
	if err != nil {
		return err
	}
	amountOut, err := parseAmount(payload.AmountOut)
	if err != nil {
		return err
	}

	outToken := common.Address{}
	if payload.OutToken != "" {
		outToken, err = parseAddress(payload.OutToken)
		if err != nil {
			return err
		}
	}

	return r.engine.ApplySwapEvent(poolID, sqrtPrice, fee0, fee1, outToken, amountOut)
}

func (r *Runner) applyDonate(record model.Record) error {
	var payload model.DonatePayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return fmt.Errorf("decode donate: %w", err)
	}

	poolID, err := parsePoolID(payload.Pool)
	if err != nil {
		return err
	}
	amount0, err := parseAmount(payload.Amount0)
	if err != nil {
		return err
	}
	amount1, err := parseAmount(payload.Amount1)
	if err != nil {
		return err
	}

	return r.engine.ApplyDonation(poolID, amount0, amount1)
}

func (r *Runner) applyCollectTreasury(record model.Record) error {
	var payload model.CollectTreasuryPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return fmt.Errorf("decode collect_treasury: %w", err)
	}

	poolID, err := parsePoolID(payload.Pool)
	if err != nil {
		return err
	}
	recipient, err := parseAddress(payload.Recipient)
	if err != nil {
		return err
	}

	_, _, err = r.engine.CollectTreasury(poolID, recipient)
	return err
}

func (r *Runner) applyCollectHook(record model.Record) error {
	var payload model.CollectHookPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return fmt.Errorf("decode collect_hook: %w", err)
	}

	poolID, err := parsePoolID(payload.Pool)
	if err != nil {
		return err
	}
	token, err := parseAddress(payload.Token)
	if err != nil {
		return err
	}
	recipient, err := parseAddress(payload.Recipient)
	if err != nil {
		return err
	}

	_, err = r.engine.CollectHookFees(poolID, token, recipient)
	return err
}

func (r *Runner) applyBatch(ctx context.Context, record model.Record) (*model.SettlementRecord, error) {
	var payload model.BatchPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}

	batch, err := buildBatch(payload)
	if err != nil {
		return nil, err
	}

	outcome := &model.SettlementRecord{
		Seq:         record.Seq,
		Pool:        payload.Pool,
		Sender:      payload.Sender,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	result, err := r.engine.Execute(ctx, batch)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		outcome.Status = model.StatusRejected
		outcome.Error = err.Error()
		r.logger.Warn("batch rejected",
			zap.Uint64("seq", record.Seq),
			zap.String("pool", payload.Pool),
			zap.Error(err),
		)
		return outcome, nil
	}

	outcome.Status = model.StatusSettled
	outcome.Net0 = result.Net.Amount0.String()
	outcome.Net1 = result.Net.Amount1.String()
	for _, op := range result.Ops {
		outcome.Ops = append(outcome.Ops, model.OpOutcome{
			Kind:       string(op.Kind),
			PositionID: op.PositionID,
			Liquidity:  op.Liquidity.Dec(),
			Amount0:    op.Delta.Amount0.String(),
			Amount1:    op.Delta.Amount1.String(),
		})
	}
	return outcome, nil
}

func buildBatch(payload model.BatchPayload) (engine.Batch, error) {
	poolID, err := parsePoolID(payload.Pool)
	if err != nil {
		return engine.Batch{}, err
	}
	sender, err := parseAddress(payload.Sender)
	if err != nil {
		return engine.Batch{}, err
	}

	batch := engine.Batch{
		PoolID: poolID,
		Sender: sender,
	}
	if payload.Recipient != "" {
		recipient, err := parseAddress(payload.Recipient)
		if err != nil {
			return engine.Batch{}, err
		}
		batch.Recipient = recipient
	}
	if payload.Deadline > 0 {
		batch.Deadline = time.Unix(int64(payload.Deadline), 0)
	}

	for _, op := range payload.Ops {
		built, err := buildOp(op)
		if err != nil {
			return engine.Batch{}, err
		}
		batch.Ops = append(batch.Ops, built)
	}
	return batch, nil
}

func buildOp(payload model.OpPayload) (engine.Operation, error) {
	op := engine.Operation{
		Kind:       engine.OpKind(payload.Kind),
		TickLower:  payload.TickLower,
		TickUpper:  payload.TickUpper,
		PositionID: payload.PositionID,
	}

	var err error
	if op.Amount0Desired, err = parseAmount(payload.Amount0Desired); err != nil {
		return engine.Operation{}, err
	}
	if op.Amount1Desired, err = parseAmount(payload.Amount1Desired); err != nil {
		return engine.Operation{}, err
	}
	if op.LiquidityDelta, err = parseAmount(payload.LiquidityDelta); err != nil {
		return engine.Operation{}, err
	}
	if payload.Owner != "" {
		if op.Owner, err = parseAddress(payload.Owner); err != nil {
			return engine.Operation{}, err
		}
	}
	return op, nil
}

// flush writes buffered outcomes to the sink, mirrors them and fresh
// snapshots to the database when configured, and records progress.
func (r *Runner) flush(ctx context.Context, outcomes []model.SettlementRecord, lastSeq uint64) error {
	if len(outcomes) > 0 {
		if err := r.sink.PutSettlementBatch(outcomes); err != nil {
			return fmt.Errorf("write settlements: %w", err)
		}
	}

	if r.store != nil {
		if err := r.withRetry(ctx, func(ctx context.Context) error {
			if err := r.store.InsertSettlements(ctx, outcomes); err != nil {
				r.logger.Warn("insert settlements failed", zap.Error(err))
				return err
			}
			if err := r.store.UpsertPoolSnapshots(ctx, buildPoolSnapshots(r.engine)); err != nil {
				r.logger.Warn("upsert pool snapshots failed", zap.Error(err))
				return err
			}
			if err := r.store.UpsertPositionSnapshots(ctx, buildPositionSnapshots(r.engine)); err != nil {
				r.logger.Warn("upsert position snapshots failed", zap.Error(err))
				return err
			}
			return nil
		}); err != nil {
			return err
		}
	}

	if r.cfg.StateStore != nil && lastSeq > 0 {
		if err := r.cfg.StateStore.Save(lastSeq); err != nil {
			return err
		}
	}
	return nil
}
