package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"go.uber.org/zap"

	"ammLedger/internal/custody"
	"ammLedger/internal/liquidity"
	"ammLedger/internal/pool"
	"ammLedger/internal/position"
	"ammLedger/internal/tickmath"
)

// OpKind names a position operation within a batch.
type OpKind string

const (
	OpMint     OpKind = "mint"
	OpIncrease OpKind = "increase"
	OpDecrease OpKind = "decrease"
	OpCollect  OpKind = "collect"
)

// Operation is one position operation. Mint uses the tick range, desired
// amounts and owner; the other kinds reference an existing position ID.
type Operation struct {
	Kind OpKind

	TickLower      int
	TickUpper      int
	Amount0Desired *ui.Int
	Amount1Desired *ui.Int
	Owner          common.Address

	PositionID     uint64
	LiquidityDelta *ui.Int
}

// Batch is a set of operations against one pool, settled all-or-nothing.
// Net positive token deltas are debited from Sender; net negative deltas
// are paid out to Recipient.
type Batch struct {
	PoolID    common.Hash
	Sender    common.Address
	Recipient common.Address
	Deadline  time.Time
	Ops       []Operation
}

// TokenDelta is the signed net obligation of one operation: positive means
// the owner pays the pool, negative means the pool pays out.
type TokenDelta struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

func zeroDelta() TokenDelta {
	return TokenDelta{Amount0: new(big.Int), Amount1: new(big.Int)}
}

func (d TokenDelta) add(other TokenDelta) TokenDelta {
	return TokenDelta{
		Amount0: new(big.Int).Add(d.Amount0, other.Amount0),
		Amount1: new(big.Int).Add(d.Amount1, other.Amount1),
	}
}

// OpResult reports the effect of one operation.
type OpResult struct {
	Kind       OpKind
	PositionID uint64
	Liquidity  *ui.Int
	Delta      TokenDelta
}

// Result reports the effect of a settled batch.
type Result struct {
	Ops []OpResult
	Net TokenDelta
}

// batchState carries the cloned working set a batch mutates. Nothing in it
// is visible outside the batch until commit.
type batchState struct {
	pool      *pool.Pool
	positions map[uint64]*position.Position
	created   []*position.Position
	nextID    uint64
}

// Execute applies a batch atomically. Each operation sees the effects of
// the previous ones; a failure at any point, including settlement, leaves
// all pool, position and balance state exactly as before the call.
func (e *Engine) Execute(ctx context.Context, batch Batch) (*Result, error) {
	if len(batch.Ops) == 0 {
		return nil, ErrEmptyBatch
	}
	if !batch.Deadline.IsZero() && e.now().After(batch.Deadline) {
		return nil, ErrDeadlineExpired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if batch.Recipient == (common.Address{}) {
		batch.Recipient = batch.Sender
	}

	live, lock, err := e.lockPool(batch.PoolID)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	state := &batchState{
		pool:      live.Clone(),
		positions: make(map[uint64]*position.Position),
		nextID:    e.ledger.NextID(),
	}

	result := &Result{Net: zeroDelta()}
	for i, op := range batch.Ops {
		opResult, err := e.applyOp(state, batch, op)
		if err != nil {
			return nil, fmt.Errorf("op %d (%s): %w", i, op.Kind, err)
		}
		result.Ops = append(result.Ops, opResult)
		result.Net = result.Net.add(opResult.Delta)
	}

	plan, err := e.transferPlan(batch, result.Net)
	if err != nil {
		return nil, err
	}
	if err := e.custody.Apply(plan); err != nil {
		return nil, err
	}

	// Commit: swap the clone in and persist touched positions.
	e.mu.Lock()
	e.pools[batch.PoolID] = state.pool
	e.mu.Unlock()
	for _, p := range state.positions {
		e.ledger.Put(p)
	}
	for _, p := range state.created {
		e.ledger.Put(p)
	}

	e.logger.Info("batch settled",
		zap.String("pool", batch.PoolID.Hex()),
		zap.Int("ops", len(batch.Ops)),
		zap.String("net0", result.Net.Amount0.String()),
		zap.String("net1", result.Net.Amount1.String()),
	)
	return result, nil
}

func (e *Engine) applyOp(state *batchState, batch Batch, op Operation) (OpResult, error) {
	switch op.Kind {
	case OpMint:
		return e.applyMint(state, batch, op)
	case OpIncrease, OpDecrease, OpCollect:
		pos, err := e.workingPosition(state, batch, op.PositionID)
		if err != nil {
			return OpResult{}, err
		}
		switch op.Kind {
		case OpIncrease:
			return e.applyIncrease(state, pos, op)
		case OpDecrease:
			return e.applyDecrease(state, pos, op)
		default:
			return e.applyCollect(pos)
		}
	default:
		return OpResult{}, fmt.Errorf("engine: unknown op kind %q", op.Kind)
	}
}

// workingPosition fetches the batch-local clone of a position, checking
// that the batch sender owns it and that it belongs to the batch's pool.
func (e *Engine) workingPosition(state *batchState, batch Batch, id uint64) (*position.Position, error) {
	if pos, ok := state.positions[id]; ok {
		return pos, nil
	}
	for _, pos := range state.created {
		if pos.ID == id {
			// Minting for another owner is allowed; touching that
			// position afterwards is not.
			if pos.Owner != batch.Sender {
				return nil, ErrUnauthorized
			}
			return pos, nil
		}
	}

	live, err := e.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if live.Owner != batch.Sender {
		return nil, ErrUnauthorized
	}
	if live.PoolID != batch.PoolID {
		return nil, ErrPoolMismatch
	}
	pos := live.Clone()
	state.positions[id] = pos
	return pos, nil
}

// addLiquidity runs the shared mint/increase path: convert desired amounts
// to a liquidity delta, update pool and position, and charge the rounded-up
// amounts the owner must supply.
func (e *Engine) addLiquidity(state *batchState, pos *position.Position, op Operation) (*ui.Int, TokenDelta, error) {
	sqrtLower, err := tickmath.SqrtRatioAtTick(pos.TickLower)
	if err != nil {
		return nil, TokenDelta{}, err
	}
	sqrtUpper, err := tickmath.SqrtRatioAtTick(pos.TickUpper)
	if err != nil {
		return nil, TokenDelta{}, err
	}

	liq, err := liquidity.LiquidityForAmounts(state.pool.SqrtPriceX96, sqrtLower, sqrtUpper, op.Amount0Desired, op.Amount1Desired)
	if err != nil {
		return nil, TokenDelta{}, err
	}
	if liq.IsZero() {
		return nil, TokenDelta{}, ErrZeroLiquidity
	}

	if err := state.pool.ModifyLiquidity(pos.TickLower, pos.TickUpper, liq, true); err != nil {
		return nil, TokenDelta{}, err
	}
	inside0, inside1 := state.pool.FeeGrowthInside(pos.TickLower, pos.TickUpper)
	if err := pos.Update(liq, true, inside0, inside1); err != nil {
		return nil, TokenDelta{}, err
	}

	// Owed amounts round up: the pool never under-collects.
	amount0, amount1, err := liquidity.AmountsForLiquidity(state.pool.SqrtPriceX96, sqrtLower, sqrtUpper, liq, true)
	if err != nil {
		return nil, TokenDelta{}, err
	}
	delta := TokenDelta{Amount0: amount0.ToBig(), Amount1: amount1.ToBig()}
	return liq, delta, nil
}

func (e *Engine) applyMint(state *batchState, batch Batch, op Operation) (OpResult, error) {
	if err := state.pool.CheckTicks(op.TickLower, op.TickUpper); err != nil {
		return OpResult{}, err
	}

	owner := op.Owner
	if owner == (common.Address{}) {
		owner = batch.Sender
	}
	pos := position.New(state.nextID, state.pool.Key.ID(), owner, op.TickLower, op.TickUpper)
	state.nextID++

	liq, delta, err := e.addLiquidity(state, pos, op)
	if err != nil {
		return OpResult{}, err
	}
	state.created = append(state.created, pos)

	return OpResult{Kind: OpMint, PositionID: pos.ID, Liquidity: liq, Delta: delta}, nil
}

func (e *Engine) applyIncrease(state *batchState, pos *position.Position, op Operation) (OpResult, error) {
	liq, delta, err := e.addLiquidity(state, pos, op)
	if err != nil {
		return OpResult{}, err
	}
	return OpResult{Kind: OpIncrease, PositionID: pos.ID, Liquidity: liq, Delta: delta}, nil
}

func (e *Engine) applyDecrease(state *batchState, pos *position.Position, op Operation) (OpResult, error) {
	// Accrual must read the pre-modification tick state: a decrease that
	// empties a boundary tick clears its growth-outside snapshot, and
	// inside-growth computed after that clear is garbage.
	inside0, inside1 := state.pool.FeeGrowthInside(pos.TickLower, pos.TickUpper)
	if err := pos.Update(op.LiquidityDelta, false, inside0, inside1); err != nil {
		return OpResult{}, err
	}
	if err := state.pool.ModifyLiquidity(pos.TickLower, pos.TickUpper, op.LiquidityDelta, false); err != nil {
		return OpResult{}, err
	}

	sqrtLower, err := tickmath.SqrtRatioAtTick(pos.TickLower)
	if err != nil {
		return OpResult{}, err
	}
	sqrtUpper, err := tickmath.SqrtRatioAtTick(pos.TickUpper)
	if err != nil {
		return OpResult{}, err
	}

	// Returned amounts round down: the pool never over-pays.
	amount0, amount1, err := liquidity.AmountsForLiquidity(state.pool.SqrtPriceX96, sqrtLower, sqrtUpper, op.LiquidityDelta, false)
	if err != nil {
		return OpResult{}, err
	}

	delta := TokenDelta{
		Amount0: new(big.Int).Neg(amount0.ToBig()),
		Amount1: new(big.Int).Neg(amount1.ToBig()),
	}
	return OpResult{Kind: OpDecrease, PositionID: pos.ID, Liquidity: op.LiquidityDelta, Delta: delta}, nil
}

func (e *Engine) applyCollect(pos *position.Position) (OpResult, error) {
	amount0, amount1 := pos.Collect()
	delta := TokenDelta{
		Amount0: new(big.Int).Neg(amount0.ToBig()),
		Amount1: new(big.Int).Neg(amount1.ToBig()),
	}
	return OpResult{Kind: OpCollect, PositionID: pos.ID, Liquidity: new(ui.Int), Delta: delta}, nil
}

// transferPlan nets a batch's signed deltas into at most one transfer per
// token: payer to vault for net positive, vault to recipient for net
// negative.
func (e *Engine) transferPlan(batch Batch, net TokenDelta) ([]custody.Transfer, error) {
	var plan []custody.Transfer

	appendTransfer := func(token common.Address, amount *big.Int) error {
		if amount.Sign() == 0 {
			return nil
		}
		abs, overflow := ui.FromBig(new(big.Int).Abs(amount))
		if overflow {
			return fmt.Errorf("engine: net delta exceeds uint256: %s", amount)
		}
		if amount.Sign() > 0 {
			plan = append(plan, custody.Transfer{Token: token, From: batch.Sender, To: e.vault, Amount: abs})
		} else {
			plan = append(plan, custody.Transfer{Token: token, From: e.vault, To: batch.Recipient, Amount: abs})
		}
		return nil
	}

	e.mu.Lock()
	key := e.pools[batch.PoolID].Key
	e.mu.Unlock()

	if err := appendTransfer(key.Token0, net.Amount0); err != nil {
		return nil, err
	}
	if err := appendTransfer(key.Token1, net.Amount1); err != nil {
		return nil, err
	}
	return plan, nil
}
