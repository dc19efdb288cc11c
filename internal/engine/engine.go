// Package engine ties the accounting core together: it owns the pools and
// the position ledger, consumes externally observed fee and price events,
// and settles batches of position operations atomically.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"go.uber.org/zap"

	"ammLedger/internal/custody"
	"ammLedger/internal/hook"
	"ammLedger/internal/pool"
	"ammLedger/internal/position"
)

var (
	ErrDeadlineExpired = errors.New("engine: batch deadline expired")
	ErrUnauthorized    = errors.New("engine: caller does not own position")
	ErrUnknownPool     = errors.New("engine: unknown pool")
	ErrPoolMismatch    = errors.New("engine: position belongs to another pool")
	ErrZeroLiquidity   = errors.New("engine: operation yields zero liquidity")
	ErrEmptyBatch      = errors.New("engine: batch has no operations")
	ErrNoHook          = errors.New("engine: no fee hook configured")
)

// Engine is the settlement front end over the accounting core. All state
// behind a pool ID is guarded by that pool's lock; batches against the same
// pool never interleave.
type Engine struct {
	mu        sync.Mutex
	pools     map[common.Hash]*pool.Pool
	poolLocks map[common.Hash]*sync.Mutex

	ledger  *position.Ledger
	custody *custody.Ledger
	vault   common.Address
	feeHook *hook.FeeHook

	logger *zap.Logger
	now    func() time.Time
}

// New builds an engine. The fee hook is optional; vault is the custody
// account holding pool-owned funds.
func New(custodyLedger *custody.Ledger, vault common.Address, feeHook *hook.FeeHook, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		pools:     make(map[common.Hash]*pool.Pool),
		poolLocks: make(map[common.Hash]*sync.Mutex),
		ledger:    position.NewLedger(),
		custody:   custodyLedger,
		vault:     vault,
		feeHook:   feeHook,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the deadline clock.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Ledger exposes the position ledger for read paths (snapshots, owner
// lookups).
func (e *Engine) Ledger() *position.Ledger { return e.ledger }

// Custody exposes the balance ledger, used to seed payer accounts.
func (e *Engine) Custody() *custody.Ledger { return e.custody }

// Vault returns the custody account holding pool-owned funds.
func (e *Engine) Vault() common.Address { return e.vault }

// CreatePool initializes a pool at a starting sqrt price.
func (e *Engine) CreatePool(key pool.Key, sqrtPriceX96 *ui.Int) (*pool.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := key.ID()
	if _, ok := e.pools[id]; ok {
		return nil, pool.ErrAlreadyInitialized
	}
	p, err := pool.New(key, sqrtPriceX96)
	if err != nil {
		return nil, err
	}
	e.pools[id] = p
	e.poolLocks[id] = &sync.Mutex{}
	e.logger.Info("pool created",
		zap.String("pool", id.Hex()),
		zap.Uint32("fee", key.Fee),
		zap.Int("tick", p.Tick),
	)
	return p, nil
}

// Pool returns the live pool for an ID.
func (e *Engine) Pool(id common.Hash) (*pool.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pools[id]
	if !ok {
		return nil, ErrUnknownPool
	}
	return p, nil
}

// Pools returns every live pool.
func (e *Engine) Pools() []*pool.Pool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*pool.Pool, 0, len(e.pools))
	for _, p := range e.pools {
		out = append(out, p)
	}
	return out
}

func (e *Engine) lockPool(id common.Hash) (*pool.Pool, *sync.Mutex, error) {
	e.mu.Lock()
	p, ok := e.pools[id]
	if !ok {
		e.mu.Unlock()
		return nil, nil, ErrUnknownPool
	}
	lock := e.poolLocks[id]
	e.mu.Unlock()

	lock.Lock()
	return p, lock, nil
}

// ApplySwapEvent ingests a swap observed on the external pool engine: the
// hook takes its cut of the swap output first, LP fees are distributed over
// the liquidity that was active during the swap, and only then does the
// price move and cross ticks.
func (e *Engine) ApplySwapEvent(poolID common.Hash, sqrtPriceX96After, feeAmount0, feeAmount1 *ui.Int, outToken common.Address, amountOut *ui.Int) error {
	p, lock, err := e.lockPool(poolID)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	if e.feeHook != nil && amountOut != nil && !amountOut.IsZero() {
		cut, err := e.feeHook.Accrue(poolID, outToken, amountOut)
		if err != nil {
			return err
		}
		if !cut.IsZero() {
			e.logger.Debug("hook cut accrued",
				zap.String("pool", poolID.Hex()),
				zap.String("token", outToken.Hex()),
				zap.String("amount", cut.Dec()),
			)
		}
	}

	if err := p.OnFeeEvent(feeAmount0, feeAmount1); err != nil {
		return err
	}
	if sqrtPriceX96After != nil && !sqrtPriceX96After.IsZero() {
		if err := p.MoveToPrice(sqrtPriceX96After); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDonation ingests a donation fee event.
func (e *Engine) ApplyDonation(poolID common.Hash, amount0, amount1 *ui.Int) error {
	p, lock, err := e.lockPool(poolID)
	if err != nil {
		return err
	}
	defer lock.Unlock()
	return p.OnFeeEvent(amount0, amount1)
}

// CollectTreasury drains a pool's treasury accrual, paying it out of the
// vault to recipient. A failed payout restores the accrual.
func (e *Engine) CollectTreasury(poolID common.Hash, recipient common.Address) (amount0, amount1 *ui.Int, err error) {
	p, lock, err := e.lockPool(poolID)
	if err != nil {
		return nil, nil, err
	}
	defer lock.Unlock()

	amount0, amount1 = p.CollectTreasury()
	plan := []custody.Transfer{
		{Token: p.Key.Token0, From: e.vault, To: recipient, Amount: amount0},
		{Token: p.Key.Token1, From: e.vault, To: recipient, Amount: amount1},
	}
	if err := e.custody.Apply(plan); err != nil {
		p.TreasuryFees0.Add(p.TreasuryFees0, amount0)
		p.TreasuryFees1.Add(p.TreasuryFees1, amount1)
		return nil, nil, err
	}

	e.logger.Info("treasury collected",
		zap.String("pool", poolID.Hex()),
		zap.String("amount0", amount0.Dec()),
		zap.String("amount1", amount1.Dec()),
	)
	return amount0, amount1, nil
}

// CollectHookFees drains the hook accrual for a pool and token, paying it
// out of the vault to recipient.
func (e *Engine) CollectHookFees(poolID common.Hash, token, recipient common.Address) (*ui.Int, error) {
	if e.feeHook == nil {
		return nil, ErrNoHook
	}
	_, lock, err := e.lockPool(poolID)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	amount := e.feeHook.Accrued(poolID, token)
	if amount.IsZero() {
		return amount, nil
	}
	if err := e.custody.Apply([]custody.Transfer{
		{Token: token, From: e.vault, To: recipient, Amount: amount},
	}); err != nil {
		return nil, err
	}

	e.logger.Info("hook fees collected",
		zap.String("pool", poolID.Hex()),
		zap.String("token", token.Hex()),
		zap.String("amount", amount.Dec()),
	)
	return e.feeHook.Collect(poolID, token), nil
}
