// Package hook implements a swap-fee side channel: a fixed basis-point cut
// of swap output diverted into a standalone accrual pool, outside the LP
// fee-growth mechanism.
package hook

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"

	"ammLedger/internal/fixedpoint"
)

const bpsDenominator = 10_000

var ErrInvalidBps = errors.New("hook: cut must be below 10000 bps")

// FeeHook accrues a bps cut of swap output per pool and token.
type FeeHook struct {
	bps      uint64
	accruals map[common.Hash]map[common.Address]*ui.Int
}

func NewFeeHook(bps uint64) (*FeeHook, error) {
	if bps >= bpsDenominator {
		return nil, ErrInvalidBps
	}
	return &FeeHook{
		bps:      bps,
		accruals: make(map[common.Hash]map[common.Address]*ui.Int),
	}, nil
}

// Bps returns the configured cut in basis points.
func (h *FeeHook) Bps() uint64 { return h.bps }

// Cut returns the hook's share of a swap output amount, rounded down so the
// hook never takes more than its configured fraction.
func (h *FeeHook) Cut(amountOut *ui.Int) (*ui.Int, error) {
	return fixedpoint.MulDiv(amountOut, ui.NewInt(h.bps), ui.NewInt(bpsDenominator))
}

// Accrue credits the hook's cut of amountOut for a pool and output token,
// returning the amount diverted.
func (h *FeeHook) Accrue(poolID common.Hash, token common.Address, amountOut *ui.Int) (*ui.Int, error) {
	cut, err := h.Cut(amountOut)
	if err != nil {
		return nil, err
	}
	if cut.IsZero() {
		return cut, nil
	}
	perPool, ok := h.accruals[poolID]
	if !ok {
		perPool = make(map[common.Address]*ui.Int)
		h.accruals[poolID] = perPool
	}
	acc, ok := perPool[token]
	if !ok {
		acc = new(ui.Int)
		perPool[token] = acc
	}
	acc.Add(acc, cut)
	return cut, nil
}

// Accrued returns the pending accrual for a pool and token.
func (h *FeeHook) Accrued(poolID common.Hash, token common.Address) *ui.Int {
	if perPool, ok := h.accruals[poolID]; ok {
		if acc, ok := perPool[token]; ok {
			return acc.Clone()
		}
	}
	return new(ui.Int)
}

// Collect returns and zeroes the pending accrual for a pool and token.
func (h *FeeHook) Collect(poolID common.Hash, token common.Address) *ui.Int {
	perPool, ok := h.accruals[poolID]
	if !ok {
		return new(ui.Int)
	}
	acc, ok := perPool[token]
	if !ok {
		return new(ui.Int)
	}
	out := acc.Clone()
	acc.Clear()
	return out
}
