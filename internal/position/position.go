// Package position tracks per-position liquidity and fee accrual
// checkpoints.
//
// A position snapshots the pool's in-range fee growth at every touch; the
// difference against the current accumulators, scaled by the liquidity that
// was active over the interval, is credited to tokensOwed. Accrual must
// always run before a liquidity change so that growth is credited at the
// old liquidity.
package position

import (
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"

	"ammLedger/internal/fixedpoint"
)

// Position is a single concentrated-liquidity position on a tick range.
type Position struct {
	ID        uint64
	PoolID    common.Hash
	Owner     common.Address
	TickLower int
	TickUpper int

	Liquidity                *ui.Int
	FeeGrowthInside0LastX128 *ui.Int
	FeeGrowthInside1LastX128 *ui.Int
	TokensOwed0              *ui.Int
	TokensOwed1              *ui.Int
}

// New returns an empty position anchored to a pool and tick range.
func New(id uint64, poolID common.Hash, owner common.Address, tickLower, tickUpper int) *Position {
	return &Position{
		ID:                       id,
		PoolID:                   poolID,
		Owner:                    owner,
		TickLower:                tickLower,
		TickUpper:                tickUpper,
		Liquidity:                new(ui.Int),
		FeeGrowthInside0LastX128: new(ui.Int),
		FeeGrowthInside1LastX128: new(ui.Int),
		TokensOwed0:              new(ui.Int),
		TokensOwed1:              new(ui.Int),
	}
}

// Clone returns a deep copy, used for all-or-nothing batch application.
func (p *Position) Clone() *Position {
	return &Position{
		ID:                       p.ID,
		PoolID:                   p.PoolID,
		Owner:                    p.Owner,
		TickLower:                p.TickLower,
		TickUpper:                p.TickUpper,
		Liquidity:                p.Liquidity.Clone(),
		FeeGrowthInside0LastX128: p.FeeGrowthInside0LastX128.Clone(),
		FeeGrowthInside1LastX128: p.FeeGrowthInside1LastX128.Clone(),
		TokensOwed0:              p.TokensOwed0.Clone(),
		TokensOwed1:              p.TokensOwed1.Clone(),
	}
}

// Accrue credits fee growth since the last checkpoint to tokensOwed and
// moves the checkpoint forward. The accumulator subtraction is performed
// mod 2^256, so accrual stays correct across an accumulator wrap. Calling
// Accrue twice with unchanged accumulators credits zero the second time.
func (p *Position) Accrue(feeGrowthInside0X128, feeGrowthInside1X128 *ui.Int) error {
	delta0 := new(ui.Int).Sub(feeGrowthInside0X128, p.FeeGrowthInside0LastX128)
	delta1 := new(ui.Int).Sub(feeGrowthInside1X128, p.FeeGrowthInside1LastX128)

	owed0, err := fixedpoint.MulDiv(delta0, p.Liquidity, fixedpoint.Q128)
	if err != nil {
		return err
	}
	owed1, err := fixedpoint.MulDiv(delta1, p.Liquidity, fixedpoint.Q128)
	if err != nil {
		return err
	}

	p.TokensOwed0.Add(p.TokensOwed0, owed0)
	p.TokensOwed1.Add(p.TokensOwed1, owed1)
	p.FeeGrowthInside0LastX128.Set(feeGrowthInside0X128)
	p.FeeGrowthInside1LastX128.Set(feeGrowthInside1X128)
	return nil
}

// Update accrues pending fees at the current liquidity and then applies a
// liquidity delta. The accrue-then-set order is load-bearing: growth between
// the last checkpoint and now belongs to the old liquidity.
func (p *Position) Update(liquidityDelta *ui.Int, add bool, feeGrowthInside0X128, feeGrowthInside1X128 *ui.Int) error {
	if err := p.Accrue(feeGrowthInside0X128, feeGrowthInside1X128); err != nil {
		return err
	}
	return p.setLiquidity(liquidityDelta, add)
}

func (p *Position) setLiquidity(delta *ui.Int, add bool) error {
	if !add && p.Liquidity.Cmp(delta) < 0 {
		return ErrLiquidityExceeded
	}
	if add {
		next := new(ui.Int).Add(p.Liquidity, delta)
		if next.Cmp(fixedpoint.MaxUint128) > 0 {
			return fixedpoint.ErrOverflow
		}
		p.Liquidity.Set(next)
		return nil
	}
	p.Liquidity.Sub(p.Liquidity, delta)
	return nil
}

// Collect returns the owed amounts and zeroes them. Collecting a position
// with nothing owed is a legal zero-effect call, never an error.
func (p *Position) Collect() (amount0, amount1 *ui.Int) {
	amount0 = p.TokensOwed0.Clone()
	amount1 = p.TokensOwed1.Clone()
	p.TokensOwed0.Clear()
	p.TokensOwed1.Clear()
	return amount0, amount1
}

// Empty reports whether the position carries no liquidity and no owed fees.
func (p *Position) Empty() bool {
	return p.Liquidity.IsZero() && p.TokensOwed0.IsZero() && p.TokensOwed1.IsZero()
}
