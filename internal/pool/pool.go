// Package pool maintains per-pool global state: current sqrt price and
// tick, active liquidity, the fee-growth-per-unit-liquidity accumulators,
// and the sparse per-tick bookkeeping needed to compute fee growth inside
// an arbitrary tick range.
//
// Fee-growth accumulators are Q128 counters that may wrap mod 2^256; all
// range arithmetic on them is difference-based and wraparound-safe.
package pool

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	ui "github.com/holiman/uint256"

	"ammLedger/internal/fixedpoint"
	"ammLedger/internal/liquidity"
	"ammLedger/internal/tickmath"
)

var (
	ErrInvalidTickRange   = errors.New("pool: tick lower must be below tick upper")
	ErrTickNotSpaced      = errors.New("pool: tick not aligned to spacing")
	ErrUnknownFeeTier     = errors.New("pool: unknown fee tier")
	ErrAlreadyInitialized = errors.New("pool: already initialized")
)

// tickSpacings maps fee tier (hundredths of a bip) to tick spacing.
var tickSpacings = map[uint32]int{
	100:   1,
	500:   10,
	3000:  60,
	10000: 200,
}

// Key identifies a pool by its ordered token pair and fee tier.
type Key struct {
	Token0 common.Address
	Token1 common.Address
	Fee    uint32
}

// ID returns the 32-byte pool identifier derived from the key.
func (k Key) ID() common.Hash {
	var buf [44]byte
	copy(buf[0:20], k.Token0.Bytes())
	copy(buf[20:40], k.Token1.Bytes())
	buf[40] = byte(k.Fee >> 24)
	buf[41] = byte(k.Fee >> 16)
	buf[42] = byte(k.Fee >> 8)
	buf[43] = byte(k.Fee)
	return crypto.Keccak256Hash(buf[:])
}

// TickInfo is the per-boundary bookkeeping for an initialized tick.
// LiquidityNet is stored two's-complement in a uint256: positive net is
// added when the price crosses the tick upward, subtracted downward.
type TickInfo struct {
	LiquidityGross        *ui.Int
	LiquidityNet          *ui.Int
	FeeGrowthOutside0X128 *ui.Int
	FeeGrowthOutside1X128 *ui.Int
}

func newTickInfo() *TickInfo {
	return &TickInfo{
		LiquidityGross:        new(ui.Int),
		LiquidityNet:          new(ui.Int),
		FeeGrowthOutside0X128: new(ui.Int),
		FeeGrowthOutside1X128: new(ui.Int),
	}
}

func (t *TickInfo) clone() *TickInfo {
	return &TickInfo{
		LiquidityGross:        t.LiquidityGross.Clone(),
		LiquidityNet:          t.LiquidityNet.Clone(),
		FeeGrowthOutside0X128: t.FeeGrowthOutside0X128.Clone(),
		FeeGrowthOutside1X128: t.FeeGrowthOutside1X128.Clone(),
	}
}

// Pool is the accounting state for one pool.
type Pool struct {
	Key         Key
	TickSpacing int

	SqrtPriceX96 *ui.Int
	Tick         int

	// Liquidity is the total liquidity of positions whose range contains
	// the current tick.
	Liquidity *ui.Int

	FeeGrowthGlobal0X128 *ui.Int
	FeeGrowthGlobal1X128 *ui.Int

	// TreasuryFees hold fee revenue that arrived while no liquidity was in
	// range. Distributing it over zero liquidity is impossible, and
	// dropping it would be a value leak, so it accrues to the protocol
	// treasury instead.
	TreasuryFees0 *ui.Int
	TreasuryFees1 *ui.Int

	ticks map[int]*TickInfo
}

// New initializes a pool at a starting sqrt price.
func New(key Key, sqrtPriceX96 *ui.Int) (*Pool, error) {
	spacing, ok := tickSpacings[key.Fee]
	if !ok {
		return nil, ErrUnknownFeeTier
	}
	tick, err := tickmath.TickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return nil, err
	}
	return &Pool{
		Key:                  key,
		TickSpacing:          spacing,
		SqrtPriceX96:         sqrtPriceX96.Clone(),
		Tick:                 tick,
		Liquidity:            new(ui.Int),
		FeeGrowthGlobal0X128: new(ui.Int),
		FeeGrowthGlobal1X128: new(ui.Int),
		TreasuryFees0:        new(ui.Int),
		TreasuryFees1:        new(ui.Int),
		ticks:                make(map[int]*TickInfo),
	}, nil
}

// Clone deep-copies the pool, used for all-or-nothing batch application.
func (p *Pool) Clone() *Pool {
	ticks := make(map[int]*TickInfo, len(p.ticks))
	for idx, info := range p.ticks {
		ticks[idx] = info.clone()
	}
	return &Pool{
		Key:                  p.Key,
		TickSpacing:          p.TickSpacing,
		SqrtPriceX96:         p.SqrtPriceX96.Clone(),
		Tick:                 p.Tick,
		Liquidity:            p.Liquidity.Clone(),
		FeeGrowthGlobal0X128: p.FeeGrowthGlobal0X128.Clone(),
		FeeGrowthGlobal1X128: p.FeeGrowthGlobal1X128.Clone(),
		TreasuryFees0:        p.TreasuryFees0.Clone(),
		TreasuryFees1:        p.TreasuryFees1.Clone(),
		ticks:                ticks,
	}
}

// CheckTicks validates a position range against the pool's tick domain and
// spacing.
func (p *Pool) CheckTicks(tickLower, tickUpper int) error {
	if tickLower >= tickUpper {
		return ErrInvalidTickRange
	}
	if tickLower < tickmath.MinTick || tickUpper > tickmath.MaxTick {
		return tickmath.ErrTickOutOfBounds
	}
	if tickLower%p.TickSpacing != 0 || tickUpper%p.TickSpacing != 0 {
		return fmt.Errorf("%w: spacing %d", ErrTickNotSpaced, p.TickSpacing)
	}
	return nil
}

// ModifyLiquidity applies a liquidity delta to a tick range: both boundary
// ticks are updated, and active liquidity changes when the current tick is
// inside the range.
func (p *Pool) ModifyLiquidity(tickLower, tickUpper int, delta *ui.Int, add bool) error {
	if err := p.CheckTicks(tickLower, tickUpper); err != nil {
		return err
	}
	if delta.IsZero() {
		return nil
	}

	if err := p.updateTick(tickLower, delta, add, false); err != nil {
		return err
	}
	if err := p.updateTick(tickUpper, delta, add, true); err != nil {
		return err
	}

	if tickLower <= p.Tick && p.Tick < tickUpper {
		next, err := liquidity.AddDelta(p.Liquidity, delta, add)
		if err != nil {
			return err
		}
		p.Liquidity = next
	}
	return nil
}

func (p *Pool) updateTick(tick int, delta *ui.Int, add, upper bool) error {
	info, ok := p.ticks[tick]
	if !ok {
		info = newTickInfo()
		// Initialize growth-outside to the current globals when the tick
		// is at or below the current price, the convention that makes the
		// inside-range difference start at zero for a fresh boundary.
		if tick <= p.Tick {
			info.FeeGrowthOutside0X128.Set(p.FeeGrowthGlobal0X128)
			info.FeeGrowthOutside1X128.Set(p.FeeGrowthGlobal1X128)
		}
		p.ticks[tick] = info
	}

	gross, err := liquidity.AddDelta(info.LiquidityGross, delta, add)
	if err != nil {
		return err
	}
	info.LiquidityGross = gross

	// Net is signed: lower boundaries gain liquidity upward, upper
	// boundaries shed it.
	if add != upper {
		info.LiquidityNet.Add(info.LiquidityNet, delta)
	} else {
		info.LiquidityNet.Sub(info.LiquidityNet, delta)
	}

	if info.LiquidityGross.IsZero() {
		delete(p.ticks, tick)
	}
	return nil
}

// OnFeeEvent distributes fee revenue across currently active liquidity by
// bumping the global accumulators. Revenue arriving while nothing is in
// range goes to the treasury accruals instead of being dropped.
func (p *Pool) OnFeeEvent(amount0, amount1 *ui.Int) error {
	if p.Liquidity.IsZero() {
		p.TreasuryFees0.Add(p.TreasuryFees0, amount0)
		p.TreasuryFees1.Add(p.TreasuryFees1, amount1)
		return nil
	}

	if !amount0.IsZero() {
		growth0, err := fixedpoint.MulDiv(amount0, fixedpoint.Q128, p.Liquidity)
		if err != nil {
			return err
		}
		p.FeeGrowthGlobal0X128.Add(p.FeeGrowthGlobal0X128, growth0)
	}
	if !amount1.IsZero() {
		growth1, err := fixedpoint.MulDiv(amount1, fixedpoint.Q128, p.Liquidity)
		if err != nil {
			return err
		}
		p.FeeGrowthGlobal1X128.Add(p.FeeGrowthGlobal1X128, growth1)
	}
	return nil
}

// CollectTreasury returns and zeroes the treasury accruals.
func (p *Pool) CollectTreasury() (amount0, amount1 *ui.Int) {
	amount0 = p.TreasuryFees0.Clone()
	amount1 = p.TreasuryFees1.Clone()
	p.TreasuryFees0.Clear()
	p.TreasuryFees1.Clear()
	return amount0, amount1
}

// FeeGrowthInside returns the fee growth accumulated strictly inside a tick
// range, as the global accumulator minus growth below the lower boundary
// and above the upper one. All subtractions wrap mod 2^256.
func (p *Pool) FeeGrowthInside(tickLower, tickUpper int) (inside0, inside1 *ui.Int) {
	lower := p.tickOrZero(tickLower)
	upper := p.tickOrZero(tickUpper)

	below0, below1 := new(ui.Int), new(ui.Int)
	if p.Tick >= tickLower {
		below0.Set(lower.FeeGrowthOutside0X128)
		below1.Set(lower.FeeGrowthOutside1X128)
	} else {
		below0.Sub(p.FeeGrowthGlobal0X128, lower.FeeGrowthOutside0X128)
		below1.Sub(p.FeeGrowthGlobal1X128, lower.FeeGrowthOutside1X128)
	}

	above0, above1 := new(ui.Int), new(ui.Int)
	if p.Tick < tickUpper {
		above0.Set(upper.FeeGrowthOutside0X128)
		above1.Set(upper.FeeGrowthOutside1X128)
	} else {
		above0.Sub(p.FeeGrowthGlobal0X128, upper.FeeGrowthOutside0X128)
		above1.Sub(p.FeeGrowthGlobal1X128, upper.FeeGrowthOutside1X128)
	}

	inside0 = new(ui.Int).Sub(new(ui.Int).Sub(p.FeeGrowthGlobal0X128, below0), above0)
	inside1 = new(ui.Int).Sub(new(ui.Int).Sub(p.FeeGrowthGlobal1X128, below1), above1)
	return inside0, inside1
}

var zeroTick = newTickInfo()

func (p *Pool) tickOrZero(tick int) *TickInfo {
	if info, ok := p.ticks[tick]; ok {
		return info
	}
	return zeroTick
}

// MoveToPrice applies an externally observed price update, crossing every
// initialized tick between the old and new tick so the growth-outside
// snapshots and active liquidity stay consistent.
func (p *Pool) MoveToPrice(sqrtPriceX96 *ui.Int) error {
	newTick, err := tickmath.TickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return err
	}

	if newTick > p.Tick {
		for _, tick := range p.initializedTicksIn(p.Tick+1, newTick) {
			if err := p.crossTick(tick, true); err != nil {
				return err
			}
		}
	} else if newTick < p.Tick {
		crossed := p.initializedTicksIn(newTick+1, p.Tick)
		for i := len(crossed) - 1; i >= 0; i-- {
			if err := p.crossTick(crossed[i], false); err != nil {
				return err
			}
		}
	}

	p.Tick = newTick
	p.SqrtPriceX96.Set(sqrtPriceX96)
	return nil
}

// initializedTicksIn returns initialized tick indexes in [from, to],
// ascending. The tick set is sparse, so this walks the map rather than the
// index space.
func (p *Pool) initializedTicksIn(from, to int) []int {
	var out []int
	for tick := range p.ticks {
		if tick >= from && tick <= to {
			out = append(out, tick)
		}
	}
	sort.Ints(out)
	return out
}

// crossTick flips a boundary's growth-outside snapshots and applies its
// signed net liquidity in the crossing direction.
func (p *Pool) crossTick(tick int, upward bool) error {
	info, ok := p.ticks[tick]
	if !ok {
		return nil
	}
	info.FeeGrowthOutside0X128.Sub(p.FeeGrowthGlobal0X128, info.FeeGrowthOutside0X128)
	info.FeeGrowthOutside1X128.Sub(p.FeeGrowthGlobal1X128, info.FeeGrowthOutside1X128)

	next := new(ui.Int)
	if upward {
		next.Add(p.Liquidity, info.LiquidityNet)
	} else {
		next.Sub(p.Liquidity, info.LiquidityNet)
	}
	// LiquidityNet is two's complement; a wrapped result past uint128 means
	// the net books are inconsistent.
	if next.Cmp(fixedpoint.MaxUint128) > 0 {
		return liquidity.ErrLiquidityUnderflow
	}
	p.Liquidity = next
	return nil
}

// InitializedTickCount reports how many tick boundaries carry liquidity.
func (p *Pool) InitializedTickCount() int {
	return len(p.ticks)
}
