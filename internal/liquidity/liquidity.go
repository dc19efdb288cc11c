// Package liquidity converts between the abstract liquidity unit and token
// amounts over a sqrt price range.
//
// Amount helpers take an explicit roundUp flag; callers round up for
// amounts owed to the pool and down for amounts paid out, so rounding loss
// always lands on the position owner and never on pool solvency.
package liquidity

import (
	"errors"

	ui "github.com/holiman/uint256"

	"ammLedger/internal/fixedpoint"
)

var (
	ErrLiquidityUnderflow = errors.New("liquidity: delta exceeds recorded liquidity")
	ErrLiquidityOverflow  = errors.New("liquidity: result exceeds uint128")
)

// AddDelta applies a signed liquidity delta to an unsigned uint128 value.
// It fails instead of wrapping when the delta would underflow or push the
// result past uint128.
func AddDelta(x *ui.Int, delta *ui.Int, add bool) (*ui.Int, error) {
	if !add {
		if x.Cmp(delta) < 0 {
			return nil, ErrLiquidityUnderflow
		}
		return new(ui.Int).Sub(x, delta), nil
	}
	sum := new(ui.Int).Add(x, delta)
	if sum.Cmp(fixedpoint.MaxUint128) > 0 {
		return nil, ErrLiquidityOverflow
	}
	return sum, nil
}

// Amount0Delta returns the amount of token0 spanned by liquidity between two
// sqrt ratios: liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB), scaled out of
// Q96.
func Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liq *ui.Int, roundUp bool) (*ui.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return nil, fixedpoint.ErrDivisionByZero
	}

	numerator1 := new(ui.Int).Lsh(liq, 96)
	numerator2 := new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		inner, err := fixedpoint.MulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96)
		if err != nil {
			return nil, err
		}
		return fixedpoint.DivRoundingUp(inner, sqrtRatioAX96)
	}

	inner, err := fixedpoint.MulDiv(numerator1, numerator2, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	return inner.Div(inner, sqrtRatioAX96), nil
}

// Amount1Delta returns the amount of token1 spanned by liquidity between two
// sqrt ratios: liquidity * (sqrtB - sqrtA) / Q96.
func Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liq *ui.Int, roundUp bool) (*ui.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	diff := new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return fixedpoint.MulDivRoundingUp(liq, diff, fixedpoint.Q96)
	}
	return fixedpoint.MulDiv(liq, diff, fixedpoint.Q96)
}

// LiquidityForAmount0 returns the maximum liquidity fundable with amount0
// between two sqrt ratios.
func LiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0 *ui.Int) (*ui.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	intermediate, err := fixedpoint.MulDiv(sqrtRatioAX96, sqrtRatioBX96, fixedpoint.Q96)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(amount0, intermediate, new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
}

// LiquidityForAmount1 returns the maximum liquidity fundable with amount1
// between two sqrt ratios.
func LiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1 *ui.Int) (*ui.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	return fixedpoint.MulDiv(amount1, fixedpoint.Q96, new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
}

// LiquidityForAmounts returns the maximum liquidity obtainable without
// exceeding either supplied amount, branching on whether the current price
// sits below, within, or above the range.
func LiquidityForAmounts(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1 *ui.Int) (*ui.Int, error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	switch {
	case sqrtRatioX96.Cmp(sqrtRatioAX96) <= 0:
		return LiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0)
	case sqrtRatioX96.Cmp(sqrtRatioBX96) < 0:
		liq0, err := LiquidityForAmount0(sqrtRatioX96, sqrtRatioBX96, amount0)
		if err != nil {
			return nil, err
		}
		liq1, err := LiquidityForAmount1(sqrtRatioAX96, sqrtRatioX96, amount1)
		if err != nil {
			return nil, err
		}
		if liq0.Cmp(liq1) < 0 {
			return liq0, nil
		}
		return liq1, nil
	default:
		return LiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1)
	}
}

// AmountsForLiquidity returns the token amounts spanned by a liquidity value
// over a range at the current price. roundUp is true when the amounts will
// be owed to the pool (mint, increase) and false when they will be paid out
// (decrease).
func AmountsForLiquidity(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, liq *ui.Int, roundUp bool) (amount0, amount1 *ui.Int, err error) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	switch {
	case sqrtRatioX96.Cmp(sqrtRatioAX96) <= 0:
		amount0, err = Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liq, roundUp)
		if err != nil {
			return nil, nil, err
		}
		amount1 = new(ui.Int)
	case sqrtRatioX96.Cmp(sqrtRatioBX96) < 0:
		amount0, err = Amount0Delta(sqrtRatioX96, sqrtRatioBX96, liq, roundUp)
		if err != nil {
			return nil, nil, err
		}
		amount1, err = Amount1Delta(sqrtRatioAX96, sqrtRatioX96, liq, roundUp)
		if err != nil {
			return nil, nil, err
		}
	default:
		amount0 = new(ui.Int)
		amount1, err = Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liq, roundUp)
		if err != nil {
			return nil, nil, err
		}
	}
	return amount0, amount1, nil
}
