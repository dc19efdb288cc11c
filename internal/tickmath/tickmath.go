// Package tickmath converts between tick indexes and Q64.96 sqrt prices.
// A tick i maps to sqrt(1.0001^i) * 2^96; the mapping is monotonically
// increasing over the supported tick domain.
package tickmath

import (
	"errors"

	ui "github.com/holiman/uint256"
)

const (
	// MinTick is the lowest tick supported on any pool.
	MinTick = -887272
	// MaxTick is the highest tick supported on any pool.
	MaxTick = -MinTick
)

var (
	ErrTickOutOfBounds      = errors.New("tickmath: tick out of bounds")
	ErrSqrtRatioOutOfBounds = errors.New("tickmath: sqrt ratio out of bounds")
)

var (
	// MinSqrtRatio is the sqrt ratio at MinTick.
	MinSqrtRatio = ui.NewInt(4295128739)
	// MaxSqrtRatio is the sqrt ratio at MaxTick.
	MaxSqrtRatio = mustFromDecimal("1461446703485210103287273052203988822378723970342")

	maxUint256 = new(ui.Int).Not(new(ui.Int))
	q32        = ui.NewInt(1 << 32)
)

// sqrt(1.0001^-(2^i)) * 2^128 for i = 0..19, multiplied in per set bit of
// the tick's absolute value.
var ratioMagic = [20]*ui.Int{
	mustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
	mustFromHex("0xfff97272373d413259a46990580e213a"),
	mustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	mustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	mustFromHex("0xffcb9843d60f6159c9db58835c926644"),
	mustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
	mustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
	mustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
	mustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	mustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
	mustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
	mustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
	mustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	mustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
	mustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
	mustFromHex("0x31be135f97d08fd981231505542fcfa6"),
	mustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	mustFromHex("0x5d6af8dedb81196699c329225ee604"),
	mustFromHex("0x2216e584f5fa1ea926041bedfe98"),
	mustFromHex("0x48a170391f7dc42444e8fa2"),
}

func mustFromHex(s string) *ui.Int {
	v, err := ui.FromHex(s)
	if err != nil {
		panic(err)
	}
	return v
}

func mustFromDecimal(s string) *ui.Int {
	v, err := ui.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) * 2^96 as a Q64.96 value.
func SqrtRatioAtTick(tick int) (*ui.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrTickOutOfBounds
	}

	absTick := tick
	if tick < 0 {
		absTick = -tick
	}

	ratio := new(ui.Int).Lsh(ui.NewInt(1), 128)
	if absTick&0x1 != 0 {
		ratio.Set(ratioMagic[0])
	}
	for i := 1; i < len(ratioMagic); i++ {
		if absTick&(1<<i) != 0 {
			ratio.Rsh(ratio.Mul(ratio, ratioMagic[i]), 128)
		}
	}

	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Round up on the Q128 -> Q96 conversion so the inverse mapping below
	// always satisfies SqrtRatioAtTick(TickAtSqrtRatio(p)) <= p.
	if !new(ui.Int).Mod(ratio, q32).IsZero() {
		return ratio.AddUint64(ratio.Rsh(ratio, 32), 1), nil
	}
	return ratio.Rsh(ratio, 32), nil
}

// TickAtSqrtRatio returns the greatest tick whose sqrt ratio is less than
// or equal to sqrtRatioX96.
func TickAtSqrtRatio(sqrtRatioX96 *ui.Int) (int, error) {
	if sqrtRatioX96.Cmp(MinSqrtRatio) < 0 || sqrtRatioX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, ErrSqrtRatioOutOfBounds
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		ratio, err := SqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Cmp(sqrtRatioX96) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}
