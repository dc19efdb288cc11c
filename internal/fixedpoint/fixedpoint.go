// Package fixedpoint provides full-precision mulDiv arithmetic on 256-bit
// unsigned integers with an explicit rounding direction per call.
//
// Rounding is always chosen in the pool's favor: amounts a position owner
// must supply are rounded up, amounts paid out are rounded down.
package fixedpoint

import (
	"errors"

	ui "github.com/holiman/uint256"
)

var (
	ErrOverflow       = errors.New("fixedpoint: mulDiv overflow")
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
)

var (
	One        = ui.NewInt(1)
	Q96        = new(ui.Int).Lsh(One, 96)
	Q128       = new(ui.Int).Lsh(One, 128)
	MaxUint128 = new(ui.Int).SubUint64(new(ui.Int).Lsh(One, 128), 1)
	MaxUint256 = new(ui.Int).Not(new(ui.Int))
)

// MulDiv returns floor(a*b/denominator) using a 512-bit intermediate product.
func MulDiv(a, b, denominator *ui.Int) (*ui.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivisionByZero
	}
	result, overflow := new(ui.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return nil, ErrOverflow
	}
	return result, nil
}

// MulDivRoundingUp returns ceil(a*b/denominator).
func MulDivRoundingUp(a, b, denominator *ui.Int) (*ui.Int, error) {
	result, err := MulDiv(a, b, denominator)
	if err != nil {
		return nil, err
	}
	rem := new(ui.Int).MulMod(a, b, denominator)
	if !rem.IsZero() {
		if result.Eq(MaxUint256) {
			return nil, ErrOverflow
		}
		result.Add(result, One)
	}
	return result, nil
}

// DivRoundingUp returns ceil(a/denominator).
func DivRoundingUp(a, denominator *ui.Int) (*ui.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivisionByZero
	}
	result := new(ui.Int).Div(a, denominator)
	rem := new(ui.Int).Mod(a, denominator)
	if !rem.IsZero() {
		result.Add(result, One)
	}
	return result, nil
}
