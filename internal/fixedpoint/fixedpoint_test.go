package fixedpoint

import (
	"errors"
	"fmt"
	"testing"

	ui "github.com/holiman/uint256"
)

func TestMulDiv(t *testing.T) {
	tests := [][]uint64{
		{0, 500, 1000000, 0},
		{1, 500, 1000000, 0},
		{500, 2000, 1000, 1000},
		{1000001, 1, 1000000, 1},
		{7, 9, 4, 15},
	}
	for _, arg := range tests {
		t.Run(fmt.Sprint(arg), func(t *testing.T) {
			result, err := MulDiv(ui.NewInt(arg[0]), ui.NewInt(arg[1]), ui.NewInt(arg[2]))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ui.NewInt(arg[3]).Cmp(result) != 0 {
				t.Fatalf("want=%v result=%v", arg[3], result)
			}
		})
	}
}

func TestMulDivRoundingUp(t *testing.T) {
	tests := [][]uint64{
		{0, 500, 1000000, 0},
		{1, 500, 1000000, 1},
		{1000000, 1, 1000000, 1},
		{1000001, 1, 1000000, 2},
		{7, 9, 4, 16},
	}
	for _, arg := range tests {
		t.Run(fmt.Sprint(arg), func(t *testing.T) {
			result, err := MulDivRoundingUp(ui.NewInt(arg[0]), ui.NewInt(arg[1]), ui.NewInt(arg[2]))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ui.NewInt(arg[3]).Cmp(result) != 0 {
				t.Fatalf("want=%v result=%v", arg[3], result)
			}
		})
	}
}

func TestMulDivFullPrecision(t *testing.T) {
	// a*b overflows 256 bits but the quotient fits.
	a := new(ui.Int).Lsh(One, 200)
	b := new(ui.Int).Lsh(One, 100)
	denom := new(ui.Int).Lsh(One, 150)

	result, err := MulDiv(a, b, denom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(ui.Int).Lsh(One, 150)
	if result.Cmp(want) != 0 {
		t.Fatalf("want=%v result=%v", want, result)
	}
}

func TestMulDivOverflow(t *testing.T) {
	a := new(ui.Int).Lsh(One, 200)
	if _, err := MulDiv(a, a, One); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestMulDivByZero(t *testing.T) {
	if _, err := MulDiv(One, One, new(ui.Int)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := MulDivRoundingUp(One, One, new(ui.Int)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := DivRoundingUp(One, new(ui.Int)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestDivRoundingUp(t *testing.T) {
	tests := [][]uint64{
		{0, 3, 0},
		{6, 3, 2},
		{7, 3, 3},
	}
	for _, arg := range tests {
		t.Run(fmt.Sprint(arg), func(t *testing.T) {
			result, err := DivRoundingUp(ui.NewInt(arg[0]), ui.NewInt(arg[1]))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ui.NewInt(arg[2]).Cmp(result) != 0 {
				t.Fatalf("want=%v result=%v", arg[2], result)
			}
		})
	}
}
