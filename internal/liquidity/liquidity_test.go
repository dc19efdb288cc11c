package liquidity

import (
	"errors"
	"testing"

	ui "github.com/holiman/uint256"

	"ammLedger/internal/fixedpoint"
	"ammLedger/internal/tickmath"
)

func mustRatio(t *testing.T, tick int) *ui.Int {
	t.Helper()
	r, err := tickmath.SqrtRatioAtTick(tick)
	if err != nil {
		t.Fatalf("ratio at tick %d: %v", tick, err)
	}
	return r
}

func TestAddDelta(t *testing.T) {
	sum, err := AddDelta(ui.NewInt(100), ui.NewInt(40), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.Eq(ui.NewInt(140)) {
		t.Fatalf("want=140 got=%v", sum)
	}

	diff, err := AddDelta(ui.NewInt(100), ui.NewInt(40), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !diff.Eq(ui.NewInt(60)) {
		t.Fatalf("want=60 got=%v", diff)
	}

	if _, err := AddDelta(ui.NewInt(100), ui.NewInt(101), false); !errors.Is(err, ErrLiquidityUnderflow) {
		t.Fatalf("expected ErrLiquidityUnderflow, got %v", err)
	}
	if _, err := AddDelta(fixedpoint.MaxUint128, ui.NewInt(1), true); !errors.Is(err, ErrLiquidityOverflow) {
		t.Fatalf("expected ErrLiquidityOverflow, got %v", err)
	}
}

func TestAmount1DeltaExact(t *testing.T) {
	// sqrtB - sqrtA = Q96, so amount1 = liquidity exactly.
	a := fixedpoint.Q96
	b := new(ui.Int).Lsh(fixedpoint.Q96, 1)
	liq := ui.NewInt(1_000_000)

	for _, roundUp := range []bool{false, true} {
		got, err := Amount1Delta(a, b, liq, roundUp)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Cmp(liq) != 0 {
			t.Fatalf("roundUp=%v want=%v got=%v", roundUp, liq, got)
		}
	}
}

func TestAmount0DeltaRounding(t *testing.T) {
	// liquidity 1 over [Q96, 2*Q96) spans exactly half a unit of token0.
	a := fixedpoint.Q96
	b := new(ui.Int).Lsh(fixedpoint.Q96, 1)
	liq := ui.NewInt(1)

	down, err := Amount0Delta(a, b, liq, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !down.IsZero() {
		t.Fatalf("floor want=0 got=%v", down)
	}

	up, err := Amount0Delta(a, b, liq, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !up.Eq(ui.NewInt(1)) {
		t.Fatalf("ceil want=1 got=%v", up)
	}
}

func TestLiquidityForAmount1Exact(t *testing.T) {
	a := fixedpoint.Q96
	b := new(ui.Int).Lsh(fixedpoint.Q96, 1)

	liq, err := LiquidityForAmount1(a, b, ui.NewInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !liq.Eq(ui.NewInt(1000)) {
		t.Fatalf("want=1000 got=%v", liq)
	}
}

func TestLiquidityAmountsRoundTrip(t *testing.T) {
	price := mustRatio(t, 0)
	lower := mustRatio(t, -600)
	upper := mustRatio(t, 600)
	amount0 := ui.NewInt(1_000_000)
	amount1 := ui.NewInt(1_000_000)

	liq, err := LiquidityForAmounts(price, lower, upper, amount0, amount1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if liq.IsZero() {
		t.Fatal("expected nonzero liquidity")
	}

	got0, got1, err := AmountsForLiquidity(price, lower, upper, liq, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got0.Cmp(amount0) > 0 || got1.Cmp(amount1) > 0 {
		t.Fatalf("floor amounts %v/%v exceed supplied %v/%v", got0, got1, amount0, amount1)
	}

	up0, up1, err := AmountsForLiquidity(price, lower, upper, liq, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up0.Cmp(got0) < 0 || up1.Cmp(got1) < 0 {
		t.Fatalf("ceil amounts %v/%v below floor amounts %v/%v", up0, up1, got0, got1)
	}
}

func TestAmountsForLiquidityOutOfRange(t *testing.T) {
	lower := mustRatio(t, -600)
	upper := mustRatio(t, 600)
	liq := ui.NewInt(1_000_000)

	// Price below the range holds only token0.
	below := mustRatio(t, -1200)
	a0, a1, err := AmountsForLiquidity(below, lower, upper, liq, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a0.IsZero() || !a1.IsZero() {
		t.Fatalf("below range want token0 only, got %v/%v", a0, a1)
	}

	// Price above the range holds only token1.
	above := mustRatio(t, 1200)
	a0, a1, err = AmountsForLiquidity(above, lower, upper, liq, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a0.IsZero() || a1.IsZero() {
		t.Fatalf("above range want token1 only, got %v/%v", a0, a1)
	}
}
