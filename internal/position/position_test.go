package position

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"

	"ammLedger/internal/fixedpoint"
)

var (
	testPool  = common.HexToHash("0x01")
	testOwner = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

// growth returns units * Q128 / denom, i.e. the accumulator value after
// distributing `units` tokens over `denom` liquidity.
func growth(units, denom uint64) *ui.Int {
	g := new(ui.Int).Mul(ui.NewInt(units), fixedpoint.Q128)
	return g.Div(g, ui.NewInt(denom))
}

func TestAccrueCreditsAtOldLiquidity(t *testing.T) {
	p := New(1, testPool, testOwner, -60, 60)
	if err := p.setLiquidity(ui.NewInt(1000), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1000 tokens distributed over 1000 liquidity: one token per unit.
	g1 := growth(1000, 1000)
	if err := p.Update(ui.NewInt(600), false, g1, new(ui.Int)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.TokensOwed0.Eq(ui.NewInt(1000)) {
		t.Fatalf("owed after first interval want=1000 got=%v", p.TokensOwed0)
	}
	if !p.Liquidity.Eq(ui.NewInt(400)) {
		t.Fatalf("liquidity want=400 got=%v", p.Liquidity)
	}

	// Another 400 tokens over the remaining 400 liquidity.
	g2 := new(ui.Int).Add(g1, growth(400, 400))
	if err := p.Accrue(g2, new(ui.Int)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.TokensOwed0.Eq(ui.NewInt(1400)) {
		t.Fatalf("owed after second interval want=1400 got=%v", p.TokensOwed0)
	}
}

func TestAccrueIdempotent(t *testing.T) {
	p := New(1, testPool, testOwner, -60, 60)
	if err := p.setLiquidity(ui.NewInt(500), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g := growth(500, 500)
	for i := 0; i < 3; i++ {
		if err := p.Accrue(g, g); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !p.TokensOwed0.Eq(ui.NewInt(500)) || !p.TokensOwed1.Eq(ui.NewInt(500)) {
		t.Fatalf("repeated accrual changed owed: %v/%v", p.TokensOwed0, p.TokensOwed1)
	}
}

func TestAccrueAcrossAccumulatorWrap(t *testing.T) {
	p := New(1, testPool, testOwner, -60, 60)
	if err := p.setLiquidity(ui.NewInt(1000), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Checkpoint near the top of the accumulator domain, current value just
	// past the wrap. The mod 2^256 difference is 6*Q128.
	last := new(ui.Int).Not(new(ui.Int))
	last.Sub(last, new(ui.Int).Mul(ui.NewInt(4), fixedpoint.Q128))
	last.AddUint64(last, 1)
	cur := new(ui.Int).Mul(ui.NewInt(6), fixedpoint.Q128)
	cur.Add(cur, last)

	p.FeeGrowthInside0LastX128.Set(last)
	if err := p.Accrue(cur, new(ui.Int)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.TokensOwed0.Eq(ui.NewInt(6000)) {
		t.Fatalf("owed across wrap want=6000 got=%v", p.TokensOwed0)
	}
}

func TestDecreaseBeyondLiquidity(t *testing.T) {
	p := New(1, testPool, testOwner, -60, 60)
	if err := p.setLiquidity(ui.NewInt(100), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := p.Update(ui.NewInt(101), false, new(ui.Int), new(ui.Int))
	if !errors.Is(err, ErrLiquidityExceeded) {
		t.Fatalf("expected ErrLiquidityExceeded, got %v", err)
	}
	// The failed decrease must not have touched liquidity.
	if !p.Liquidity.Eq(ui.NewInt(100)) {
		t.Fatalf("liquidity changed by failed decrease: %v", p.Liquidity)
	}
}

func TestCollect(t *testing.T) {
	p := New(1, testPool, testOwner, -60, 60)
	p.TokensOwed0.SetUint64(123)
	p.TokensOwed1.SetUint64(456)

	a0, a1 := p.Collect()
	if !a0.Eq(ui.NewInt(123)) || !a1.Eq(ui.NewInt(456)) {
		t.Fatalf("collect want=123/456 got=%v/%v", a0, a1)
	}

	// Second collect is a legal zero-effect call.
	a0, a1 = p.Collect()
	if !a0.IsZero() || !a1.IsZero() {
		t.Fatalf("second collect want=0/0 got=%v/%v", a0, a1)
	}
}

func TestLedger(t *testing.T) {
	l := NewLedger()

	p1 := l.Create(testPool, testOwner, -60, 60)
	p2 := l.Create(testPool, testOwner, -120, 120)
	if p1.ID != 1 || p2.ID != 2 {
		t.Fatalf("ids want=1,2 got=%d,%d", p1.ID, p2.ID)
	}
	if l.NextID() != 3 {
		t.Fatalf("next id want=3 got=%d", l.NextID())
	}

	owner, err := l.OwnerOf(p1.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != testOwner {
		t.Fatalf("owner want=%s got=%s", testOwner, owner)
	}

	if _, err := l.Get(99); !errors.Is(err, ErrUnknownPosition) {
		t.Fatalf("expected ErrUnknownPosition, got %v", err)
	}

	// Put of a staged clone bumps the sequence past its ID.
	staged := New(7, testPool, testOwner, 0, 60)
	l.Put(staged)
	if l.NextID() != 8 {
		t.Fatalf("next id after put want=8 got=%d", l.NextID())
	}
}
