package hook

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

var (
	poolID    = common.HexToHash("0x01")
	outToken  = common.HexToAddress("0x0000000000000000000000000000000000000010")
	otherPool = common.HexToHash("0x02")
)

func TestNewFeeHook(t *testing.T) {
	if _, err := NewFeeHook(10_000); !errors.Is(err, ErrInvalidBps) {
		t.Fatalf("expected ErrInvalidBps, got %v", err)
	}
	h, err := NewFeeHook(30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Bps() != 30 {
		t.Fatalf("bps want=30 got=%d", h.Bps())
	}
}

func TestCutRoundsDown(t *testing.T) {
	h, err := NewFeeHook(30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 333 * 30 / 10000 floors to 0; 334 * 30 / 10000 floors to 1.
	tests := [][]uint64{
		{10_000, 30},
		{1_000_000, 3_000},
		{333, 0},
		{334, 1},
		{0, 0},
	}
	for _, tc := range tests {
		cut, err := h.Cut(ui.NewInt(tc[0]))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cut.Eq(ui.NewInt(tc[1])) {
			t.Fatalf("cut(%d) want=%d got=%v", tc[0], tc[1], cut)
		}
	}
}

func TestAccrueAndCollect(t *testing.T) {
	h, err := NewFeeHook(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := h.Accrue(poolID, outToken, ui.NewInt(10_000)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := h.Accrued(poolID, outToken); !got.Eq(ui.NewInt(300)) {
		t.Fatalf("accrued want=300 got=%v", got)
	}
	if got := h.Accrued(otherPool, outToken); !got.IsZero() {
		t.Fatalf("accrual leaked across pools: %v", got)
	}

	if got := h.Collect(poolID, outToken); !got.Eq(ui.NewInt(300)) {
		t.Fatalf("collect want=300 got=%v", got)
	}
	if got := h.Accrued(poolID, outToken); !got.IsZero() {
		t.Fatalf("accrual not zeroed after collect: %v", got)
	}
	if got := h.Collect(poolID, outToken); !got.IsZero() {
		t.Fatalf("second collect want=0 got=%v", got)
	}
}
