package tickmath

import (
	"errors"
	"fmt"
	"testing"

	ui "github.com/holiman/uint256"

	"ammLedger/internal/fixedpoint"
)

func TestSqrtRatioAtTickAnchors(t *testing.T) {
	tests := []struct {
		tick int
		want *ui.Int
	}{
		{MinTick, MinSqrtRatio},
		{0, fixedpoint.Q96},
		{MaxTick, MaxSqrtRatio},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.tick), func(t *testing.T) {
			got, err := SqrtRatioAtTick(tc.tick)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Cmp(tc.want) != 0 {
				t.Fatalf("tick=%d want=%v got=%v", tc.tick, tc.want, got)
			}
		})
	}
}

func TestSqrtRatioAtTickOutOfBounds(t *testing.T) {
	for _, tick := range []int{MinTick - 1, MaxTick + 1} {
		if _, err := SqrtRatioAtTick(tick); !errors.Is(err, ErrTickOutOfBounds) {
			t.Fatalf("tick=%d expected ErrTickOutOfBounds, got %v", tick, err)
		}
	}
}

func TestSqrtRatioAtTickMonotonic(t *testing.T) {
	ticks := []int{MinTick, -500000, -887, -60, -1, 0, 1, 60, 887, 500000, MaxTick}
	prev, err := SqrtRatioAtTick(ticks[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tick := range ticks[1:] {
		cur, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick=%d unexpected error: %v", tick, err)
		}
		if cur.Cmp(prev) <= 0 {
			t.Fatalf("tick=%d ratio %v not above previous %v", tick, cur, prev)
		}
		prev = cur
	}
}

func TestTickAtSqrtRatioRoundTrip(t *testing.T) {
	ticks := []int{MinTick, -100000, -6932, -60, -1, 0, 1, 60, 6932, 100000, MaxTick - 1}
	for _, tick := range ticks {
		t.Run(fmt.Sprint(tick), func(t *testing.T) {
			ratio, err := SqrtRatioAtTick(tick)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := TickAtSqrtRatio(ratio)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tick {
				t.Fatalf("want=%d got=%d", tick, got)
			}
		})
	}
}

func TestTickAtSqrtRatioBetweenTicks(t *testing.T) {
	// Any ratio strictly between tick 0 and tick 1 resolves to tick 0.
	ratio := new(ui.Int).AddUint64(fixedpoint.Q96, 1000)
	got, err := TickAtSqrtRatio(ratio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("want=0 got=%d", got)
	}
}

func TestTickAtSqrtRatioBounds(t *testing.T) {
	got, err := TickAtSqrtRatio(MinSqrtRatio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != MinTick {
		t.Fatalf("want=%d got=%d", MinTick, got)
	}

	below := new(ui.Int).SubUint64(MinSqrtRatio, 1)
	if _, err := TickAtSqrtRatio(below); !errors.Is(err, ErrSqrtRatioOutOfBounds) {
		t.Fatalf("expected ErrSqrtRatioOutOfBounds, got %v", err)
	}
	// The max ratio itself is exclusive.
	if _, err := TickAtSqrtRatio(MaxSqrtRatio); !errors.Is(err, ErrSqrtRatioOutOfBounds) {
		t.Fatalf("expected ErrSqrtRatioOutOfBounds, got %v", err)
	}
}
