package mathutil

import (
	"math"
	"testing"
)

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c int64
		want    int64
	}{
		{"exact", 10, 6, 3, 20},
		{"floors", 10, 1, 3, 3},
		{"zero numerator", 0, 100, 7, 0},
		{"zero denominator", 5, 5, 0, 0},
		{"identity", 1_000_000, 42, 42, 1_000_000},
		{"proportional share", 3000, 4400, 4000, 3300},
		{"negative floors toward zero", -10, 1, 3, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MulDiv(tt.a, tt.b, tt.c); got != tt.want {
				t.Errorf("MulDiv(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
			}
		})
	}
}

// The intermediate a*b overflows int64; the 128-bit path must still get the
// exact quotient.
func TestMulDivLargeIntermediate(t *testing.T) {
	big := int64(math.MaxInt64 / 2)

	if got := MulDiv(big, 4, 2); got != 2*big {
		t.Errorf("MulDiv(%d, 4, 2) = %d, want %d", big, got, 2*big)
	}
	if got := MulDiv(big, big, big); got != big {
		t.Errorf("MulDiv(big, big, big) = %d, want %d", got, big)
	}
}

func TestMulDivCeil(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c int64
		want    int64
	}{
		{"exact does not round", 10, 6, 3, 20},
		{"rounds up", 10, 1, 3, 4},
		{"one off floor", 7, 7, 10, 5},
		{"zero denominator", 5, 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MulDivCeil(tt.a, tt.b, tt.c); got != tt.want {
				t.Errorf("MulDivCeil(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
			}
		})
	}
}

// Ceil never returns less than floor, and never more than floor+1.
func TestCeilBoundsFloor(t *testing.T) {
	cases := [][3]int64{
		{1000, 3, 7}, {999, 999, 1000}, {1, 1, 3}, {12345, 6789, 321},
	}
	for _, c := range cases {
		floor := MulDiv(c[0], c[1], c[2])
		ceil := MulDivCeil(c[0], c[1], c[2])
		if ceil < floor || ceil > floor+1 {
			t.Errorf("MulDivCeil(%d, %d, %d) = %d out of bounds for floor %d",
				c[0], c[1], c[2], ceil, floor)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(200, 25); got != 50 {
		t.Errorf("Percent(200, 25) = %d, want 50", got)
	}
	if got := Percent(100, 100); got != 100 {
		t.Errorf("Percent(100, 100) = %d, want 100", got)
	}
	if got := Percent(99, 1); got != 0 {
		t.Errorf("Percent(99, 1) = %d, want 0", got)
	}
}

func TestMin(t *testing.T) {
	if got := Min(3, 7); got != 3 {
		t.Errorf("Min(3, 7) = %d, want 3", got)
	}
	if got := Min(7, 3); got != 3 {
		t.Errorf("Min(7, 3) = %d, want 3", got)
	}
	if got := Min(-1, 1); got != -1 {
		t.Errorf("Min(-1, 1) = %d, want -1", got)
	}
}
