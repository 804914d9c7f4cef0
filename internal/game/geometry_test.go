package game

import (
	"math"
	"testing"
)

func TestMassToRadius(t *testing.T) {
	tests := []struct {
		mass float64
		want float64
	}{
		{100, 20},
		{25, 10},
		{0, 0},
		{200, math.Sqrt(200) * 2},
	}

	for _, tt := range tests {
		if got := MassToRadius(tt.mass); got != tt.want {
			t.Errorf("MassToRadius(%v) = %v, want %v", tt.mass, got, tt.want)
		}
	}

	if MassToRadius(101) <= MassToRadius(100) {
		t.Error("MassToRadius should be monotonic")
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                   string
		ax, ay, ar, bx, by, br float64
		tolerance              float64
		want                   bool
	}{
		{"same centre", 0, 0, 1, 0, 0, 1, 1, true},
		{"touching", 0, 0, 5, 10, 0, 5, 1, true},
		{"just apart", 0, 0, 5, 10.01, 0, 5, 1, false},
		{"tolerance reaches", 0, 0, 5, 20, 0, 5, 2, true},
		{"tolerance exceeded", 0, 0, 5, 20.01, 0, 5, 2, false},
		{"diagonal", 0, 0, 5, 3, 4, 0, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(tt.ax, tt.ay, tt.ar, tt.bx, tt.by, tt.br, tt.tolerance)
			if got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecay(t *testing.T) {
	if got := Decay(200, 0.5, 100); got != 100 {
		t.Errorf("Decay(200, 0.5, 100) = %v, want 100", got)
	}
	if got := Decay(200, 0.5, 50); got != 100 {
		t.Errorf("Decay(200, 0.5, 50) = %v, want 100", got)
	}
	if got := Decay(100.1, MassDecayRate, BaseMass); got != BaseMass {
		t.Errorf("Decay should floor at %v, got %v", BaseMass, got)
	}
}

func TestNormalize(t *testing.T) {
	nx, ny, ok := Normalize(3, 4)
	if !ok || !approxEqual(nx, 0.6) || !approxEqual(ny, 0.8) {
		t.Errorf("Normalize(3,4) = (%v,%v,%v), want (0.6,0.8,true)", nx, ny, ok)
	}

	for _, v := range [][2]float64{{0, 0}, {0.0005, 0}, {math.NaN(), 1}, {math.Inf(1), 0}} {
		if _, _, ok := Normalize(v[0], v[1]); ok {
			t.Errorf("Normalize(%v,%v) should be rejected", v[0], v[1])
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{5, 8, 2, 5}, // inverted range returns midpoint
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v,%v,%v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestSplitOffset(t *testing.T) {
	if got, want := SplitOffset(100), 50.0; got != want {
		t.Errorf("SplitOffset(100) = %v, want %v", got, want)
	}
}
