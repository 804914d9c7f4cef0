package game

import "math"

// MassToRadius converts mass to radius. Every stored radius is derived from
// this function so the two never drift apart.
func MassToRadius(mass float64) float64 {
	return math.Sqrt(mass) * RadiusFactor
}

// Overlaps reports whether two circles are within tolerance*(ar+br) of each
// other, centre to centre. Squared distances avoid the sqrt.
func Overlaps(ax, ay, ar, bx, by, br, tolerance float64) bool {
	dx := bx - ax
	dy := by - ay
	reach := tolerance * (ar + br)
	return dx*dx+dy*dy <= reach*reach
}

// Decay applies one decay step and never drops below floor.
func Decay(mass, rate, floor float64) float64 {
	return math.Max(mass*rate, floor)
}

// Normalize returns the unit vector of (dx, dy). ok is false for vectors
// shorter than MinDirectionLength or with non-finite components.
func Normalize(dx, dy float64) (nx, ny float64, ok bool) {
	length := math.Hypot(dx, dy)
	if math.IsNaN(length) || math.IsInf(length, 0) || length < MinDirectionLength {
		return 0, 0, false
	}
	return dx / length, dy / length, true
}

// Clamp bounds v to [lo, hi]. When the range is inverted (an entity wider
// than the world) the midpoint is returned.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SplitOffset is how far from the parent a freshly split half is placed.
func SplitOffset(halfMass float64) float64 {
	return MassToRadius(halfMass) * SplitOffsetFactor
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
