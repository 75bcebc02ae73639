package engine

// ParlayMultiplier returns the size bonus for a parlay of n legs, in basis
// points. This is a fixed lookup, not a formula; settlement and previews
// must agree on the breakpoints. Capped at 1.25x for ten or more legs.
func ParlayMultiplier(n int) uint64 {
	switch {
	case n <= 1:
		return 10000 // 1.00x
	case n == 2:
		return 10500 // 1.05x
	case n == 3:
		return 11000 // 1.10x
	case n == 4:
		return 11300 // 1.13x
	case n == 5:
		return 11600 // 1.16x
	case n == 6:
		return 11900 // 1.19x
	case n == 7:
		return 12100 // 1.21x
	case n == 8:
		return 12300 // 1.23x
	case n == 9:
		return 12400 // 1.24x
	default:
		return 12500 // 1.25x
	}
}
