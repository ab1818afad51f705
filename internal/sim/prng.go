package sim

// Mulberry32 is the sole source of randomness in the simulation (spec
// §4.1). State is threaded explicitly through GameState.RNGState; there
// is no thread-local RNG and no system entropy anywhere in this package.
// The algorithm uses only 32-bit integer multiply/xor/shift, matching
// spec §9's float-determinism note that forbids anything that could
// produce different bits across platforms.

// NextRandom advances state and returns a value in [0, 1) plus the next
// state. Calling it with the same state always yields the same pair.
func NextRandom(state uint32) (float64, uint32) {
	state += 0x6D2B79F5
	t := state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	result := t ^ (t >> 14)
	return float64(result) / 4294967296.0, state
}

// IntRange returns a value in [min, max] inclusive plus the next state.
func IntRange(state uint32, min, max int) (int, uint32) {
	v, next := NextRandom(state)
	span := float64(max - min + 1)
	return min + int(v*span), next
}

// ShuffleIndices returns a Fisher-Yates shuffle of [0, n) threading the
// given rng state, used for map-order shuffling (spec §4.6).
func ShuffleIndices(n int, state uint32) ([]int, uint32) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := n - 1; i > 0; i-- {
		var j int
		j, state = IntRange(state, 0, i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx, state
}
