package bucketstore

import "golang.org/x/exp/constraints"

// home returns the ideal slot for a feature hash: hash mod numBuckets.
func home(hash, numBuckets uint32) uint32 {
	return hash % numBuckets
}

// ringDistance returns the forward linear-probe distance from `from` to
// `to` around a ring of size `mod`, wrapping at `mod`. Both probe-chain
// membership (§4.1 invariant) and microgroom's "distance from home"
// policy (§4.1 step 4) are expressed in terms of this single notion of
// distance, generalized over the unsigned integer types used for slot
// indices and bucket counts in the two call sites.
func ringDistance[T constraints.Unsigned](from, to, mod T) T {
	if mod == 0 {
		return 0
	}

	if to >= from {
		return to - from
	}

	return mod - from + to
}

// ringAdd returns (pos + delta) mod `mod`.
func ringAdd[T constraints.Unsigned](pos, delta, mod T) T {
	if mod == 0 {
		return 0
	}

	return (pos + delta) % mod
}

// ringSub returns (pos - delta) mod `mod`, wrapping backward.
func ringSub[T constraints.Unsigned](pos, delta, mod T) T {
	if mod == 0 {
		return 0
	}

	delta %= mod

	if pos >= delta {
		return pos - delta
	}

	return mod - delta + pos
}
