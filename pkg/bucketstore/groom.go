package bucketstore

// Default microgroom tuning, grounded on original_source/osbflib.h's
// OSBF_MICROGROOM_CHAIN_LENGTH / OSBF_MICROGROOM_STOP_AFTER /
// OSBF_MICROGROOM_LOCKED.
const (
	// defaultMicrogroomStopAfter caps how many buckets one microgroom
	// pass will zero before giving up and packing what it has.
	defaultMicrogroomStopAfter = 128

	// groomLockedByDefault mirrors OSBF_MICROGROOM_LOCKED's default:
	// prefer leaving locked buckets alone, but fall back to grooming
	// them anyway if a chain has no unlocked candidate.
	groomLockedByDefault = false
)

// defaultChainLength reproduces osbf_insert_bucket's formula for an
// automatically-sized microgroom_chain_length when none is configured:
// a function of the table size, floored at 29.
func defaultChainLength(numBuckets uint32) uint32 {
	length := 14.85 + 1.5e-4*float64(numBuckets)
	if length < 29 {
		return 29
	}

	return uint32(length)
}

// lastInChain returns the index of the last live bucket in the chain
// that starts at bindex's home, scanning forward. Returns numBuckets if
// bindex isn't itself part of a chain, or numBuckets+1 if the chain
// wraps the entire table (grounded on osbf_last_in_chain).
func lastInChain(t *table, bindex uint32) uint32 {
	if !t.inChain(bindex) {
		return t.numBuckets
	}

	wraparound := bindex
	i := bindex

	for t.inChain(i) {
		i = t.next(i)
		if i == wraparound {
			return t.numBuckets + 1
		}
	}

	return t.prev(i)
}

// updatePackRange computes the (start, length) chain range to repack
// after freeing bindex during a plain update-to-zero, mirroring the
// inline packlen computation in osbf_update_bucket.
func updatePackRange(t *table, bindex uint32) (uint32, uint32) {
	last := lastInChain(t, bindex)

	var packLen uint32
	if last >= bindex {
		packLen = last - bindex + 1
	} else {
		packLen = t.numBuckets - (bindex - last) + 1
	}

	return bindex, packLen
}

// packchain compacts the packlen buckets starting at packstart: buckets
// marked free are filled, where possible, by later buckets in the range
// that belong closer to their home, then every bucket still marked free
// at the end is zeroed. Grounded on osbf_packchain.
func packchain(t *table, packstart, packlen uint32) {
	packend := ringAdd(packstart, packlen, t.numBuckets)

	freeStart := packstart
	for freeStart != packend && !t.markedFree(freeStart) {
		freeStart = t.next(freeStart)
	}

	if freeStart != packend {
		for ifrom := t.next(freeStart); ifrom != packend; ifrom = t.next(ifrom) {
			if t.markedFree(ifrom) {
				continue
			}

			b := t.getBucket(ifrom)
			ito := home(b.Hash, t.numBuckets)

			for ito != ifrom && !t.markedFree(ito) {
				ito = t.next(ito)
			}

			if t.markedFree(ito) {
				t.setBucket(ito, b)
				t.flags[ito] = t.flags[ifrom]&^flagFree
				t.markFree(ifrom)
			}
		}
	}

	for i := packstart; i != packend; i = t.next(i) {
		if t.markedFree(i) {
			t.setBucket(i, bucket{})
			t.unmarkFree(i)
		}
	}
}

// microgroom prunes and packs the chain containing bindex, zeroing
// buckets with the lowest value in the chain — preferring those closest
// to their home slot, and preferring unlocked buckets unless the whole
// chain is locked — until at least one is freed or stopAfter is
// reached. Grounded on osbf_microgroom.
func microgroom(t *table, bindex uint32) uint32 {
	if !t.inChain(bindex) {
		return 0
	}

	minValueAny := t.getBucket(bindex).Value
	minValue := uint32(maxValue)
	groomLocked := groomLockedByDefault

	i := bindex
	j := bindex
	for t.inChain(i) {
		v := t.getBucket(i).Value
		if v < minValueAny {
			minValueAny = v
		}
		if v < minValue && !t.locked(i) {
			minValue = v
		}

		i = t.prev(i)
		if i == j {
			break
		}
	}

	i = t.next(i)
	packStart := i

	for t.inChain(i) {
		i = t.next(i)
		if i == packStart {
			break
		}
	}

	var packLen uint32
	if i > packStart {
		packLen = i - packStart
	} else {
		packLen = t.numBuckets + i - packStart
	}

	if groomLocked || minValue == maxValue {
		groomLocked = true
		minValue = minValueAny
	}

	stopAfter := defaultMicrogroomStopAfter
	zeroedCountdown := stopAfter
	maxDistance := uint32(1)

	for zeroedCountdown == stopAfter {
		i = packStart

		for t.inChain(i) && zeroedCountdown > 0 {
			v := t.getBucket(i).Value
			if v == minValue && (!t.locked(i) || groomLocked) {
				rightPos := home(t.getBucket(i).Hash, t.numBuckets)
				distance := ringDistance(rightPos, i, t.numBuckets)

				if distance < maxDistance {
					t.markFree(i)
					zeroedCountdown--
				}
			}

			i = t.next(i)
		}

		if zeroedCountdown == stopAfter {
			maxDistance++
		}
	}

	packchain(t, packStart, packLen)

	return uint32(stopAfter - zeroedCountdown)
}
