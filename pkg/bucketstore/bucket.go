package bucketstore

// table is the in-memory view of one class file's bucket array: the
// mmap'd header+bucket bytes, plus the transient per-slot flag byte
// (LOCK / FREE / SEEN) that spec.md §3 calls out as never persisted —
// it is reallocated zeroed by class.go on every open.
type table struct {
	data       []byte // header + bucket array, backed by the class file's mmap
	flags      []byte // len == numBuckets
	numBuckets uint32
}

const (
	flagLock = 0x80
	flagFree = 0x40
	flagSeen = 0x01
)

func (t *table) bucketOffset(i uint32) int {
	return headerSize + int(i)*bucketSize
}

func (t *table) getBucket(i uint32) bucket {
	off := t.bucketOffset(i)
	return decodeBucket(t.data[off : off+bucketSize])
}

func (t *table) setBucket(i uint32, b bucket) {
	off := t.bucketOffset(i)
	encodeBucket(t.data[off:off+bucketSize], b)
}

// inChain reports whether slot i holds a live entry. value == 0 is the
// in-band empty marker (spec.md §3); it must never be a valid feature count.
func (t *table) inChain(i uint32) bool {
	return t.getBucket(i).Value != 0
}

func (t *table) locked(i uint32) bool     { return t.flags[i]&flagLock != 0 }
func (t *table) lock(i uint32)            { t.flags[i] |= flagLock }
func (t *table) markedFree(i uint32) bool { return t.flags[i]&flagFree != 0 }
func (t *table) markFree(i uint32)        { t.flags[i] |= flagFree }
func (t *table) unmarkFree(i uint32)      { t.flags[i] &^= flagFree }
func (t *table) seen(i uint32) bool       { return t.flags[i]&flagSeen != 0 }
func (t *table) markSeen(i uint32)        { t.flags[i] |= flagSeen }

func (t *table) next(i uint32) uint32 { return ringAdd(i, 1, t.numBuckets) }
func (t *table) prev(i uint32) uint32 { return ringSub(i, 1, t.numBuckets) }

// fullSentinel is returned by find when a chain wraps the entire table
// without finding a match or an empty slot: the store is completely full.
func (t *table) fullSentinel() uint32 { return t.numBuckets + 1 }

// find returns the slot for (hash,key): the slot already holding it, or
// the first empty slot along its probe chain starting at home(hash).
// Returns fullSentinel() if the chain wraps the whole table with no
// empty slot and no match (spec.md §4.1, grounded on osbf_find_bucket).
func (t *table) find(hash, key uint32) uint32 {
	start := home(hash, t.numBuckets)
	i := start

	for t.inChain(i) {
		b := t.getBucket(i)
		if b.Hash == hash && b.Key == key {
			return i
		}

		i = t.next(i)
		if i == start {
			return t.fullSentinel()
		}
	}

	return i
}

// update applies delta to slot i's value. A positive delta saturates at
// maxValue and locks the slot; a negative delta that would drop the
// value to zero or below frees the slot and packs its chain instead;
// anything else just locks the slot at its new value (spec.md §4.1,
// grounded on osbf_update_bucket).
func (t *table) update(i uint32, delta int32) {
	b := t.getBucket(i)

	switch {
	case delta > 0 && b.Value+uint32(delta) >= maxValue:
		b.Value = maxValue
		t.setBucket(i, b)
		t.lock(i)

	case delta < 0 && b.Value <= uint32(-delta):
		if b.Value != 0 {
			t.markFree(i)
			packStart, packLen := updatePackRange(t, i)
			packchain(t, packStart, packLen)
		}

	default:
		b.Value = uint32(int32(b.Value) + delta)
		t.setBucket(i, b)
		t.lock(i)
	}
}

// insert writes (hash,key,value) into slot i and locks it. If i's
// distance from hash's home slot exceeds maxChainLen, it runs microgroom
// on the chain first and re-finds the slot, repeating until the
// distance is acceptable (spec.md §4.1, grounded on osbf_insert_bucket).
// Returns the slot actually written, which may differ from i.
func (t *table) insert(i, hash, key, value, maxChainLen uint32) uint32 {
	homeIdx := home(hash, t.numBuckets)

	if value > 0 {
		for ringDistance(homeIdx, i, t.numBuckets) > maxChainLen {
			microgroom(t, t.prev(i))
			i = t.find(hash, key)
		}
	}

	t.setBucket(i, bucket{Hash: hash, Key: key, Value: value})
	t.lock(i)

	return i
}
