package bucketstore

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Stats mirrors the original implementation's STATS_STRUCT: the full
// diagnostic counters produced by a non-mapped, sequential walk of a
// class file (spec.md §4.6, grounded on original_source/osbflib.h's
// STATS_STRUCT).
type Stats struct {
	Version         uint32
	TotalBuckets    uint32
	BucketSize      uint32
	HeaderSize      uint32
	UsedBuckets     uint32
	Learnings       uint32
	ExtraLearnings  uint32
	Mistakes        uint32
	Classifications uint64
	NumChains       uint32
	MaxChain        uint32
	AvgChain        float64
	MaxDisplacement uint32
	Unreachable     uint32
}

// Stat opens path directly (no mmap) and computes Stats. When full is
// false, only the header-derived counters are populated; the bucket
// array isn't read at all (spec.md §4.6: "statistics walk (non-mapped,
// streaming)").
func Stat(path string, full bool) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{}, newErr("Stat", KindFileNotFound, err)
		}

		return Stats{}, newErr("Stat", KindIOFailure, err)
	}
	defer f.Close()

	hbuf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, hbuf); err != nil {
		return Stats{}, newErr("Stat", KindInvalidFormat, err)
	}

	h := decodeHeader(hbuf)
	if h.Version != classVersion || h.DBFlags != classDBFlags {
		return Stats{}, newErr("Stat", KindInvalidFormat, fmt.Errorf("bad header: version=%d db_flags=%d", h.Version, h.DBFlags))
	}

	st := Stats{
		Version:         h.Version,
		TotalBuckets:    h.NumBuckets,
		BucketSize:      bucketSize,
		HeaderSize:      headerSize,
		Learnings:       h.Learnings,
		ExtraLearnings:  h.ExtraLearnings,
		Mistakes:        h.Mistakes,
		Classifications: h.Classifications,
	}

	if !full || h.NumBuckets == 0 {
		return st, nil
	}

	buckets := make([]bucket, h.NumBuckets)
	r := bufio.NewReaderSize(f, 64*1024)
	rec := make([]byte, bucketSize)

	for i := range buckets {
		if _, err := io.ReadFull(r, rec); err != nil {
			return Stats{}, newErr("Stat", KindInvalidFormat, err)
		}

		buckets[i] = decodeBucket(rec)
	}

	walkBucketStats(&st, buckets, h.NumBuckets)

	return st, nil
}

// walkBucketStats computes per-chain metrics over an in-memory snapshot
// of the bucket array: used slots, chain count/length, max displacement
// from home, and unreachable slots (a nonzero slot whose home doesn't
// lie within the contiguous nonzero run that contains it — evidence of
// a packing bug or on-disk corruption).
func walkBucketStats(st *Stats, buckets []bucket, numBuckets uint32) {
	inChain := func(i uint32) bool { return buckets[i].Value != 0 }

	visited := make([]bool, numBuckets)

	var used, numChains, maxChain, maxDisp, unreachable uint32
	var chainLenSum uint64

	for i := uint32(0); i < numBuckets; i++ {
		if visited[i] || !inChain(i) {
			continue
		}

		start := i
		for {
			prev := ringSub(start, 1, numBuckets)
			if prev == i || visited[prev] || !inChain(prev) {
				break
			}

			start = prev
		}

		var length uint32

		for j := start; inChain(j) && !visited[j]; j = ringAdd(j, 1, numBuckets) {
			visited[j] = true
			used++
			length++

			h := home(buckets[j].Hash, numBuckets)
			disp := ringDistance(h, j, numBuckets)
			if disp > maxDisp {
				maxDisp = disp
			}

			// The span [start, j] is confirmed all-nonzero by this walk,
			// so j is reachable from its own home iff that home falls
			// inside the span too.
			if ringDistance(start, h, numBuckets) > ringDistance(start, j, numBuckets) {
				unreachable++
			}

			if ringAdd(j, 1, numBuckets) == start {
				break
			}
		}

		numChains++
		chainLenSum += uint64(length)

		if length > maxChain {
			maxChain = length
		}
	}

	st.UsedBuckets = used
	st.NumChains = numChains
	st.MaxChain = maxChain

	if numChains > 0 {
		st.AvgChain = float64(chainLenSum) / float64(numChains)
	}

	st.MaxDisplacement = maxDisp
	st.Unreachable = unreachable
}
