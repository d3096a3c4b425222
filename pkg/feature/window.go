package feature

const (
	// windowLen is OSB_BAYES_WINDOW_LEN: the hashpipe holds the most
	// recent windowLen token hashes.
	windowLen = 5

	// padHash seeds the hashpipe and pads it past end-of-input so the
	// final real token propagates through every window position.
	padHash = 0xDEADBEEF
)

// hctable1 and hctable2 are the OSB coefficient tables (spec.md §4.3).
// hctable2 is indexed at [w-1], the "compatibility" variant — see
// the Window doc.
var (
	hctable1 = [10]uint32{1, 3, 5, 11, 23, 47, 97, 197, 397, 797}
	hctable2 = [10]uint32{7, 13, 29, 51, 101, 203, 407, 817, 1637, 3277}
)

// Pair is one composite feature: the two 32-bit hashes OSB derives from
// pairing the newest token with an earlier one in the window.
type Pair struct {
	H1, H2 uint32
}

// Window is the 5-slot OSB sliding window (the "hashpipe"): on each
// Push it emits windowLen-1 composite pairs, one per non-zero window
// position (spec.md §4.3).
//
// hctable2's index shift is the "compatibility" build variant noted as
// an open question in spec.md §9: we index hctable2[w-1] unconditionally
// rather than exposing a build-time selector, since the alternative
// mode produces on-disk-incompatible files and the compatibility mode
// is the more widely deployed one.
type Window struct {
	pipe [windowLen]uint32
}

// NewWindow returns a window pre-filled with padHash, as if opened on
// fresh text.
func NewWindow() *Window {
	w := &Window{}
	for i := range w.pipe {
		w.pipe[i] = padHash
	}

	return w
}

// Push shifts h into the window and returns the windowLen-1 composite
// pairs it produces against the previous window contents.
func (w *Window) Push(h uint32) [windowLen - 1]Pair {
	for i := windowLen - 1; i > 0; i-- {
		w.pipe[i] = w.pipe[i-1]
	}

	w.pipe[0] = h

	var pairs [windowLen - 1]Pair

	for idx := 1; idx < windowLen; idx++ {
		h1 := w.pipe[0]*hctable1[0] + w.pipe[idx]*hctable1[idx]
		h2 := w.pipe[0]*hctable2[0] + w.pipe[idx]*hctable2[idx-1]

		pairs[idx-1] = Pair{H1: h1, H2: h2}
	}

	return pairs
}
