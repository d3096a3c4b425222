package feature

// Extract drives the tokenizer and sliding window over text, returning
// every composite (h1, h2) pair the OSB scheme produces — including the
// windowLen-1 extra pushes of padHash after the input is exhausted, so
// the final real token propagates through every window position
// (spec.md §4.3 "EOS padding").
func Extract(text []byte, opts Options) []Pair {
	tz := newTokenizer(text, opts)
	w := NewWindow()

	var pairs []Pair

	padsLeft := windowLen - 1

	for {
		h, ok := tz.next()
		if !ok {
			if padsLeft <= 0 {
				break
			}

			padsLeft--
			h = padHash
		}

		p := w.Push(h)
		pairs = append(pairs, p[:]...)
	}

	return pairs
}
