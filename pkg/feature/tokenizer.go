package feature

// Options controls tokenization and window behavior (spec.md §4.3,
// §4.6's recognized configuration keys).
type Options struct {
	// Delims lists extra bytes that terminate a token even though they
	// are graph (printable, non-space) characters.
	Delims []byte

	// LimitTokenSize caps a token at MaxTokenSize bytes even mid-word.
	LimitTokenSize bool

	// MaxTokenSize is the cutoff a token is folded at when
	// LimitTokenSize is set.
	MaxTokenSize int

	// MaxLongTokens bounds how many folded continuations of an
	// over-long token get XORed into one hash before moving on.
	MaxLongTokens int
}

// DefaultOptions mirrors the original implementation's compiled-in
// defaults (OSBF_MAX_TOKEN_SIZE / OSBF_MAX_LONG_TOKENS), with size
// limiting off by default.
func DefaultOptions() Options {
	return Options{
		MaxTokenSize:  34,
		MaxLongTokens: 14,
	}
}

func (o Options) isDelim(b byte) bool {
	for _, d := range o.Delims {
		if d == b {
			return true
		}
	}

	return false
}

// isGraph reports whether b is a printable, non-space ASCII byte —
// the byte-oriented notion of "token character" spec.md §4.3 calls for
// (the tokenizer is explicitly not Unicode-aware).
func isGraph(b byte) bool {
	return b > 0x20 && b < 0x7F
}

// tokenizer walks a byte slice emitting tokens per spec.md §4.3: a
// maximal run of graph bytes not in the extra-delimiter set, optionally
// folded at MaxTokenSize with the tail XORed into a single hash
// contribution across up to MaxLongTokens continuations.
type tokenizer struct {
	text []byte
	pos  int
	opts Options
}

func newTokenizer(text []byte, opts Options) *tokenizer {
	return &tokenizer{text: text, opts: opts}
}

// next returns the hash of the next token, or ok == false once the
// input is exhausted. A token at least MaxTokenSize bytes long (which,
// with LimitTokenSize set, every cut continuation will be) is folded
// with up to MaxLongTokens successive continuations XORed into one
// hash — this applies regardless of LimitTokenSize, since an unbounded
// scan can still naturally produce a single very long token (mirrors
// get_next_hash).
func (z *tokenizer) next() (hash uint32, ok bool) {
	tok, found := z.nextToken()
	if !found {
		return 0, false
	}

	h := uint32(0)
	count := 0

	for z.opts.MaxTokenSize > 0 && len(tok) >= z.opts.MaxTokenSize && count < z.opts.MaxLongTokens {
		count++
		h ^= TokenHash(tok)

		next, found := z.nextToken()
		if !found {
			return h, true
		}

		tok = next
	}

	h ^= TokenHash(tok)

	return h, true
}

// nextToken scans forward past delimiters, then consumes one token,
// applying the MaxTokenSize cutoff when LimitTokenSize is set (mirrors
// get_next_token).
func (z *tokenizer) nextToken() ([]byte, bool) {
	for z.pos < len(z.text) && (!isGraph(z.text[z.pos]) || z.opts.isDelim(z.text[z.pos])) {
		z.pos++
	}

	start := z.pos

	limit := len(z.text)
	if z.opts.LimitTokenSize && z.opts.MaxTokenSize > 0 && start+z.opts.MaxTokenSize < limit {
		limit = start + z.opts.MaxTokenSize
	}

	for z.pos < limit && isGraph(z.text[z.pos]) && !z.opts.isDelim(z.text[z.pos]) {
		z.pos++
	}

	if z.pos == start {
		return nil, false
	}

	return z.text[start:z.pos], true
}
