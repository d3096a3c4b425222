package osbf

import (
	"fmt"

	"github.com/osbf-go/osbf/pkg/bucketstore"
	"github.com/osbf-go/osbf/pkg/feature"
)

// Learn applies a +1 (learn) or -1 (unlearn) delta to path's class file
// for every composite feature text produces, then updates the class's
// document-level counters (spec.md §4.4).
func Learn(path string, text []byte, cfg Config, sense int32, flags Flags) error {
	if sense != 1 && sense != -1 {
		return bucketstore.NewError("Learn", bucketstore.KindInvalidArgument, fmt.Errorf("sense must be +1 or -1, got %d", sense))
	}

	class, err := bucketstore.Open(path, bucketstore.ReadWrite)
	if err != nil {
		return err
	}
	defer class.Close()

	maxChainLen := cfg.MaxChain
	if maxChainLen == 0 {
		maxChainLen = class.DefaultChainLength()
	}

	if flags&FlagNoMicrogroom != 0 {
		// Insert only microgrooms once distance exceeds maxChainLen;
		// setting it to the table size makes that threshold unreachable.
		maxChainLen = class.NumBuckets()
	}

	pairs := feature.Extract(text, tokenOptions(cfg))

	for _, p := range pairs {
		i := class.Find(p.H1, p.H2)
		if class.Full(i) {
			return bucketstore.NewError("Learn", bucketstore.KindDatabaseFull, fmt.Errorf("%s has no free slot", path))
		}

		switch {
		case class.Value(i) != 0:
			if sense > 0 && class.Locked(i) {
				continue
			}

			class.Update(i, sense)

		case sense > 0:
			class.Insert(i, p.H1, p.H2, uint32(sense), maxChainLen)

			// negative sense on an empty slot: nothing to unlearn.
		}
	}

	if flags&FlagExtraLearning != 0 {
		class.SetExtraLearnings(saturatingAddInt32(class.ExtraLearnings(), sense))
	} else {
		class.SetLearnings(saturatingAddInt32(class.Learnings(), sense))
	}

	if flags&FlagMistake != 0 {
		class.SetMistakes(saturatingAddInt32(class.Mistakes(), sense))
	}

	return nil
}

// saturatingAddInt32 adds delta to v, clamping to [0, maxValue] — the
// same saturation policy §3 requires of bucket values, applied here to
// the header's document-level counters.
func saturatingAddInt32(v uint32, delta int32) uint32 {
	const maxCounterValue = 65535

	if delta > 0 {
		if v+uint32(delta) >= maxCounterValue {
			return maxCounterValue
		}

		return v + uint32(delta)
	}

	if v <= uint32(-delta) {
		return 0
	}

	return v - uint32(-delta)
}

func tokenOptions(cfg Config) feature.Options {
	return feature.Options{
		Delims:         cfg.Delims,
		LimitTokenSize: cfg.LimitTokenSize,
		MaxTokenSize:   cfg.MaxTokenSize,
		MaxLongTokens:  cfg.MaxLongTokens,
	}
}
