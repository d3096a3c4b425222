// Package osbf implements the OSBF-Bayes learner and classifier: it
// drives pkg/feature's tokenizer/window over text and pkg/bucketstore's
// hash table to learn, unlearn, and classify against a set of class
// files.
package osbf

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Flags are per-call behavior bits (spec.md §4.4, §4.5, §4.6).
type Flags uint32

const (
	// FlagNoMicrogroom disables microgrooming during learn's inserts.
	FlagNoMicrogroom Flags = 1 << iota
	// FlagExtraLearning routes the learn counter bump to ExtraLearnings
	// instead of Learnings (re-learning an already-seen document).
	FlagExtraLearning
	// FlagMistake bumps the target class's Mistakes counter.
	FlagMistake
	// FlagNoEDDC disables the Bayesian confidence factor, using a fixed
	// CF of (1 - epsilon) instead.
	FlagNoEDDC
	// FlagCountClassifications bumps the winning class's
	// Classifications counter under its advisory lock.
	FlagCountClassifications
)

// Config is the process-wide tunable bag read at the start of every
// learn/classify/unlearn call (spec.md §4.6, §9: "model as an immutable
// configuration value threaded through the call, rather than mutable
// globals").
type Config struct {
	// MaxChain is microgroom_chain_length; 0 selects the table-size-based
	// default (see bucketstore.Class.DefaultChainLength).
	MaxChain uint32

	// StopAfter is microgroom_stop_after. It is stored, loaded and
	// settable, but no operation reads it: every microgroom call uses
	// bucketstore's fixed eviction cap of 128 slots.
	StopAfter uint32

	K1 float64
	// K2 is accepted and validated like the rest of the CF tunables but
	// unused by the fixed-exponent CF formula this module implements;
	// it only feeds an alternative variable-exponent variant the
	// original classifier supports, which isn't implemented here.
	K2 float64
	K3 float64

	LimitTokenSize bool
	MaxTokenSize   int
	MaxLongTokens  int
	Delims         []byte

	// PRSCF scales the final pR log-ratio.
	PRSCF float64

	// MinPmaxPminRatio gates a feature out of the posterior update when
	// the ratio of the best to worst per-class local probability falls
	// below it. 1 accepts every feature.
	MinPmaxPminRatio float64
}

// DefaultConfig mirrors the original implementation's compiled-in
// constants (spec.md §4.5's K1/K2/K3/pR_SCF, §4.6's stop_after).
func DefaultConfig() Config {
	return Config{
		StopAfter:        128,
		K1:               0.25,
		K2:               12,
		K3:               8,
		MaxTokenSize:     34,
		MaxLongTokens:    14,
		PRSCF:            0.59,
		MinPmaxPminRatio: 1,
	}
}

// LoadConfigFile reads a JSONC (hujson) config file and overlays its
// non-zero fields onto DefaultConfig(), the way the embedding host's
// own config file is loaded. Unknown keys are ignored; a missing file
// is not an error — callers get the defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return Config{}, fmt.Errorf("osbf: reading config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("osbf: invalid JSONC in %s: %w", path, err)
	}

	var overlay Config
	if err := json.Unmarshal(standardized, &overlay); err != nil {
		return Config{}, fmt.Errorf("osbf: invalid config JSON in %s: %w", path, err)
	}

	return mergeConfig(cfg, overlay), nil
}

// Set mutates a single named tunable on cfg, matching the original
// implementation's key/value setter binding for the process-wide
// tunables spec.md §4.6 describes (config_set_arg(VAR) in the original
// implementation's binding). An unrecognized key is silently ignored;
// a recognized key given a value of the wrong kind returns an error.
func (cfg *Config) Set(key string, value any) error {
	switch key {
	case "MaxChain":
		v, ok := value.(uint32)
		if !ok {
			return fmt.Errorf("osbf: Set(%q): want uint32, got %T", key, value)
		}
		cfg.MaxChain = v
	case "StopAfter":
		v, ok := value.(uint32)
		if !ok {
			return fmt.Errorf("osbf: Set(%q): want uint32, got %T", key, value)
		}
		cfg.StopAfter = v
	case "K1":
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("osbf: Set(%q): want float64, got %T", key, value)
		}
		cfg.K1 = v
	case "K2":
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("osbf: Set(%q): want float64, got %T", key, value)
		}
		cfg.K2 = v
	case "K3":
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("osbf: Set(%q): want float64, got %T", key, value)
		}
		cfg.K3 = v
	case "LimitTokenSize":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("osbf: Set(%q): want bool, got %T", key, value)
		}
		cfg.LimitTokenSize = v
	case "MaxTokenSize":
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("osbf: Set(%q): want int, got %T", key, value)
		}
		cfg.MaxTokenSize = v
	case "MaxLongTokens":
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("osbf: Set(%q): want int, got %T", key, value)
		}
		cfg.MaxLongTokens = v
	case "PRSCF":
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("osbf: Set(%q): want float64, got %T", key, value)
		}
		cfg.PRSCF = v
	case "MinPmaxPminRatio":
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("osbf: Set(%q): want float64, got %T", key, value)
		}
		cfg.MinPmaxPminRatio = v
	default:
		// Unknown keys are ignored (spec.md §4.6), matching the original
		// binding's behavior for a tunable name it doesn't recognize.
	}

	return nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.MaxChain != 0 {
		base.MaxChain = overlay.MaxChain
	}

	if overlay.StopAfter != 0 {
		base.StopAfter = overlay.StopAfter
	}

	if overlay.K1 != 0 {
		base.K1 = overlay.K1
	}

	if overlay.K2 != 0 {
		base.K2 = overlay.K2
	}

	if overlay.K3 != 0 {
		base.K3 = overlay.K3
	}

	base.LimitTokenSize = base.LimitTokenSize || overlay.LimitTokenSize

	if overlay.MaxTokenSize != 0 {
		base.MaxTokenSize = overlay.MaxTokenSize
	}

	if overlay.MaxLongTokens != 0 {
		base.MaxLongTokens = overlay.MaxLongTokens
	}

	if len(overlay.Delims) > 0 {
		base.Delims = overlay.Delims
	}

	if overlay.PRSCF != 0 {
		base.PRSCF = overlay.PRSCF
	}

	if overlay.MinPmaxPminRatio != 0 {
		base.MinPmaxPminRatio = overlay.MinPmaxPminRatio
	}

	return base
}
