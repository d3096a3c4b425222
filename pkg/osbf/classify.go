package osbf

import (
	"fmt"
	"math"

	"github.com/osbf-go/osbf/pkg/bucketstore"
	"github.com/osbf-go/osbf/pkg/feature"
)

// epsilon is the (1 - epsilon) confidence factor substituted for the
// Bayesian CF computation when FlagNoEDDC disables it.
const epsilon = 1e-10

// windowPositions is windowLen-1 from pkg/feature: Extract emits that
// many pairs per token push, in window-position order 1..windowPositions.
const windowPositions = 4

// Result is classify's output (spec.md §4.5).
type Result struct {
	// P holds each class's posterior probability, in the same order as
	// the paths passed to Classify. Sums to 1 within numerical tolerance.
	P []float64

	// PR is the signed log10 ratio of summed posteriors across the
	// {paths[:ncfs]} vs {paths[ncfs:]} partition.
	PR float64

	// ArgMax is the index (0-based) of the best-scoring class.
	ArgMax int

	// Trainings is each class's Learnings() counter, as it stood at
	// open time.
	Trainings []uint32
}

// Classify scores text against the classes at paths (opened read-only),
// returning posteriors, the pR log-ratio across the two-way partition
// {paths[:ncfs]} vs {paths[ncfs:]}, and the winning class (spec.md §4.5).
func Classify(paths []string, text []byte, cfg Config, flags Flags, ncfs int) (Result, error) {
	if len(paths) == 0 {
		return Result{}, bucketstore.NewError("Classify", bucketstore.KindInvalidArgument, fmt.Errorf("no classes supplied"))
	}

	if ncfs <= 0 || ncfs >= len(paths) {
		return Result{}, bucketstore.NewError("Classify", bucketstore.KindInvalidArgument, fmt.Errorf("ncfs must partition the class set (1..%d), got %d", len(paths)-1, ncfs))
	}

	classes := make([]*bucketstore.Class, len(paths))

	defer func() {
		for _, c := range classes {
			if c != nil {
				c.Close()
			}
		}
	}()

	trainings := make([]uint32, len(paths))
	effLearnings := make([]float64, len(paths))
	var totalLearnings float64

	for idx, path := range paths {
		c, err := bucketstore.Open(path, bucketstore.ReadOnly)
		if err != nil {
			return Result{}, err
		}

		classes[idx] = c
		trainings[idx] = c.Learnings()

		eff := float64(c.Learnings())
		if eff == 0 {
			eff = 1
		}

		effLearnings[idx] = eff
		totalLearnings += eff
	}

	p := make([]float64, len(paths))
	for idx := range p {
		p[idx] = effLearnings[idx] / totalLearnings
	}

	weights := featureWeights(totalLearnings)
	minPmaxPminRatio := cfg.MinPmaxPminRatio
	if minPmaxPminRatio == 0 {
		minPmaxPminRatio = 1
	}

	pairs := feature.Extract(text, tokenOptions(cfg))

	for idx, pair := range pairs {
		w := (idx % windowPositions) + 1

		slots := make([]uint32, len(classes))
		hits := make([]float64, len(classes))
		found := make([]bool, len(classes))
		allSeen := true

		for c, class := range classes {
			i := class.Find(pair.H1, pair.H2)
			slots[c] = i

			if !class.Full(i) && class.Value(i) != 0 {
				found[c] = true
				hits[c] = float64(class.Value(i))

				if !class.Seen(i) {
					allSeen = false
				}
			} else {
				hits[c] = 0
				allSeen = false
			}
		}

		if allSeen {
			continue
		}

		cMax, cMin := 0, 0
		maxLocalP, minLocalP := hits[0]/effLearnings[0], hits[0]/effLearnings[0]

		for c := range classes {
			localP := hits[c] / effLearnings[c]
			if localP > maxLocalP {
				maxLocalP, cMax = localP, c
			}
			if localP < minLocalP {
				minLocalP, cMin = localP, c
			}
		}

		for c, class := range classes {
			if found[c] {
				class.MarkSeen(slots[c])
			}
		}

		if maxLocalP-minLocalP < 1e-6 {
			continue
		}

		if minLocalP > 0 && maxLocalP/minLocalP < minPmaxPminRatio {
			continue
		}

		hitsMax, hitsMin := hits[cMax], hits[cMin]
		learningsMax, learningsMin := effLearnings[cMax], effLearnings[cMin]

		bigger := max(learningsMax, learningsMin)
		hitsMaxNorm := hitsMax * bigger / learningsMax
		hitsMinNorm := hitsMin * bigger / learningsMin

		var cf float64
		if flags&FlagNoEDDC != 0 {
			cf = 1 - epsilon
		} else {
			sum := hitsMaxNorm + hitsMinNorm
			diff := math.Abs(hitsMaxNorm - hitsMinNorm)
			cfx := math.Min(1, 0.8+(learningsMax+learningsMin)/20)

			numer := diff*diff - cfg.K1/(hitsMax+hitsMin)
			core := numer / (sum * sum)
			cf = cfx * core * core / (1 + cfg.K3/((hitsMax+hitsMin)*weights[w]))
		}

		for c := range classes {
			localP := hits[c] / effLearnings[c]
			p[c] *= 0.5 + cf*(localP-0.5)
			p[c] = math.Max(p[c], 10*math.SmallestNonzeroFloat64)
		}

		var sumP float64
		for _, v := range p {
			sumP += v
		}

		for c := range p {
			p[c] /= sumP
		}
	}

	var numer, denom float64
	for c, v := range p {
		if c < ncfs {
			numer += v
		} else {
			denom += v
		}
	}

	pr := cfg.PRSCF * math.Log10(numer/denom)

	argMax := 0
	for c := range p {
		if p[c] > p[argMax] {
			argMax = c
		}
	}

	if flags&FlagCountClassifications != 0 {
		if err := bumpClassifications(paths[argMax]); err != nil {
			return Result{}, err
		}
	}

	return Result{P: p, PR: pr, ArgMax: argMax, Trainings: trainings}, nil
}

// featureWeights computes the per-window-position weight table
// (spec.md §4.5 step 7): capped at the fixed [0,3125,256,27,4] values
// once totalLearnings is large enough, otherwise scaled down by
// e = (3*totalLearnings)^0.2.
func featureWeights(totalLearnings float64) [windowPositions + 1]float64 {
	e := math.Pow(3*totalLearnings, 0.2)
	if e >= 5 {
		return [windowPositions + 1]float64{0, 3125, 256, 27, 4}
	}

	var w [windowPositions + 1]float64
	for d := 1; d <= windowPositions; d++ {
		base := e * float64(6-d) / 5
		w[d] = math.Pow(base, base)
	}

	return w
}

// bumpClassifications reopens path read-write just long enough to
// increment its Classifications counter under the class file's
// advisory lock. The lock is the one every ReadWrite open takes, over
// the whole file ([0, 0)); no header-only lock range is used.
func bumpClassifications(path string) error {
	c, err := bucketstore.Open(path, bucketstore.ReadWrite)
	if err != nil {
		return err
	}
	defer c.Close()

	c.SetClassifications(c.Classifications() + 1)

	return nil
}
