package osbf

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test_Classify_Model_Posteriors_Stay_Valid_Across_A_Training_Sequence
// runs a small deterministic sequence of learn/classify calls against
// three classes and checks the invariants Classify must hold regardless
// of what was trained: every posterior in [0,1], posteriors summing to
// ~1, and ArgMax pointing at the class with the largest posterior.
func Test_Classify_Model_Posteriors_Stay_Valid_Across_A_Training_Sequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	classDocs := [][]string{
		{"buy cheap pills now", "limited offer act now", "claim your prize winner"},
		{"quarterly report attached", "project status update", "team meeting notes"},
		{"recipe for dinner tonight", "garden planting schedule", "weekend hiking trail"},
	}

	paths := make([]string, len(classDocs))
	cfg := DefaultConfig()

	for c, docs := range classDocs {
		path := filepath.Join(dir, fmt.Sprintf("class-%d.cfc", c))
		paths[c] = path

		require.NoError(t, CreateDB(path, 9973), "CreateDB class %d", c)

		for _, doc := range docs {
			require.NoError(t, Learn(path, []byte(doc), cfg, 1, 0), "Learn class %d", c)
		}
	}

	probes := []string{
		"buy cheap pills act now",
		"quarterly project status",
		"weekend garden plans",
		"completely unrelated text with none of the trained words",
	}

	for _, probe := range probes {
		result, err := Classify(paths, []byte(probe), cfg, 0, 1)
		require.NoError(t, err, "Classify(%q)", probe)

		require.Len(t, result.P, len(paths))

		var sum float64
		for c, p := range result.P {
			assert.GreaterOrEqual(t, p, 0.0, "P[%d] for %q", c, probe)
			assert.LessOrEqual(t, p, 1.0, "P[%d] for %q", c, probe)
			sum += p
		}

		assert.InDelta(t, 1.0, sum, 1e-6, "sum of posteriors for %q", probe)

		for c, p := range result.P {
			assert.LessOrEqual(t, p, result.P[result.ArgMax]+1e-12,
				"P[%d]=%v exceeds ArgMax's P[%d]=%v for %q", c, p, result.ArgMax, result.P[result.ArgMax], probe)
		}
	}
}
