package osbf

import (
	"path/filepath"
	"strings"
	"testing"
)

func trainClass(t *testing.T, path string, numBuckets uint32, docs []string) {
	t.Helper()

	if err := CreateDB(path, numBuckets); err != nil {
		t.Fatalf("CreateDB(%s): %v", path, err)
	}

	cfg := DefaultConfig()

	for _, doc := range docs {
		if err := Learn(path, []byte(doc), cfg, 1, 0); err != nil {
			t.Fatalf("Learn(%s): %v", path, err)
		}
	}
}

func Test_Classify_Favors_The_Trained_Class(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	spamPath := filepath.Join(dir, "spam.cfc")
	hamPath := filepath.Join(dir, "ham.cfc")

	spamDocs := []string{
		"buy cheap viagra now limited offer act now",
		"free money winner claim your prize today",
		"limited offer act now buy cheap pills",
		"claim your free prize winner act now",
	}

	hamDocs := []string{
		"quarterly meeting notes attached for review",
		"please find the project status report enclosed",
		"team standup moved to tomorrow morning",
		"attached is the revised budget spreadsheet",
	}

	trainClass(t, spamPath, 94321, spamDocs)
	trainClass(t, hamPath, 94321, hamDocs)

	cfg := DefaultConfig()

	result, err := Classify(
		[]string{spamPath, hamPath},
		[]byte("free prize winner act now claim your money"),
		cfg, 0, 1,
	)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if result.ArgMax != 0 {
		t.Fatalf("ArgMax = %d, want 0 (spam)", result.ArgMax)
	}

	if result.PR <= 0 {
		t.Fatalf("PR = %v, want > 0 favoring the first partition (spam)", result.PR)
	}

	result, err = Classify(
		[]string{spamPath, hamPath},
		[]byte("please review the attached quarterly budget report"),
		cfg, 0, 1,
	)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if result.ArgMax != 1 {
		t.Fatalf("ArgMax = %d, want 1 (ham)", result.ArgMax)
	}

	if result.PR >= 0 {
		t.Fatalf("PR = %v, want < 0 favoring the second partition (ham)", result.PR)
	}
}

func Test_Classify_Posteriors_Sum_To_One(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.cfc")
	bPath := filepath.Join(dir, "b.cfc")

	trainClass(t, aPath, 9973, []string{"alpha beta gamma delta", "alpha gamma epsilon"})
	trainClass(t, bPath, 9973, []string{"zulu yankee xray whiskey", "zulu whiskey victor"})

	result, err := Classify([]string{aPath, bPath}, []byte(strings.Repeat("alpha ", 5)), DefaultConfig(), 0, 1)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	var sum float64
	for _, v := range result.P {
		sum += v
	}

	if diff := sum - 1; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("sum of posteriors = %v, want ~1", sum)
	}
}

func Test_Classify_Rejects_Bad_Ncfs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.cfc")
	bPath := filepath.Join(dir, "b.cfc")

	trainClass(t, aPath, 1009, []string{"hello world"})
	trainClass(t, bPath, 1009, []string{"goodbye world"})

	if _, err := Classify([]string{aPath, bPath}, []byte("hello"), DefaultConfig(), 0, 0); err == nil {
		t.Fatal("expected ncfs=0 to be rejected")
	}

	if _, err := Classify([]string{aPath, bPath}, []byte("hello"), DefaultConfig(), 0, 2); err == nil {
		t.Fatal("expected ncfs==len(paths) to be rejected")
	}
}

func Test_Classify_With_CountClassifications_Bumps_Winner(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.cfc")
	bPath := filepath.Join(dir, "b.cfc")

	trainClass(t, aPath, 9973, []string{"buy cheap pills now", "limited offer act now"})
	trainClass(t, bPath, 9973, []string{"quarterly report attached", "project status update"})

	result, err := Classify([]string{aPath, bPath}, []byte("buy cheap pills act now"), DefaultConfig(), FlagCountClassifications, 1)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	winnerPath := []string{aPath, bPath}[result.ArgMax]

	st, err := Stats(winnerPath, true)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if st.Classifications != 1 {
		t.Fatalf("Classifications = %d, want 1", st.Classifications)
	}
}
