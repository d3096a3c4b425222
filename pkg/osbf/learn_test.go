package osbf

import (
	"path/filepath"
	"testing"

	"github.com/osbf-go/osbf/pkg/bucketstore"
	"github.com/osbf-go/osbf/pkg/feature"
)

func Test_Learn_Then_Unlearn_Restores_Learnings_To_Zero(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "spam.cfc")

	if err := CreateDB(path, 9973); err != nil {
		t.Fatalf("CreateDB: %v", err)
	}

	cfg := DefaultConfig()
	text := []byte("free money now act now limited offer")

	if err := Learn(path, text, cfg, 1, 0); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	c, err := bucketstore.Open(path, bucketstore.ReadOnly)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if got := c.Learnings(); got != 1 {
		c.Close()
		t.Fatalf("Learnings after one learn = %d, want 1", got)
	}

	c.Close()

	if err := Unlearn(path, text, cfg, 0); err != nil {
		t.Fatalf("Unlearn: %v", err)
	}

	c, err = bucketstore.Open(path, bucketstore.ReadOnly)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer c.Close()

	if got := c.Learnings(); got != 0 {
		t.Fatalf("Learnings after unlearn = %d, want 0", got)
	}
}

func Test_Learn_On_Locked_Slot_Does_Not_Double_Count_Same_Feature(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "spam.cfc")

	if err := CreateDB(path, 9973); err != nil {
		t.Fatalf("CreateDB: %v", err)
	}

	cfg := DefaultConfig()
	text := []byte("repeat repeat repeat")

	if err := Learn(path, text, cfg, 1, 0); err != nil {
		t.Fatalf("first Learn: %v", err)
	}

	if err := Learn(path, text, cfg, 1, 0); err != nil {
		t.Fatalf("second Learn: %v", err)
	}

	c, err := bucketstore.Open(path, bucketstore.ReadOnly)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if got := c.Learnings(); got != 2 {
		t.Fatalf("Learnings = %d, want 2 (two learn calls)", got)
	}

	// LOCK flags live only as long as one open handle, so each Learn call
	// counts a feature once however often it repeats in the text: after
	// two calls every feature of the text holds exactly 2.
	for _, p := range feature.Extract(text, tokenOptions(cfg)) {
		if got := c.Value(c.Find(p.H1, p.H2)); got != 2 {
			t.Fatalf("feature (%d,%d) value = %d, want 2 (one per learn call)", p.H1, p.H2, got)
		}
	}
}

func Test_Learn_Rejects_Invalid_Sense(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "spam.cfc")

	if err := CreateDB(path, 1009); err != nil {
		t.Fatalf("CreateDB: %v", err)
	}

	err := Learn(path, []byte("hello"), DefaultConfig(), 2, 0)
	if err == nil {
		t.Fatal("expected Learn with sense=2 to fail")
	}
}

func Test_Learn_With_NoMicrogroom_Flag_Eventually_Fills_Database(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "spam.cfc")

	const numBuckets = 29 // defaultChainLength's floor, so every insert must fit directly

	if err := CreateDB(path, numBuckets); err != nil {
		t.Fatalf("CreateDB: %v", err)
	}

	cfg := DefaultConfig()

	var lastErr error
	for i := 0; i < numBuckets+5; i++ {
		text := []byte{byte('a' + i%26), byte('b' + i%13), byte('c' + i%7)}
		lastErr = Learn(path, text, cfg, 1, FlagNoMicrogroom)
		if lastErr != nil {
			break
		}
	}

	if lastErr == nil {
		t.Fatal("expected the database to eventually report full with microgroom disabled")
	}

	berr, ok := lastErr.(*bucketstore.Error)
	if !ok {
		t.Fatalf("expected *bucketstore.Error, got %T: %v", lastErr, lastErr)
	}

	if berr.Kind != bucketstore.KindDatabaseFull {
		t.Fatalf("Kind = %v, want KindDatabaseFull", berr.Kind)
	}
}
