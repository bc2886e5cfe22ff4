package core

import "testing"

// TestActivationHistory_Ring verifies the bounded history
// Given: A history of capacity 3
// When: 5 activations are added
// Then: Only the 3 newest are kept, newest first
func TestActivationHistory_Ring(t *testing.T) {
	// Arrange
	h := newActivationHistory(3)
	if _, ok := h.Last(); ok {
		t.Fatal("Last() on empty history should report false")
	}
	if got := h.Recent(10); got != nil {
		t.Fatalf("Recent() on empty history = %v, want nil", got)
	}

	// Act
	for i := 0; i < 5; i++ {
		h.Add(ActivationRecord{Seq: uint64(i)})
	}

	// Assert
	recent := h.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("len(Recent(0)) = %d, want 3", len(recent))
	}
	for i, want := range []uint64{4, 3, 2} {
		if recent[i].Seq != want {
			t.Fatalf("Recent(0)[%d].Seq = %d, want %d", i, recent[i].Seq, want)
		}
	}
	if got := h.Recent(1); len(got) != 1 || got[0].Seq != 4 {
		t.Fatalf("Recent(1) = %v, want [4]", got)
	}
	if last, ok := h.Last(); !ok || last.Seq != 4 {
		t.Fatalf("Last() = %v, %v; want seq 4", last, ok)
	}
}

func TestActivationHistory_DefaultCapacity(t *testing.T) {
	h := newActivationHistory(0)
	for i := 0; i < defaultActivationHistoryCapacity+10; i++ {
		h.Add(ActivationRecord{Seq: uint64(i)})
	}
	if got := len(h.Recent(0)); got != defaultActivationHistoryCapacity {
		t.Fatalf("len(Recent(0)) = %d, want %d", got, defaultActivationHistoryCapacity)
	}
}
