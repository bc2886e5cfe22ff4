package core

import "fmt"

// Verdict is the outcome of one (m,k)-firm window.
type Verdict int

const (
	VerdictPass Verdict = iota
	VerdictFail
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictFail:
		return "fail"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// WindowResult is emitted when a window of k activations completes.
type WindowResult struct {
	Activations int
	Misses      int
	Verdict     Verdict
}

// FirmnessWindow evaluates consecutive, non-overlapping windows of k
// activations against an (m,k)-firm constraint: a window passes when at
// most k-m of its activations missed their deadline.
//
// FirmnessWindow is not safe for concurrent use; MetricsStore serializes it.
type FirmnessWindow struct {
	k, m   int
	count  int
	misses int
}

// NewFirmnessWindow creates an evaluator for an (m,k)-firm constraint.
// It panics unless 0 < m <= k; TaskConfig.Validate reports the same condition as an error.
func NewFirmnessWindow(m, k int) *FirmnessWindow {
	if m <= 0 || m > k {
		panic(fmt.Sprintf("firmness window: need 0 < m <= k, got m=%d k=%d", m, k))
	}
	return &FirmnessWindow{k: k, m: m}
}

// Record accounts one activation. When it completes a window, the window's
// result is returned with ok == true and both counters are reset to zero.
func (w *FirmnessWindow) Record(missed bool) (result WindowResult, ok bool) {
	w.count++
	if missed {
		w.misses++
	}
	if w.count < w.k {
		return WindowResult{}, false
	}

	result = WindowResult{Activations: w.count, Misses: w.misses, Verdict: VerdictPass}
	if w.misses > w.k-w.m {
		result.Verdict = VerdictFail
	}
	w.count = 0
	w.misses = 0
	return result, true
}

// Pending returns the counters of the window in progress.
func (w *FirmnessWindow) Pending() (activations, misses int) {
	return w.count, w.misses
}

// Size returns k.
func (w *FirmnessWindow) Size() int { return w.k }

// Required returns m.
func (w *FirmnessWindow) Required() int { return w.m }
