package core

import "sync"

const defaultActivationHistoryCapacity = 100

// activationHistory is a fixed-size ring of the most recent activations.
type activationHistory struct {
	mu    sync.Mutex
	items []ActivationRecord
	head  int
	count int
}

func newActivationHistory(capacity int) *activationHistory {
	if capacity < 1 {
		capacity = defaultActivationHistoryCapacity
	}
	return &activationHistory{items: make([]ActivationRecord, capacity)}
}

func (h *activationHistory) Add(record ActivationRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. limit <= 0 means all.
func (h *activationHistory) Recent(limit int) []ActivationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]ActivationRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

func (h *activationHistory) Last() (ActivationRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return ActivationRecord{}, false
	}

	idx := (h.head - 1 + len(h.items)) % len(h.items)
	return h.items[idx], true
}
