package core

import "time"

// HWMBatchSize is the number of response-time samples per HWM batch. It does
// not depend on any task's firmness window size.
const HWMBatchSize = 20

// HWMSampler tracks a high-water mark of batch maxima: samples are grouped in
// batches of HWMBatchSize and only a completed batch can raise the mark.
// A partially filled batch never influences HWM().
//
// HWMSampler is not safe for concurrent use; MetricsStore serializes it.
type HWMSampler struct {
	batch []time.Duration
	hwm   time.Duration
}

func NewHWMSampler() *HWMSampler {
	return &HWMSampler{batch: make([]time.Duration, 0, HWMBatchSize)}
}

// Add appends one sample. When the batch fills up its maximum replaces the
// mark if strictly greater, and the batch is cleared. updated reports a change.
func (s *HWMSampler) Add(sample time.Duration) (hwm time.Duration, updated bool) {
	s.batch = append(s.batch, sample)
	if len(s.batch) < HWMBatchSize {
		return s.hwm, false
	}

	batchMax := s.batch[0]
	for _, v := range s.batch[1:] {
		if v > batchMax {
			batchMax = v
		}
	}
	s.batch = s.batch[:0]

	if batchMax > s.hwm {
		s.hwm = batchMax
		return s.hwm, true
	}
	return s.hwm, false
}

// HWM returns the current high-water mark.
func (s *HWMSampler) HWM() time.Duration {
	return s.hwm
}

// Pending returns the number of samples in the unfinished batch.
func (s *HWMSampler) Pending() int {
	return len(s.batch)
}
