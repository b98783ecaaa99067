package learning

import (
	"math/rand"
	"sync"

	"github.com/vthunder/ideonet/internal/network"
)

// DefaultBufferCapacity bounds the experience buffer.
const DefaultBufferCapacity = 100

// Record is one buffered experience: the cycle's activation pattern and
// an optional feedback judgement attached to it.
type Record struct {
	Pattern  *network.ActivationPattern
	Feedback *Feedback
}

// Buffer is a bounded FIFO of experience records. When full, adding a
// record evicts the oldest one.
type Buffer struct {
	mu       sync.Mutex
	records  []Record
	capacity int
}

// NewBuffer creates a buffer with the given capacity (the default when
// capacity is not positive).
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{capacity: capacity}
}

// Add appends a record, evicting the oldest when at capacity.
func (b *Buffer) Add(rec Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) >= b.capacity {
		b.records = b.records[1:]
	}
	b.records = append(b.records, rec)
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Sample draws up to n records without replacement using the supplied
// random source. Sampling is reproducible: the same seed and buffer
// contents yield the same records in the same order.
func (b *Buffer) Sample(n int, rng *rand.Rand) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.records) {
		n = len(b.records)
	}
	if n <= 0 {
		return nil
	}

	perm := rng.Perm(len(b.records))
	sample := make([]Record, n)
	for i := 0; i < n; i++ {
		sample[i] = b.records[perm[i]]
	}
	return sample
}

// AddToBuffer records an experience for later replay.
func (e *Engine) AddToBuffer(rec Record) {
	e.buffer.Add(rec)
}

// LearnFromBuffer replays a seeded random sample of up to batchSize
// buffered records: feedback-bearing records go through
// LearnFromFeedback, the rest through LearnFromActivation. Diagnostics
// from every replayed record are merged.
func (e *Engine) LearnFromBuffer(batchSize int) Diagnostics {
	var diag Diagnostics
	for _, rec := range e.buffer.Sample(batchSize, e.rng) {
		if rec.Feedback != nil {
			d, err := e.LearnFromFeedback(*rec.Feedback)
			if err != nil {
				continue
			}
			diag.merge(d)
			continue
		}
		if rec.Pattern != nil {
			diag.merge(e.LearnFromActivation(rec.Pattern))
		}
	}
	return diag
}
