package history

import (
	"sync"

	"github.com/rickoneeleven/windows-ping-applet-sub000/internal/models"
)

// DefaultDepth is the number of probe samples kept when no depth is
// configured; at the one-second cadence it covers the last five minutes.
const DefaultDepth = 300

// Ring keeps the most recent probe samples in a fixed-size buffer. Adding
// beyond capacity overwrites the oldest sample.
type Ring struct {
	mu   sync.RWMutex
	buf  []models.ProbeSample
	next int
	full bool
}

// NewRing creates a ring holding up to capacity samples.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultDepth
	}
	return &Ring{buf: make([]models.ProbeSample, capacity)}
}

// Add appends one sample, evicting the oldest when full.
func (r *Ring) Add(sample models.ProbeSample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = sample
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// Len returns the number of stored samples.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Recent returns up to n samples in chronological order, newest last.
// n <= 0 returns everything.
func (r *Ring) Recent(n int) []models.ProbeSample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ordered []models.ProbeSample
	if r.full {
		ordered = make([]models.ProbeSample, 0, len(r.buf))
		ordered = append(ordered, r.buf[r.next:]...)
		ordered = append(ordered, r.buf[:r.next]...)
	} else {
		ordered = make([]models.ProbeSample, r.next)
		copy(ordered, r.buf[:r.next])
	}

	if n > 0 && n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}
