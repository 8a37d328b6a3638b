// Package history maintains the bounded price series the strategy evaluates.
package history

import (
	"errors"
	"time"
)

var (
	// ErrOutOfOrder rejects a sample whose timestamp does not advance the series.
	ErrOutOfOrder = errors.New("history: sample timestamp not after last sample")
	// ErrInsufficient reports that fewer samples exist than the requested window.
	ErrInsufficient = errors.New("history: not enough samples for window")
)

// Sample is a single observed price point. Immutable once appended.
type Sample struct {
	Ts    time.Time `json:"ts"`
	Price float64   `json:"price"`
}

// Series is a capacity-bounded, strictly ordered price buffer. The engine is
// its only writer; everyone else reads copies via Snapshot.
type Series struct {
	samples []Sample
	max     int
}

// New builds an empty series holding at most maxSamples entries.
func New(maxSamples int) *Series {
	if maxSamples < 1 {
		maxSamples = 1
	}
	return &Series{samples: make([]Sample, 0, maxSamples), max: maxSamples}
}

// Append records a sample, evicting the oldest entry once capacity is reached.
// Timestamps must strictly increase or the sample is rejected unchanged.
func (s *Series) Append(sample Sample) error {
	if n := len(s.samples); n > 0 && !sample.Ts.After(s.samples[n-1].Ts) {
		return ErrOutOfOrder
	}
	if len(s.samples) == s.max {
		copy(s.samples, s.samples[1:])
		s.samples = s.samples[:s.max-1]
	}
	s.samples = append(s.samples, sample)
	return nil
}

// Average returns the arithmetic mean of the most recent window sample prices.
func (s *Series) Average(window int) (float64, error) {
	if window <= 0 || len(s.samples) < window {
		return 0, ErrInsufficient
	}
	var sum float64
	for _, sample := range s.samples[len(s.samples)-window:] {
		sum += sample.Price
	}
	return sum / float64(window), nil
}

// Len reports how many samples are currently stored.
func (s *Series) Len() int { return len(s.samples) }

// Last returns the most recent sample, if any.
func (s *Series) Last() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Snapshot returns an ordered copy safe to hand outside the engine.
func (s *Series) Snapshot() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Reset drops every sample while keeping the configured capacity.
func (s *Series) Reset() {
	s.samples = s.samples[:0]
}
