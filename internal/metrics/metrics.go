// Package metrics owns the process-wide failure counter used for
// operational alerting. Crossing the threshold only logs a warning; it
// never changes engine behavior.
package metrics

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	defaultThreshold = 10
	resetWindow      = time.Hour
)

// Collector is what the engines need for failure accounting.
type Collector interface {
	IncrementFailures()
	Failures() int
}

// FailureCounter counts failed interactions, auto-resetting after an hour
// of accumulation.
type FailureCounter struct {
	mu        sync.Mutex
	count     int
	lastReset time.Time
	threshold int
	clock     clockwork.Clock
}

// NewFailureCounter creates a counter using the given clock.
func NewFailureCounter(clock clockwork.Clock) *FailureCounter {
	return &FailureCounter{
		lastReset: clock.Now(),
		threshold: defaultThreshold,
		clock:     clock,
	}
}

// IncrementFailures records one failure, resetting the window when stale
// and warning when the threshold is crossed.
func (f *FailureCounter) IncrementFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	if now.Sub(f.lastReset) > resetWindow {
		f.count = 0
		f.lastReset = now
	}
	f.count++
	if f.count >= f.threshold {
		log.Warn().
			Int("failures", f.count).
			Time("since", f.lastReset).
			Msg("high interaction failure rate detected")
	}
}

// Failures returns the current count.
func (f *FailureCounter) Failures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Reset clears the counter.
func (f *FailureCounter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count = 0
	f.lastReset = f.clock.Now()
}

// NopCollector discards failure accounting; used in tests.
type NopCollector struct{}

func (NopCollector) IncrementFailures() {}
func (NopCollector) Failures() int      { return 0 }
