package metrics

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestFailureCounterAccumulates(t *testing.T) {
	clock := clockwork.NewFakeClock()
	counter := NewFailureCounter(clock)

	for i := 0; i < 5; i++ {
		counter.IncrementFailures()
	}
	if got := counter.Failures(); got != 5 {
		t.Fatalf("Failures() = %d, want 5", got)
	}
}

func TestFailureCounterWindowReset(t *testing.T) {
	clock := clockwork.NewFakeClock()
	counter := NewFailureCounter(clock)

	for i := 0; i < 7; i++ {
		counter.IncrementFailures()
	}

	// Inside the window the count keeps growing.
	clock.Advance(30 * time.Minute)
	counter.IncrementFailures()
	if got := counter.Failures(); got != 8 {
		t.Fatalf("Failures() = %d, want 8", got)
	}

	// A failure past the window starts a fresh count.
	clock.Advance(2 * time.Hour)
	counter.IncrementFailures()
	if got := counter.Failures(); got != 1 {
		t.Fatalf("Failures() = %d after window reset, want 1", got)
	}
}

func TestFailureCounterManualReset(t *testing.T) {
	clock := clockwork.NewFakeClock()
	counter := NewFailureCounter(clock)

	counter.IncrementFailures()
	counter.IncrementFailures()
	counter.Reset()
	if got := counter.Failures(); got != 0 {
		t.Fatalf("Failures() = %d after reset, want 0", got)
	}
}
