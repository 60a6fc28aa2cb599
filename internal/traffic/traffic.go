// Package traffic keeps a short sliding window of request outcomes. The health
// endpoint derives its overloaded and degraded states from it.
package traffic

import (
	"sync"
	"time"
)

// Outcome classifies a finished request.
type Outcome uint8

const (
	Success Outcome = iota
	Failure
	Denied // rejected by the rate limiter
)

// retention bounds how far back any window query can look.
const retention = 10 * time.Minute

var defaultTracker = NewTracker()

// Record adds an outcome to the process-wide tracker.
func Record(o Outcome) { defaultTracker.Record(o) }

// RecordSuccess records a served request.
func RecordSuccess() { defaultTracker.Record(Success) }

// RecordError records a request that failed on the upstream or cache path.
func RecordError() { defaultTracker.Record(Failure) }

// RecordDenied records a rate-limit denial (429).
func RecordDenied() { defaultTracker.Record(Denied) }

// RequestCount returns all outcomes, denials included, within the window.
func RequestCount(window time.Duration) int { return defaultTracker.RequestCount(window) }

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int { return defaultTracker.DenialCount(window) }

// ErrorRate returns (errors, successes+errors) within the window.
func ErrorRate(window time.Duration) (errors, total int) { return defaultTracker.ErrorRate(window) }

// Reset clears the process-wide tracker. For tests only.
func Reset() { defaultTracker.Reset() }

type event struct {
	at      time.Time
	outcome Outcome
}

// Tracker records timestamped outcomes in arrival order.
type Tracker struct {
	mu     sync.Mutex
	events []event
	now    func() time.Time
}

// NewTracker returns an empty Tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Record appends an outcome stamped with the current time.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, outcome: o})
	t.pruneLocked(now)
}

// RequestCount returns every outcome within the window.
func (t *Tracker) RequestCount(window time.Duration) int {
	counts := t.count(window)
	return counts[Success] + counts[Failure] + counts[Denied]
}

// DenialCount returns the number of denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	return t.count(window)[Denied]
}

// ErrorRate returns (errors, total) within the window. Denials do not count toward either.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	counts := t.count(window)
	return counts[Failure], counts[Failure] + counts[Success]
}

// Reset drops all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

func (t *Tracker) count(window time.Duration) [3]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var counts [3]int
	cutoff := t.now().Add(-window)
	// events are appended in time order, so scan back from the newest.
	for i := len(t.events) - 1; i >= 0; i-- {
		e := t.events[i]
		if e.at.Before(cutoff) {
			break
		}
		counts[e.outcome]++
	}
	return counts
}

// pruneLocked drops events older than retention. Caller holds mu.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for ; i < len(t.events) && t.events[i].at.Before(cutoff); i++ {
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
