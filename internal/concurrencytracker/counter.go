// Package concurrencytracker provides a gauge of concurrent activity. The engine wraps one around
// its (server, query) dispatch so the peak fan-out over a reporting period can be surfaced via the
// reporter interface. Typical usage:
//
//	var ct concurrencytracker.Counter
//
//	func work() {
//		ct.Add()
//		defer ct.Done()
//		// ...
//	}
//
// and elsewhere: fmt.Println("peak", ct.Peak(true))
package concurrencytracker

import (
	"sync"
)

// Counter tracks how many Add calls are currently unmatched by Done, and the highest that count
// has reached. The zero value is ready to use. Safe for concurrent use.
type Counter struct {
	mu      sync.Mutex
	current int // Count of pending Done() calls
	peak    int // Max 'current' has ever reached
}

// Add increments the gauge. Returns true when this call pushed the peak to a new high.
func (t *Counter) Add() (increased bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current++
	if t.current > t.peak {
		t.peak = t.current
		increased = true
	}

	return
}

// Done decrements the gauge. Calling Done without a matching prior Add is a caller bug and
// panics.
func (t *Counter) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == 0 {
		panic("concurrencytracker.Done() lacks matching .Add()")
	}
	t.current--
}

// Peak returns the highest concurrency seen. With resetCounters the peak is wound back down to
// the current gauge value *after* the return value is captured, so the reset is only visible to a
// subsequent call. The current gauge value itself is never reset.
func (t *Counter) Peak(resetCounters bool) (peak int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	peak = t.peak
	if resetCounters {
		t.peak = t.current
	}

	return
}
