package engine

import (
	"fmt"

	"github.com/lukaspustina/mhost/internal/concurrencytracker"
	"github.com/lukaspustina/mhost/internal/reporter"
)

// Stats tracks peak in-flight (server, query) concurrency across calls to Run via a
// concurrencytracker.Counter. It satisfies reporter.Reporter so the CLI can log it alongside any
// other subsystem counters.
type Stats struct {
	inFlight concurrencytracker.Counter
}

var _ reporter.Reporter = (*Stats)(nil)

// Name identifies this Reporter's output, per the reporter.Reporter contract.
func (s *Stats) Name() string { return "engine" }

// Report renders the peak concurrent (server, query) fan-out observed since the last reset.
func (s *Stats) Report(resetCounters bool) string {
	return fmt.Sprintf("peak-in-flight=%d", s.inFlight.Peak(resetCounters))
}

// track marks one (server, query) attempt as in flight; the returned func must be called exactly
// once when the attempt terminates.
func (s *Stats) track() func() {
	s.inFlight.Add()
	return s.inFlight.Done
}
