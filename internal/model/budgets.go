package model

import "time"

// ResolversMode selects how a QueryBatch is dispatched across the pool.
type ResolversMode string

const (
	ModeMulti ResolversMode = "multi" // every query sent to every pool member
	ModeUni   ResolversMode = "uni"   // every query sent to one randomly chosen pool member
)

// Budgets holds the engine-wide concurrency and retry knobs. Per-server retry/timeout parameters
// are part of a descriptor's runtime binding, not its identity, so they live here rather
// than on NameServerDescriptor.
type Budgets struct {
	MaxConcurrentServers   int           // M: global semaphore size
	MaxConcurrentPerServer int           // K: per-server semaphore size
	Retries                int           // R
	Timeout                time.Duration // T, per attempt
	WaitMultipleResponses  bool          // W
	AbortOnError           bool
	AbortOnTimeout         bool
	Mode                   ResolversMode
}

// DefaultBudgets mirrors the CLI defaults.
func DefaultBudgets() Budgets {
	return Budgets{
		MaxConcurrentServers:   10,
		MaxConcurrentPerServer: 5,
		Retries:                0,
		Timeout:                5 * time.Second,
		WaitMultipleResponses:  false,
		AbortOnError:           true,
		AbortOnTimeout:         true,
		Mode:                   ModeMulti,
	}
}
