// Package engine implements the Multi-Resolver Engine: the core that dispatches a QueryBatch
// across a pool of name servers under a dual concurrency budget, streams results as they land, and
// produces a Lookups aggregate once the batch settles.
package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lukaspustina/mhost/internal/model"

	"golang.org/x/sync/semaphore"
)

const me = "engine"

// ErrEmptyPool is returned when the pool supplied to Run has no members for the requested mode.
var ErrEmptyPool = errors.New(me + ": EmptyPool")

// Resolver is the Single-Server Resolver contract the engine dispatches against. A single call
// performs whatever retries the descriptor's budget allows internally and returns exactly one
// terminal Response; Arrival is left unset, the engine stamps it on receipt.
type Resolver interface {
	Resolve(ctx context.Context, server model.NameServerDescriptor, query model.Query, retries int, timeout time.Duration) model.Response
}

// Engine dispatches QueryBatches against a pool under a Resolver. Rand governs server selection in
// uni mode; inject a seeded source for deterministic tests.
type Engine struct {
	Resolver Resolver
	Rand     *rand.Rand

	// Stats, when non-nil, tracks peak in-flight (server, query) concurrency across Run calls; the
	// CLI prints its report to stderr under --debug.
	Stats *Stats
}

// New constructs an Engine with a time-seeded Rand; callers that need determinism should replace
// Rand before calling Run.
func New(resolver Resolver) *Engine {
	return &Engine{Resolver: resolver, Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

type queryState struct {
	mu        sync.Mutex
	query     model.Query
	ctx       context.Context
	cancel    context.CancelFunc
	responses []model.Response
	want      int
	got       int
	aborted   bool
	settled   bool
}

type serverWork struct {
	server  model.NameServerDescriptor
	queries []model.Query
}

// Run dispatches batch against pool under budgets, emitting events to sink as responses land, and
// returns the settled Lookups aggregate in planner query order.
func (e *Engine) Run(ctx context.Context, batch model.QueryBatch, pool []model.NameServerDescriptor, budgets model.Budgets, sink Sink) (model.Lookups, error) {
	if sink == nil {
		sink = NopSink{}
	}
	if len(pool) == 0 {
		return model.Lookups{}, ErrEmptyPool
	}

	batchCtx, cancelBatch := context.WithCancel(ctx)
	defer cancelBatch()

	assign := e.assignServers(batch.Queries, pool, budgets.Mode)

	order := append([]model.Query{}, batch.Queries...)
	states := make(map[model.Query]*queryState, len(order))
	for _, q := range order {
		qCtx, qCancel := context.WithCancel(batchCtx)
		states[q] = &queryState{query: q, ctx: qCtx, cancel: qCancel, want: len(assign[q])}
	}

	work := buildServerWork(order, pool, assign, budgets.Mode)

	dispatched := 0
	for _, w := range work {
		dispatched += len(w.queries)
	}
	sink.Dispatched(dispatched, len(work), countDistinctTypes(order), countDistinctNames(order))

	var arrivalCounter uint64
	globalSem := semaphore.NewWeighted(int64(max1(budgets.MaxConcurrentServers)))

	var wg sync.WaitGroup
	for _, w := range work {
		wg.Add(1)
		go func(w serverWork) {
			defer wg.Done()
			if err := globalSem.Acquire(batchCtx, 1); err != nil {
				return
			}
			defer globalSem.Release(1)
			e.runServer(w, states, budgets, sink, &arrivalCounter)
		}(w)
	}
	wg.Wait()

	items := make([]model.Lookup, 0, len(order))
	for _, q := range order {
		st := states[q]
		st.mu.Lock()
		items = append(items, model.Lookup{Query: q, Responses: append([]model.Response{}, st.responses...)})
		st.mu.Unlock()
	}

	ls := model.Lookups{Items: items}
	sink.BatchSettled(ls)

	return ls, nil
}

// runServer processes one server's assigned queries under a per-server semaphore of size K,
// gating how many of this server's queries may be in flight simultaneously.
func (e *Engine) runServer(w serverWork, states map[model.Query]*queryState, budgets model.Budgets, sink Sink, arrivalCounter *uint64) {
	perServerSem := semaphore.NewWeighted(int64(max1(budgets.MaxConcurrentPerServer)))

	var wg sync.WaitGroup
	for _, q := range w.queries {
		st := states[q]
		wg.Add(1)
		go func(q model.Query, st *queryState) {
			defer wg.Done()
			if err := perServerSem.Acquire(st.ctx, 1); err != nil {
				return // query aborted or batch cancelled before a slot freed up
			}
			defer perServerSem.Release(1)

			if e.Stats != nil {
				done := e.Stats.track()
				defer done()
			}

			resp := e.Resolver.Resolve(st.ctx, w.server, q, budgets.Retries, budgets.Timeout)
			e.record(resp, st, budgets, sink, arrivalCounter)
		}(q, st)
	}
	wg.Wait()
}

// record stamps resp with the next arrival counter value, appends it to its query's Lookup,
// applies the abort policy, and emits the Received/Settled events.
func (e *Engine) record(resp model.Response, st *queryState, budgets model.Budgets, sink Sink, arrivalCounter *uint64) {
	st.mu.Lock()
	if st.aborted {
		st.mu.Unlock()
		return // late response after abort-triggered cancellation; drop it
	}

	arrival := atomic.AddUint64(arrivalCounter, 1)
	model.SetArrival(resp, arrival)
	st.responses = append(st.responses, resp)
	st.got++

	switch resp.Kind() {
	case model.KindError:
		if budgets.AbortOnError {
			st.aborted = true
			st.cancel()
		}
	case model.KindTimeout:
		if budgets.AbortOnTimeout {
			st.aborted = true
			st.cancel()
		}
	}

	newlySettled := false
	if (st.got >= st.want || st.aborted) && !st.settled {
		st.settled = true
		newlySettled = true
	}
	var snapshot model.Lookup
	if newlySettled {
		snapshot = model.Lookup{Query: st.query, Responses: append([]model.Response{}, st.responses...)}
	}
	st.mu.Unlock()

	sink.Received(resp)
	if newlySettled {
		sink.Settled(snapshot)
	}
}

// assignServers resolves, for each query, the set of servers it is dispatched to: every pool
// member in multi mode, or one uniformly-chosen member in uni mode.
func (e *Engine) assignServers(queries []model.Query, pool []model.NameServerDescriptor, mode model.ResolversMode) map[model.Query][]model.NameServerDescriptor {
	assign := make(map[model.Query][]model.NameServerDescriptor, len(queries))
	if mode == model.ModeUni {
		for _, q := range queries {
			assign[q] = []model.NameServerDescriptor{pool[e.Rand.Intn(len(pool))]}
		}
		return assign
	}
	for _, q := range queries {
		assign[q] = pool
	}
	return assign
}

// buildServerWork enumerates the (server, query) dispatch deterministically in (server-order,
// query-order).
func buildServerWork(order []model.Query, pool []model.NameServerDescriptor, assign map[model.Query][]model.NameServerDescriptor, mode model.ResolversMode) []serverWork {
	if mode == model.ModeUni {
		index := make(map[string]int)
		var work []serverWork
		for _, q := range order {
			srv := assign[q][0]
			i, ok := index[srv.Key()]
			if !ok {
				i = len(work)
				index[srv.Key()] = i
				work = append(work, serverWork{server: srv})
			}
			work[i].queries = append(work[i].queries, q)
		}
		return work
	}

	work := make([]serverWork, 0, len(pool))
	for _, srv := range pool {
		work = append(work, serverWork{server: srv, queries: order})
	}
	return work
}

func countDistinctTypes(queries []model.Query) int {
	seen := make(map[uint16]bool)
	for _, q := range queries {
		seen[q.Type] = true
	}
	return len(seen)
}

func countDistinctNames(queries []model.Query) int {
	seen := make(map[string]bool)
	for _, q := range queries {
		seen[q.Name] = true
	}
	return len(seen)
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
