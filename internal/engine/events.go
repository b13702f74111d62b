package engine

import "github.com/lukaspustina/mhost/internal/model"

// Sink receives the engine's partial-result event stream: one Dispatched call per
// Run, one Received per terminal Response, one Settled per completed Lookup, and one BatchSettled
// once the whole batch has settled.
type Sink interface {
	Dispatched(count, serverCount, typeCount, nameCount int)
	Received(r model.Response)
	Settled(l model.Lookup)
	BatchSettled(ls model.Lookups)
}

// NopSink discards every event; it is the default when a caller passes a nil Sink to Run.
type NopSink struct{}

func (NopSink) Dispatched(count, serverCount, typeCount, nameCount int) {}
func (NopSink) Received(r model.Response)                              {}
func (NopSink) Settled(l model.Lookup)                                 {}
func (NopSink) BatchSettled(ls model.Lookups)                          {}

// ChanSink forwards every event as an Event value on Events, for callers (the CLI presenter, the
// Discover/Check pipelines' partial-result output) that want to consume the stream rather than
// implement Sink directly. BatchSettled closes Events after sending the final event.
type ChanSink struct {
	Events chan Event
}

// NewChanSink creates a ChanSink with the given channel buffer size.
func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{Events: make(chan Event, buffer)}
}

type Event interface{ isEvent() }

type QueryDispatched struct{ Count, ServerCount, TypeCount, NameCount int }
type ResponseReceived struct {
	Server model.NameServerDescriptor
	Query  model.Query
	Kind   model.ResponseKind
}
type QuerySettled struct{ Lookup model.Lookup }
type BatchSettled struct{ Lookups model.Lookups }

func (QueryDispatched) isEvent()  {}
func (ResponseReceived) isEvent() {}
func (QuerySettled) isEvent()     {}
func (BatchSettled) isEvent()     {}

func (s *ChanSink) Dispatched(count, serverCount, typeCount, nameCount int) {
	s.Events <- QueryDispatched{Count: count, ServerCount: serverCount, TypeCount: typeCount, NameCount: nameCount}
}

func (s *ChanSink) Received(r model.Response) {
	s.Events <- ResponseReceived{Server: r.Server(), Query: r.Query(), Kind: r.Kind()}
}

func (s *ChanSink) Settled(l model.Lookup) {
	s.Events <- QuerySettled{Lookup: l}
}

func (s *ChanSink) BatchSettled(ls model.Lookups) {
	s.Events <- BatchSettled{Lookups: ls}
	close(s.Events)
}
