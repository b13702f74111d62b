package model

import "github.com/miekg/dns"

// Query is a tuple (name, record-type, class=IN). Name must be fully qualified (terminal empty
// label, i.e. a trailing dot) before a Query enters the engine - the planner guarantees this.
type Query struct {
	Name string
	Type uint16 // one of the dns.Type* constants
}

// TypeString renders the query's record type as its conventional name, e.g. "A", "MX".
func (q Query) TypeString() string {
	return dns.TypeToString[q.Type]
}

func (q Query) String() string {
	return q.Name + " " + q.TypeString()
}

// QueryBatch is a set of Queries produced by the planner. The server set it is dispatched against
// is supplied separately to the engine (the pool, possibly an ad-hoc one synthesized by the Check
// pipeline) so the same batch can be replayed against different pools. Cardinality of the resulting
// dispatch is up to len(Queries) * len(pool).
type QueryBatch struct {
	Queries []Query
}
