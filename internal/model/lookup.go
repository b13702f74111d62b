package model

// Lookup holds every Response gathered for one Query across the dispatched server set. For every
// server in that set, exactly one terminal Response exists unless the batch was aborted early.
type Lookup struct {
	Query     Query
	Responses []Response
}

// RecordsOfType returns every Record of the given type across all Records-variant Responses in this
// Lookup, e.g. RecordsOfType("A") for "all records of type A".
func (l Lookup) RecordsOfType(typ string) []Record {
	var out []Record
	for _, r := range l.Responses {
		rr, ok := r.(*RecordsResponse)
		if !ok {
			continue
		}
		for _, rec := range rr.Records {
			if rec.Type() == typ {
				out = append(out, rec)
			}
		}
	}
	return out
}

// SOASerials returns the distinct SOA serial numbers seen across this Lookup's Records Responses,
// mapped to how many servers reported each - used by the Check pipeline's SOA authority lint.
func (l Lookup) SOASerials() map[uint32]int {
	out := make(map[uint32]int)
	for _, rec := range l.RecordsOfType("SOA") {
		soa := rec.(*SOARecord)
		out[soa.Serial]++
	}
	return out
}

// ServersWithKind returns the descriptors of every server whose terminal Response for this Lookup
// matches the given kind, e.g. ServersWithKind(KindNxDomain).
func (l Lookup) ServersWithKind(kind ResponseKind) []NameServerDescriptor {
	var out []NameServerDescriptor
	for _, r := range l.Responses {
		if r.Kind() == kind {
			out = append(out, r.Server())
		}
	}
	return out
}

// Lookups is the ordered collection of Lookup, one per distinct Query in a batch, in planner query
// order. Within a Lookup, Responses are ordered by arrival.
type Lookups struct {
	Items []Lookup
}

// ByQuery returns the Lookup for the given query, or the zero value and false if none was
// dispatched.
func (ls Lookups) ByQuery(q Query) (Lookup, bool) {
	for _, l := range ls.Items {
		if l.Query == q {
			return l, true
		}
	}
	return Lookup{}, false
}
