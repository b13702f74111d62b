// Package check implements the Check (Lint) Pipeline: three independent zone-health
// lints - SOA authority, CNAME placement, SPF validity - all composing on engine sub-queries. Like
// the Discover Pipeline, it owns no resolvers of its own; the SOA lint's authoritative-server pool
// is synthesized ad hoc per run and handed to the same engine the rest of mhost uses.
package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/lukaspustina/mhost/internal/engine"
	"github.com/lukaspustina/mhost/internal/model"

	"github.com/miekg/dns"
)

const me = "check"

// Config selects which lints run and how much intermediate detail is surfaced.
type Config struct {
	NoSOA   bool // --no-soa
	NoCNAME bool // --no-cnames
	NoSPF   bool // --no-spf

	ShowIntermediateLookups bool // --show-intermediate-lookups
	ShowPartialResults      bool // --show-partial-results
}

// Sink receives each step's intermediate lookups when ShowIntermediateLookups or
// ShowPartialResults is set.
type Sink interface {
	Partial(step string, lookups model.Lookups)
}

type NopSink struct{}

func (NopSink) Partial(step string, lookups model.Lookups) {}

type engineRunner interface {
	Run(ctx context.Context, batch model.QueryBatch, pool []model.NameServerDescriptor, budgets model.Budgets, sink engine.Sink) (model.Lookups, error)
}

// SOAResult reports the outcome of the SOA authority check.
type SOAResult struct {
	Skipped              bool
	SkipReason           string
	Synced               bool
	SerialDivergence     map[uint32]int // populated iff serials differ across authoritative servers
	StructuralDivergence bool           // MNAME/RNAME/refresh/retry/expire/minimum differ
	DefaultPoolMismatch  bool           // default-pool SOA absent from the authoritative SOA set
}

// CNAMEResult reports CNAME-placement violations.
type CNAMEResult struct {
	Skipped         bool
	SkipReason      string
	ApexHasCNAME    bool
	MXTargetsCNAME  []string // MX exchange names that are themselves CNAMEs
	SRVTargetsCNAME []string
	CNAMEChains     []string // CNAME targets that are themselves CNAMEs
}

// SPFResult reports the outcome of the SPF lint.
type SPFResult struct {
	Skipped    bool
	SkipReason string
	Present    bool
	Count      int // number of apex TXT records beginning with "v=spf1"
	Valid      bool
	Errors     []string
}

// Result bundles every lint this pipeline ran. A nil field means --no-* disabled that lint.
type Result struct {
	SOA   *SOAResult
	CNAME *CNAMEResult
	SPF   *SPFResult
}

// Run executes the lints Config enables against apex, using pool as the default lookup pool.
func Run(ctx context.Context, eng engineRunner, pool []model.NameServerDescriptor, budgets model.Budgets, apex string, cfg Config, sink Sink) (Result, error) {
	if sink == nil || (!cfg.ShowIntermediateLookups && !cfg.ShowPartialResults) {
		sink = NopSink{}
	}
	apex = dns.Fqdn(apex)

	var result Result
	if !cfg.NoSOA {
		r, err := checkSOA(ctx, eng, pool, budgets, apex, sink)
		if err != nil {
			return Result{}, fmt.Errorf("%s: SOA check: %w", me, err)
		}
		result.SOA = &r
	}
	if !cfg.NoCNAME {
		r, err := checkCNAME(ctx, eng, pool, budgets, apex, sink)
		if err != nil {
			return Result{}, fmt.Errorf("%s: CNAME check: %w", me, err)
		}
		result.CNAME = &r
	}
	if !cfg.NoSPF {
		r, err := checkSPF(ctx, eng, pool, budgets, apex, sink)
		if err != nil {
			return Result{}, fmt.Errorf("%s: SPF check: %w", me, err)
		}
		result.SPF = &r
	}

	return result, nil
}

// checkSOA resolves NS at apex, resolves A/AAAA of each NS target, queries SOA directly at each
// authoritative server via a synthetic ad-hoc pool, and compares the results.
func checkSOA(ctx context.Context, eng engineRunner, pool []model.NameServerDescriptor, budgets model.Budgets, apex string, sink Sink) (SOAResult, error) {
	nsBatch := model.QueryBatch{Queries: []model.Query{{Name: apex, Type: dns.TypeNS}}}
	nsLookups, err := eng.Run(ctx, nsBatch, pool, budgets, nil)
	if err != nil {
		return SOAResult{}, err
	}
	sink.Partial("soa:ns", nsLookups)

	var nsTargets []string
	for _, l := range nsLookups.Items {
		for _, rec := range l.RecordsOfType("NS") {
			nsTargets = append(nsTargets, rec.(*model.NSRecord).Target)
		}
	}
	if len(nsTargets) == 0 {
		return SOAResult{Skipped: true, SkipReason: "unable to resolve NS records at apex"}, nil
	}

	addrBatch := model.QueryBatch{}
	for _, ns := range nsTargets {
		addrBatch.Queries = append(addrBatch.Queries, model.Query{Name: ns, Type: dns.TypeA}, model.Query{Name: ns, Type: dns.TypeAAAA})
	}
	addrLookups, err := eng.Run(ctx, addrBatch, pool, budgets, nil)
	if err != nil {
		return SOAResult{}, err
	}
	sink.Partial("soa:ns-addrs", addrLookups)

	var authPool []model.NameServerDescriptor
	seen := make(map[string]bool)
	for _, l := range addrLookups.Items {
		for _, rec := range append(l.RecordsOfType("A"), l.RecordsOfType("AAAA")...) {
			addr := addrOf(rec)
			d := model.NameServerDescriptor{Transport: model.TransportUDP, Addr: addr, Port: 53, Origin: model.OriginDiscoveredAuthoritative}
			if !seen[d.Key()] {
				seen[d.Key()] = true
				authPool = append(authPool, d)
			}
		}
	}
	if len(authPool) == 0 {
		return SOAResult{Skipped: true, SkipReason: "unable to resolve any authoritative server address"}, nil
	}

	soaBatch := model.QueryBatch{Queries: []model.Query{{Name: apex, Type: dns.TypeSOA}}}
	authLookups, err := eng.Run(ctx, soaBatch, authPool, budgets, nil)
	if err != nil {
		return SOAResult{}, err
	}
	sink.Partial("soa:authoritative", authLookups)

	var authoritativeSOAs []*model.SOARecord
	for _, l := range authLookups.Items {
		for _, rec := range l.RecordsOfType("SOA") {
			authoritativeSOAs = append(authoritativeSOAs, rec.(*model.SOARecord))
		}
	}
	if len(authoritativeSOAs) == 0 {
		return SOAResult{Skipped: true, SkipReason: "no authoritative server answered SOA"}, nil
	}

	serialCounts := make(map[uint32]int)
	for _, soa := range authoritativeSOAs {
		serialCounts[soa.Serial]++
	}

	structuralDivergence := false
	first := authoritativeSOAs[0]
	for _, soa := range authoritativeSOAs[1:] {
		if soa.Ns != first.Ns || soa.Mbox != first.Mbox || soa.Refresh != first.Refresh ||
			soa.Retry != first.Retry || soa.Expire != first.Expire || soa.Minttl != first.Minttl {
			structuralDivergence = true
			break
		}
	}

	result := SOAResult{
		Synced:               len(serialCounts) == 1 && !structuralDivergence,
		StructuralDivergence: structuralDivergence,
	}
	if len(serialCounts) > 1 {
		result.SerialDivergence = serialCounts
	}

	defaultLookups, err := eng.Run(ctx, soaBatch, pool, budgets, nil)
	if err != nil {
		return SOAResult{}, err
	}
	sink.Partial("soa:default-pool", defaultLookups)
	for _, l := range defaultLookups.Items {
		for _, rec := range l.RecordsOfType("SOA") {
			soa := rec.(*model.SOARecord)
			found := false
			for _, a := range authoritativeSOAs {
				if a.Serial == soa.Serial {
					found = true
					break
				}
			}
			if !found {
				result.DefaultPoolMismatch = true
			}
		}
	}

	return result, nil
}

// checkCNAME verifies the placement rules: no CNAME at apex, no MX/SRV target is a
// CNAME, no CNAME points to another CNAME.
func checkCNAME(ctx context.Context, eng engineRunner, pool []model.NameServerDescriptor, budgets model.Budgets, apex string, sink Sink) (CNAMEResult, error) {
	batch := model.QueryBatch{Queries: []model.Query{
		{Name: apex, Type: dns.TypeCNAME},
		{Name: apex, Type: dns.TypeMX},
		{Name: apex, Type: dns.TypeSRV},
	}}
	lookups, err := eng.Run(ctx, batch, pool, budgets, nil)
	if err != nil {
		return CNAMEResult{}, err
	}
	sink.Partial("cname:apex", lookups)

	var result CNAMEResult
	var candidateTargets []string

	for _, l := range lookups.Items {
		switch l.Query.Type {
		case dns.TypeCNAME:
			if len(l.RecordsOfType("CNAME")) > 0 {
				result.ApexHasCNAME = true
				for _, rec := range l.RecordsOfType("CNAME") {
					candidateTargets = append(candidateTargets, rec.(*model.CNAMERecord).Target)
				}
			}
		case dns.TypeMX:
			for _, rec := range l.RecordsOfType("MX") {
				candidateTargets = append(candidateTargets, rec.(*model.MXRecord).Exchange)
			}
		case dns.TypeSRV:
			for _, rec := range l.RecordsOfType("SRV") {
				candidateTargets = append(candidateTargets, rec.(*model.SRVRecord).Target)
			}
		}
	}

	if len(candidateTargets) == 0 {
		return result, nil
	}

	checkBatch := model.QueryBatch{}
	for _, t := range candidateTargets {
		checkBatch.Queries = append(checkBatch.Queries, model.Query{Name: t, Type: dns.TypeCNAME})
	}
	checkLookups, err := eng.Run(ctx, checkBatch, pool, budgets, nil)
	if err != nil {
		return CNAMEResult{}, err
	}
	sink.Partial("cname:targets", checkLookups)

	mxExchanges := make(map[string]bool)
	srvTargets := make(map[string]bool)
	for _, l := range lookups.Items {
		if l.Query.Type == dns.TypeMX {
			for _, rec := range l.RecordsOfType("MX") {
				mxExchanges[rec.(*model.MXRecord).Exchange] = true
			}
		}
		if l.Query.Type == dns.TypeSRV {
			for _, rec := range l.RecordsOfType("SRV") {
				srvTargets[rec.(*model.SRVRecord).Target] = true
			}
		}
	}

	for _, l := range checkLookups.Items {
		if len(l.RecordsOfType("CNAME")) == 0 {
			continue
		}
		switch {
		case mxExchanges[l.Query.Name]:
			result.MXTargetsCNAME = append(result.MXTargetsCNAME, l.Query.Name)
		case srvTargets[l.Query.Name]:
			result.SRVTargetsCNAME = append(result.SRVTargetsCNAME, l.Query.Name)
		default:
			result.CNAMEChains = append(result.CNAMEChains, l.Query.Name)
		}
	}

	return result, nil
}

// checkSPF verifies exactly one apex TXT record begins with "v=spf1" and that it parses per RFC
// 7208's mechanism/qualifier/modifier grammar. Recursive include:/redirect= expansion is explicitly
// not performed.
func checkSPF(ctx context.Context, eng engineRunner, pool []model.NameServerDescriptor, budgets model.Budgets, apex string, sink Sink) (SPFResult, error) {
	batch := model.QueryBatch{Queries: []model.Query{{Name: apex, Type: dns.TypeTXT}}}
	lookups, err := eng.Run(ctx, batch, pool, budgets, nil)
	if err != nil {
		return SPFResult{}, err
	}
	sink.Partial("spf:apex", lookups)

	var spfRecords []string
	for _, l := range lookups.Items {
		for _, rec := range l.RecordsOfType("TXT") {
			txt := strings.Join(rec.(*model.TXTRecord).Txt, "")
			if strings.HasPrefix(txt, "v=spf1") {
				spfRecords = append(spfRecords, txt)
			}
		}
	}

	result := SPFResult{Count: len(spfRecords)}
	if len(spfRecords) == 0 {
		return result, nil
	}
	result.Present = true

	if len(spfRecords) > 1 {
		result.Errors = append(result.Errors, fmt.Sprintf("expected exactly one v=spf1 record, found %d", len(spfRecords)))
		return result, nil
	}

	errs := validateSPF(spfRecords[0])
	result.Errors = errs
	result.Valid = len(errs) == 0
	return result, nil
}

func addrOf(rec model.Record) string {
	switch v := rec.(type) {
	case *model.ARecord:
		return v.Addr
	case *model.AAAARecord:
		return v.Addr
	default:
		return ""
	}
}
