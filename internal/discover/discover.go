// Package discover implements the Discover Pipeline: a multi-step walk that feeds its
// own derived queries back through the Multi-Resolver Engine to build up a set of discovered names
// under a zone apex. Each step is an ordinary engine.Run call; the pipeline itself owns no
// resolvers, only bookkeeping, so it is re-entrant the same way the engine is.
package discover

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/lukaspustina/mhost/internal/engine"
	"github.com/lukaspustina/mhost/internal/model"

	"github.com/miekg/dns"
)

const me = "discover"

// wellKnownLabels is the built-in list queried in the Well-known labels step: common
// hostnames plus SRV service prefixes for the handful of services worth probing unconditionally.
var wellKnownLabels = []string{
	"www", "mail", "ftp", "api", "webmail", "ns1", "ns2", "vpn", "admin", "blog", "dev", "staging",
}

var wellKnownSRVPrefixes = []string{"_smtp._tcp", "_http._tcp", "_sip._tcp", "_https._tcp"}

// apexRecordTypes is resolved once per apex during the Authority enumeration step.
var apexRecordTypes = []string{"NS", "MX", "SOA", "TXT", "CNAME", "SRV", "CAA"}

// Config carries the pipeline's tunables, all sourced from CLI flags.
type Config struct {
	RndNamesNumber     int      // number of random labels generated for wildcard detection
	RndNamesLen        int      // length of each random label
	Words              []string // --wordlist-from-file, pre-read by the caller
	SubdomainsOnly     bool     // --subdomains-only
	ShowPartialResults bool     // emit a Partial event after each step

	// Rand governs random-label generation; inject a seeded source for deterministic tests (the
	// same pattern engine.Engine uses for uni-mode server selection).
	Rand *rand.Rand
}

// DefaultConfig mirrors the CLI defaults.
func DefaultConfig() Config {
	return Config{
		RndNamesNumber: 3,
		RndNamesLen:    32,
		Rand:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Sink receives intermediate Lookups when ShowPartialResults is set, one call per completed step.
type Sink interface {
	Partial(step string, lookups model.Lookups)
}

// NopSink discards every partial-result event.
type NopSink struct{}

func (NopSink) Partial(step string, lookups model.Lookups) {}

// Result is the pipeline's final output: every discovered name, partitioned into ordinary hits and
// suspicious ones that only resolved because the zone is wildcarded.
type Result struct {
	Wildcarded      bool
	WildcardRecords []string // stringified rdata of the records a random label resolved to
	Discovered      []string
	Suspicious      []string
}

type engineRunner interface {
	Run(ctx context.Context, batch model.QueryBatch, pool []model.NameServerDescriptor, budgets model.Budgets, sink engine.Sink) (model.Lookups, error)
}

// Run executes the five-step walk against apex, in order, via the same engine and pool. Each step
// builds its own candidate names; the names every step discovers are merged into one Result.
func Run(ctx context.Context, eng engineRunner, pool []model.NameServerDescriptor, budgets model.Budgets, apex string, cfg Config, sink Sink) (Result, error) {
	if sink == nil || !cfg.ShowPartialResults {
		sink = NopSink{}
	}
	apex = dns.Fqdn(apex)

	wildcarded, wildcardRecords, err := detectWildcard(ctx, eng, pool, budgets, apex, cfg, sink)
	if err != nil {
		return Result{}, fmt.Errorf("%s: wildcard detection: %w", me, err)
	}

	discovered := make(map[string]bool)
	signatures := make(map[string][]string) // name -> its resolved A/AAAA rdata, for wildcard comparison

	authNames, err := enumerateAuthority(ctx, eng, pool, budgets, apex, sink)
	if err != nil {
		return Result{}, fmt.Errorf("%s: authority enumeration: %w", me, err)
	}
	for _, n := range authNames {
		discovered[n] = true
	}

	wkHits, err := probeNames(ctx, eng, pool, budgets, buildWellKnownCandidates(apex), sink, "well-known-labels")
	if err != nil {
		return Result{}, fmt.Errorf("%s: well-known labels: %w", me, err)
	}
	for n, sig := range wkHits {
		discovered[n] = true
		signatures[n] = sig
	}

	if len(cfg.Words) > 0 {
		var candidates []string
		for _, w := range cfg.Words {
			candidates = append(candidates, dns.Fqdn(w+"."+strings.TrimSuffix(apex, ".")))
		}
		wordHits, err := probeNames(ctx, eng, pool, budgets, candidates, sink, "wordlist")
		if err != nil {
			return Result{}, fmt.Errorf("%s: wordlist expansion: %w", me, err)
		}
		for n, sig := range wordHits {
			discovered[n] = true
			signatures[n] = sig
		}
	}

	var result Result
	result.Wildcarded = wildcarded
	result.WildcardRecords = wildcardRecords

	for n := range discovered {
		if cfg.SubdomainsOnly && !isProperSubdomain(n, apex) {
			continue
		}
		if wildcarded && matchesWildcard(signatures[n], wildcardRecords) {
			result.Suspicious = append(result.Suspicious, n)
			continue
		}
		result.Discovered = append(result.Discovered, n)
	}

	// Discovered names accumulate in a map; sort so the same zone always reports in the same
	// order regardless of map iteration.
	sort.Strings(result.Discovered)
	sort.Strings(result.Suspicious)

	return result, nil
}

// detectWildcard generates RndNamesNumber random labels under apex and resolves A/AAAA for each. If
// any resolves to a non-empty record set, the zone is marked wildcarded and the resolved rdata
// recorded as the wildcard target set.
func detectWildcard(ctx context.Context, eng engineRunner, pool []model.NameServerDescriptor, budgets model.Budgets, apex string, cfg Config, sink Sink) (bool, []string, error) {
	var candidates []string
	for i := 0; i < cfg.RndNamesNumber; i++ {
		candidates = append(candidates, dns.Fqdn(randomLabel(cfg.Rand, cfg.RndNamesLen)+"."+strings.TrimSuffix(apex, ".")))
	}

	batch := model.QueryBatch{}
	for _, c := range candidates {
		batch.Queries = append(batch.Queries, model.Query{Name: c, Type: dns.TypeA}, model.Query{Name: c, Type: dns.TypeAAAA})
	}

	lookups, err := eng.Run(ctx, batch, pool, budgets, nil)
	if err != nil {
		return false, nil, err
	}
	if sink != nil {
		sink.Partial("wildcard-detection", lookups)
	}

	var wildcardRecords []string
	for _, l := range lookups.Items {
		for _, rec := range append(l.RecordsOfType("A"), l.RecordsOfType("AAAA")...) {
			wildcardRecords = append(wildcardRecords, fmt.Sprintf("%v", rec.Data()))
		}
	}

	return len(wildcardRecords) > 0, dedupStrings(wildcardRecords), nil
}

// enumerateAuthority resolves the Authority enumeration record set at apex and extracts every name
// mentioned in rdata: NS targets, MX exchanges, CNAME targets, SRV targets, SOA MNAME/RNAME.
func enumerateAuthority(ctx context.Context, eng engineRunner, pool []model.NameServerDescriptor, budgets model.Budgets, apex string, sink Sink) ([]string, error) {
	batch := model.QueryBatch{}
	for _, t := range apexRecordTypes {
		rt, ok := dns.StringToType[t]
		if !ok {
			continue
		}
		batch.Queries = append(batch.Queries, model.Query{Name: apex, Type: rt})
	}

	lookups, err := eng.Run(ctx, batch, pool, budgets, nil)
	if err != nil {
		return nil, err
	}
	if sink != nil {
		sink.Partial("authority-enumeration", lookups)
	}

	var names []string
	for _, l := range lookups.Items {
		for _, rec := range l.RecordsOfType("NS") {
			names = append(names, rec.(*model.NSRecord).Target)
		}
		for _, rec := range l.RecordsOfType("MX") {
			names = append(names, rec.(*model.MXRecord).Exchange)
		}
		for _, rec := range l.RecordsOfType("CNAME") {
			names = append(names, rec.(*model.CNAMERecord).Target)
		}
		for _, rec := range l.RecordsOfType("SRV") {
			names = append(names, rec.(*model.SRVRecord).Target)
		}
		for _, rec := range l.RecordsOfType("SOA") {
			soa := rec.(*model.SOARecord)
			names = append(names, soa.Ns, soa.Mbox)
		}
	}

	return dedupStrings(names), nil
}

// buildWellKnownCandidates constructs <label>.<apex> for every built-in label and SRV prefix.
func buildWellKnownCandidates(apex string) []string {
	base := strings.TrimSuffix(apex, ".")
	var out []string
	for _, l := range wellKnownLabels {
		out = append(out, dns.Fqdn(l+"."+base))
	}
	for _, p := range wellKnownSRVPrefixes {
		out = append(out, dns.Fqdn(p+"."+base))
	}
	return out
}

// probeNames resolves the default record set for every candidate and returns, for each candidate
// that produced at least one Records response, its resolved A/AAAA rdata signature - used by the
// caller to tell a genuine hit from a name that only "resolved" because the zone is wildcarded.
func probeNames(ctx context.Context, eng engineRunner, pool []model.NameServerDescriptor, budgets model.Budgets, candidates []string, sink Sink, step string) (map[string][]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	batch := model.QueryBatch{}
	for _, c := range candidates {
		batch.Queries = append(batch.Queries,
			model.Query{Name: c, Type: dns.TypeA}, model.Query{Name: c, Type: dns.TypeAAAA}, model.Query{Name: c, Type: dns.TypeSRV})
	}

	lookups, err := eng.Run(ctx, batch, pool, budgets, nil)
	if err != nil {
		return nil, err
	}
	if sink != nil {
		sink.Partial(step, lookups)
	}

	hits := make(map[string][]string)
	for _, l := range lookups.Items {
		var sig []string
		for _, rec := range append(l.RecordsOfType("A"), l.RecordsOfType("AAAA")...) {
			sig = append(sig, fmt.Sprintf("%v", rec.Data()))
		}
		hasSRV := len(l.RecordsOfType("SRV")) > 0
		if len(sig) == 0 && !hasSRV {
			continue
		}
		hits[l.Query.Name] = dedupStrings(append(hits[l.Query.Name], sig...))
	}
	return hits, nil
}

// matchesWildcard reports whether a name's resolved A/AAAA signature is exactly the wildcard target
// set, meaning the name only "resolved" because the zone answers any label with the same content
//: such a discovery is reported as suspicious rather than a genuine hit.
func matchesWildcard(signature, wildcardRecords []string) bool {
	if len(signature) == 0 || len(signature) != len(wildcardRecords) {
		return false
	}
	want := make(map[string]bool, len(wildcardRecords))
	for _, w := range wildcardRecords {
		want[w] = true
	}
	for _, s := range signature {
		if !want[s] {
			return false
		}
	}
	return true
}

func isProperSubdomain(name, apex string) bool {
	name = dns.Fqdn(name)
	apex = dns.Fqdn(apex)
	return name != apex && strings.HasSuffix(name, "."+apex)
}

const randomLabelAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomLabel(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = randomLabelAlphabet[r.Intn(len(randomLabelAlphabet))]
	}
	return string(b)
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
