package check

import (
	"context"
	"testing"

	"github.com/lukaspustina/mhost/internal/engine"
	"github.com/lukaspustina/mhost/internal/model"

	"github.com/miekg/dns"
)

// fakeEngine is a scripted engineRunner: each call to Run consumes the next canned Lookups in
// script, in order, letting a test assert on the exact sequence of sub-queries the pipeline issues.
type fakeEngine struct {
	script []model.Lookups
	calls  int
}

func (f *fakeEngine) Run(ctx context.Context, batch model.QueryBatch, pool []model.NameServerDescriptor, budgets model.Budgets, sink engine.Sink) (model.Lookups, error) {
	if f.calls >= len(f.script) {
		return model.Lookups{}, nil
	}
	ls := f.script[f.calls]
	f.calls++
	return ls, nil
}

func recordsLookup(q model.Query, server model.NameServerDescriptor, recs ...model.Record) model.Lookup {
	return model.Lookup{Query: q, Responses: []model.Response{model.NewRecords(server, q, 0, recs, 0, 0)}}
}

func srv(addr string) model.NameServerDescriptor {
	return model.NameServerDescriptor{Transport: model.TransportUDP, Addr: addr, Port: 53}
}

// TestSOASerialDivergence: three authoritative servers return serial
// 2017042801 and two return 2017042802.
func TestSOASerialDivergence(t *testing.T) {
	apex := "example.com."
	nsQ := model.Query{Name: apex, Type: dns.TypeNS}
	aQ := model.Query{Name: "ns1.example.com.", Type: dns.TypeA}
	aaaaQ := model.Query{Name: "ns1.example.com.", Type: dns.TypeAAAA}
	soaQ := model.Query{Name: apex, Type: dns.TypeSOA}

	nsLookups := model.Lookups{Items: []model.Lookup{
		recordsLookup(nsQ, srv("192.0.2.1"), &model.NSRecord{Target: "ns1.example.com."}),
	}}
	addrLookups := model.Lookups{Items: []model.Lookup{
		recordsLookup(aQ, srv("192.0.2.1"), &model.ARecord{Addr: "198.51.100.1"}),
		{Query: aaaaQ, Responses: []model.Response{model.NewNoRecords(srv("192.0.2.1"), aaaaQ, 0, 0)}},
	}}

	base := model.SOARecord{Ns: "ns1.example.com.", Mbox: "hostmaster.example.com.", Refresh: 1, Retry: 2, Expire: 3, Minttl: 4}

	serials := []uint32{2017042801, 2017042801, 2017042801, 2017042802, 2017042802}
	// The pipeline issues one SOA batch against the synthetic authoritative pool and gets back a
	// single Lookup with one Response per server.
	var responses []model.Response
	for i, s := range serials {
		soa := base
		soa.Serial = s
		responses = append(responses, model.NewRecords(srv("192.0.2.1"), soaQ, uint64(i), []model.Record{&soa}, 0, 0))
	}
	authLookups := model.Lookups{Items: []model.Lookup{{Query: soaQ, Responses: responses}}}

	defaultSOA := base
	defaultSOA.Serial = 2017042801
	defaultLookups := model.Lookups{Items: []model.Lookup{
		recordsLookup(soaQ, srv("203.0.113.53"), &defaultSOA),
	}}

	eng := &fakeEngine{script: []model.Lookups{nsLookups, addrLookups, authLookups, defaultLookups}}

	result, err := Run(context.Background(), eng, []model.NameServerDescriptor{srv("203.0.113.53")}, model.DefaultBudgets(), apex,
		Config{NoCNAME: true, NoSPF: true}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.SOA == nil {
		t.Fatal("expected a SOA result")
	}
	if result.SOA.Synced {
		t.Error("expected SOA serials to be reported as diverged, not synced")
	}
	if result.SOA.SerialDivergence[2017042801] != 3 || result.SOA.SerialDivergence[2017042802] != 2 {
		t.Errorf("unexpected serial divergence map: %v", result.SOA.SerialDivergence)
	}
}

func TestCNAMEAtApexFlagged(t *testing.T) {
	apex := "example.com."
	cnameQ := model.Query{Name: apex, Type: dns.TypeCNAME}
	mxQ := model.Query{Name: apex, Type: dns.TypeMX}
	srvQ := model.Query{Name: apex, Type: dns.TypeSRV}

	apexLookups := model.Lookups{Items: []model.Lookup{
		recordsLookup(cnameQ, srv("192.0.2.1"), &model.CNAMERecord{Target: "other.example.net."}),
		{Query: mxQ, Responses: []model.Response{model.NewNoRecords(srv("192.0.2.1"), mxQ, 0, 0)}},
		{Query: srvQ, Responses: []model.Response{model.NewNoRecords(srv("192.0.2.1"), srvQ, 0, 0)}},
	}}
	targetCheck := model.Lookups{Items: []model.Lookup{
		{Query: model.Query{Name: "other.example.net.", Type: dns.TypeCNAME}, Responses: []model.Response{
			model.NewNoRecords(srv("192.0.2.1"), model.Query{Name: "other.example.net.", Type: dns.TypeCNAME}, 0, 0),
		}},
	}}

	eng := &fakeEngine{script: []model.Lookups{apexLookups, targetCheck}}
	result, err := Run(context.Background(), eng, []model.NameServerDescriptor{srv("192.0.2.1")}, model.DefaultBudgets(), apex,
		Config{NoSOA: true, NoSPF: true}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.CNAME == nil || !result.CNAME.ApexHasCNAME {
		t.Error("expected apex CNAME to be flagged")
	}
}

func TestSPFLintValid(t *testing.T) {
	apex := "example.com."
	txtQ := model.Query{Name: apex, Type: dns.TypeTXT}
	lookups := model.Lookups{Items: []model.Lookup{
		recordsLookup(txtQ, srv("192.0.2.1"), &model.TXTRecord{Txt: []string{"v=spf1 ip4:198.51.100.0/24 -all"}}),
	}}
	eng := &fakeEngine{script: []model.Lookups{lookups}}

	result, err := Run(context.Background(), eng, []model.NameServerDescriptor{srv("192.0.2.1")}, model.DefaultBudgets(), apex,
		Config{NoSOA: true, NoCNAME: true}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SPF == nil || !result.SPF.Valid {
		t.Fatalf("expected valid SPF record, got %+v", result.SPF)
	}
}

func TestSPFLintMultipleRecords(t *testing.T) {
	apex := "example.com."
	txtQ := model.Query{Name: apex, Type: dns.TypeTXT}
	lookups := model.Lookups{Items: []model.Lookup{
		recordsLookup(txtQ, srv("192.0.2.1"),
			&model.TXTRecord{Txt: []string{"v=spf1 -all"}},
			&model.TXTRecord{Txt: []string{"v=spf1 include:example.net -all"}}),
	}}
	eng := &fakeEngine{script: []model.Lookups{lookups}}

	result, err := Run(context.Background(), eng, []model.NameServerDescriptor{srv("192.0.2.1")}, model.DefaultBudgets(), apex,
		Config{NoSOA: true, NoCNAME: true}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SPF.Valid {
		t.Error("expected multiple v=spf1 records to be invalid")
	}
	if len(result.SPF.Errors) == 0 {
		t.Error("expected an error describing the multiple-record violation")
	}
}

func TestValidateSPFRejectsUnknownMechanism(t *testing.T) {
	errs := validateSPF("v=spf1 bogus:thing -all")
	if len(errs) == 0 {
		t.Error("expected unknown mechanism to be rejected")
	}
}

func TestValidateSPFAcceptsCommonForm(t *testing.T) {
	errs := validateSPF("v=spf1 a mx include:_spf.example.net ip4:198.51.100.0/24 ~all")
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateSPFRejectsRedirectWithAll(t *testing.T) {
	errs := validateSPF("v=spf1 redirect=_spf.example.net -all")
	if len(errs) == 0 {
		t.Error("expected redirect= combined with an all mechanism to be rejected")
	}
}

func TestValidateSPFAcceptsBareRedirect(t *testing.T) {
	errs := validateSPF("v=spf1 redirect=_spf.example.net")
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}
