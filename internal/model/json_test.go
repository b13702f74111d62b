package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// TestJSONSchema pins the wire schema: a single A record from a single mock server must
// serialize to exactly this shape (whitespace-insensitive).
func TestJSONSchema(t *testing.T) {
	server := NameServerDescriptor{Transport: TransportUDP, Addr: "8.8.8.8", Port: 53}
	query := Query{Name: "example.com.", Type: dns.TypeA}

	ls := Lookups{Items: []Lookup{
		{
			Query: query,
			Responses: []Response{
				NewRecords(server, query, 1, []Record{&ARecord{Addr: "93.184.216.34", Ttl: 3600}}, 0, 3600),
			},
		},
	}}

	b, err := json.Marshal(ls)
	if err != nil {
		t.Fatal("unexpected marshal error", err)
	}

	got := compactJSON(t, string(b))
	want := compactJSON(t, `{"lookups":[{"query":{"name":"example.com.","type":"A","class":"IN"},`+
		`"result":{"Response":{"records":[{"type":"A","data":{"A":"93.184.216.34"},"ttl":3600}]}},`+
		`"server":{"transport":"udp","addr":"8.8.8.8","port":53}}]}`)

	if got != want {
		t.Errorf("schema mismatch:\n got  %s\n want %s", got, want)
	}
}

func compactJSON(t *testing.T, s string) string {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatal("invalid JSON under test", err, s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(string(b))
}

// TestJSONRoundTrip covers testable property 7: serializing and re-parsing a Lookups value yields
// an equal value (modulo the arrival counters and durations the wire schema intentionally drops).
func TestJSONRoundTrip(t *testing.T) {
	server := NameServerDescriptor{Transport: TransportUDP, Addr: "1.1.1.1", Port: 53}
	q1 := Query{Name: "example.com.", Type: dns.TypeA}
	q2 := Query{Name: "example.com.", Type: dns.TypeMX}

	original := Lookups{Items: []Lookup{
		{Query: q1, Responses: []Response{
			NewRecords(server, q1, 1, []Record{&ARecord{Addr: "93.184.216.34", Ttl: 300}}, time.Millisecond, 300),
		}},
		{Query: q2, Responses: []Response{
			NewNxDomain(server, q2, 2, nil, time.Millisecond),
		}},
	}}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}

	var roundTripped Lookups
	if err := json.Unmarshal(b, &roundTripped); err != nil {
		t.Fatal(err)
	}

	if len(roundTripped.Items) != len(original.Items) {
		t.Fatalf("expected %d lookups, got %d", len(original.Items), len(roundTripped.Items))
	}
	for i, l := range roundTripped.Items {
		if l.Query != original.Items[i].Query {
			t.Errorf("lookup %d: query mismatch %v != %v", i, l.Query, original.Items[i].Query)
		}
		if len(l.Responses) != len(original.Items[i].Responses) {
			t.Errorf("lookup %d: response count mismatch", i)
			continue
		}
		if l.Responses[0].Kind() != original.Items[i].Responses[0].Kind() {
			t.Errorf("lookup %d: kind mismatch", i)
		}
	}
}

func TestFromRR(t *testing.T) {
	rr, err := dns.NewRR("example.com. 300 IN A 93.184.216.34")
	if err != nil {
		t.Fatal(err)
	}
	rec := FromRR(rr)
	if rec.Type() != "A" {
		t.Error("expected A type, got", rec.Type())
	}
	if rec.Data()["A"] != "93.184.216.34" {
		t.Error("wrong address in Data()", rec.Data())
	}

	naptr, err := dns.NewRR("example.com. 300 IN NAPTR 10 10 \"U\" \"E2U+sip\" \"\" .")
	if err != nil {
		t.Fatal(err)
	}
	unsupported := FromRR(naptr)
	if unsupported.Type() != "UNSUPPORTED" {
		t.Error("expected NAPTR to fall through to UNSUPPORTED, got", unsupported.Type())
	}
}
