package singleresolver

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/lukaspustina/mhost/internal/model"

	"github.com/miekg/dns"
)

func udpServer(addr string) model.NameServerDescriptor {
	return model.NameServerDescriptor{Transport: model.TransportUDP, Addr: addr, Port: 53}
}

// scriptedExchanger replays a canned sequence of exchange outcomes, one per attempt, so retry
// behavior can be asserted without a network.
type scriptedExchanger struct {
	replies []*dns.Msg
	errs    []error
	calls   int
}

func (s *scriptedExchanger) Exchange(m *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
	ix := s.calls
	if ix >= len(s.replies) {
		ix = len(s.replies) - 1
	}
	s.calls++
	return s.replies[ix], time.Millisecond, s.errs[ix]
}

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o timeout" }
func (timeoutError) Timeout() bool { return true }

// newScriptedResolver wires a Resolver whose every attempt is served by the given exchanger,
// recording the Client.Net value each attempt asked for.
func newScriptedResolver(ex DNSExchanger, gotNet *string) *Resolver {
	return &Resolver{
		NewDNSExchanger: func(net string, tlsConfig *tls.Config, timeout time.Duration) DNSExchanger {
			if gotNet != nil {
				*gotNet = net
			}
			return ex
		},
	}
}

func replyWithAnswer(q model.Query, rrs ...string) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(q.Name, q.Type)
	reply := new(dns.Msg)
	reply.SetReply(m)
	for _, s := range rrs {
		rr, err := dns.NewRR(s)
		if err != nil {
			panic(err)
		}
		reply.Answer = append(reply.Answer, rr)
	}
	return reply
}

func TestResolveRecords(t *testing.T) {
	query := model.Query{Name: "example.com.", Type: dns.TypeA}
	reply := replyWithAnswer(query,
		"example.com. 3600 IN A 93.184.216.34",
		"example.com. 300 IN A 93.184.216.35")

	ex := &scriptedExchanger{replies: []*dns.Msg{reply}, errs: []error{nil}}
	r := newScriptedResolver(ex, nil)

	resp := r.Resolve(context.Background(), udpServer("8.8.8.8"), query, 0, time.Second)
	rr, ok := resp.(*model.RecordsResponse)
	if !ok {
		t.Fatalf("expected RecordsResponse, got %T", resp)
	}
	if len(rr.Records) != 2 {
		t.Fatal("expected 2 records, got", len(rr.Records))
	}
	if rr.TTLMin != 300 {
		t.Error("expected TTLMin to be the smallest TTL in the answer, got", rr.TTLMin)
	}
	if ex.calls != 1 {
		t.Error("a clean answer must not consume the retry budget, attempts:", ex.calls)
	}
}

func TestResolveNxDomainCarriesAuthoritySOA(t *testing.T) {
	query := model.Query{Name: "nx.example.com.", Type: dns.TypeA}
	m := new(dns.Msg)
	m.SetQuestion(query.Name, query.Type)
	reply := new(dns.Msg)
	reply.SetRcode(m, dns.RcodeNameError)
	soa, err := dns.NewRR("example.com. 600 IN SOA ns1.example.com. hostmaster.example.com. 2017042801 16384 2048 1048576 480")
	if err != nil {
		t.Fatal(err)
	}
	reply.Ns = append(reply.Ns, soa)

	ex := &scriptedExchanger{replies: []*dns.Msg{reply}, errs: []error{nil}}
	r := newScriptedResolver(ex, nil)

	resp := r.Resolve(context.Background(), udpServer("8.8.8.8"), query, 3, time.Second)
	nx, ok := resp.(*model.NxDomainResponse)
	if !ok {
		t.Fatalf("expected NxDomainResponse, got %T", resp)
	}
	if nx.AuthoritySOA == nil || nx.AuthoritySOA.Serial != 2017042801 {
		t.Errorf("expected the authority-section SOA to be carried, got %+v", nx.AuthoritySOA)
	}
	if ex.calls != 1 {
		t.Error("NXDOMAIN is definitive and must not be retried, attempts:", ex.calls)
	}
}

func TestResolveNoRecords(t *testing.T) {
	query := model.Query{Name: "example.com.", Type: dns.TypeAAAA}
	reply := replyWithAnswer(query) // NOERROR, empty answer section

	ex := &scriptedExchanger{replies: []*dns.Msg{reply}, errs: []error{nil}}
	r := newScriptedResolver(ex, nil)

	resp := r.Resolve(context.Background(), udpServer("8.8.8.8"), query, 0, time.Second)
	if _, ok := resp.(*model.NoRecordsResponse); !ok {
		t.Fatalf("expected NoRecordsResponse, got %T", resp)
	}
}

func TestResolveRefusedNotRetried(t *testing.T) {
	query := model.Query{Name: "example.com.", Type: dns.TypeA}
	m := new(dns.Msg)
	m.SetQuestion(query.Name, query.Type)
	reply := new(dns.Msg)
	reply.SetRcode(m, dns.RcodeRefused)

	ex := &scriptedExchanger{replies: []*dns.Msg{reply}, errs: []error{nil}}
	r := newScriptedResolver(ex, nil)

	resp := r.Resolve(context.Background(), udpServer("8.8.8.8"), query, 5, time.Second)
	er, ok := resp.(*model.ErrorResponse)
	if !ok {
		t.Fatalf("expected ErrorResponse, got %T", resp)
	}
	if er.ErrKind != model.ErrorRefused {
		t.Error("expected refused error kind, got", er.ErrKind)
	}
	if ex.calls != 1 {
		t.Error("REFUSED is definitive and must not be retried, attempts:", ex.calls)
	}
}

// Retries are internal to the resolver: a timeout followed by a success within the retry budget
// must surface only the final success.
func TestResolveRetryAfterTimeout(t *testing.T) {
	query := model.Query{Name: "example.com.", Type: dns.TypeA}
	reply := replyWithAnswer(query, "example.com. 3600 IN A 93.184.216.34")

	ex := &scriptedExchanger{
		replies: []*dns.Msg{nil, nil, reply},
		errs:    []error{timeoutError{}, timeoutError{}, nil},
	}
	r := newScriptedResolver(ex, nil)

	resp := r.Resolve(context.Background(), udpServer("8.8.8.8"), query, 2, time.Second)
	if _, ok := resp.(*model.RecordsResponse); !ok {
		t.Fatalf("expected the post-retry success to be the terminal Response, got %T", resp)
	}
	if ex.calls != 3 {
		t.Error("expected 3 attempts, got", ex.calls)
	}
}

func TestResolveTimeoutExhaustsRetries(t *testing.T) {
	query := model.Query{Name: "example.com.", Type: dns.TypeA}
	ex := &scriptedExchanger{replies: []*dns.Msg{nil}, errs: []error{timeoutError{}}}
	r := newScriptedResolver(ex, nil)

	resp := r.Resolve(context.Background(), udpServer("8.8.8.8"), query, 1, 2*time.Second)
	to, ok := resp.(*model.TimeoutResponse)
	if !ok {
		t.Fatalf("expected TimeoutResponse, got %T", resp)
	}
	if to.After != 2*time.Second {
		t.Error("expected the per-attempt timeout to be reported, got", to.After)
	}
	if ex.calls != 2 {
		t.Error("expected the timeout to consume the full retry budget, attempts:", ex.calls)
	}
}

func TestResolveServFailRetriedThenError(t *testing.T) {
	query := model.Query{Name: "example.com.", Type: dns.TypeA}
	m := new(dns.Msg)
	m.SetQuestion(query.Name, query.Type)
	reply := new(dns.Msg)
	reply.SetRcode(m, dns.RcodeServerFailure)

	ex := &scriptedExchanger{replies: []*dns.Msg{reply}, errs: []error{nil}}
	r := newScriptedResolver(ex, nil)

	resp := r.Resolve(context.Background(), udpServer("8.8.8.8"), query, 2, time.Second)
	er, ok := resp.(*model.ErrorResponse)
	if !ok {
		t.Fatalf("expected ErrorResponse, got %T", resp)
	}
	if er.ErrKind != model.ErrorServFail {
		t.Error("expected servfail error kind, got", er.ErrKind)
	}
	if ex.calls != 3 {
		t.Error("SERVFAIL is worth retrying, expected 3 attempts, got", ex.calls)
	}
}

func TestResolveTransportNetSelection(t *testing.T) {
	query := model.Query{Name: "example.com.", Type: dns.TypeA}
	reply := replyWithAnswer(query, "example.com. 3600 IN A 93.184.216.34")

	tt := []struct {
		transport model.Transport
		wantNet   string
	}{
		{model.TransportUDP, ""},
		{model.TransportTCP, "tcp"},
		{model.TransportDoT, "tcp-tls"},
	}
	for _, tc := range tt {
		var gotNet string
		ex := &scriptedExchanger{replies: []*dns.Msg{reply}, errs: []error{nil}}
		r := newScriptedResolver(ex, &gotNet)
		r.UseSystemCAs = true

		server := model.NameServerDescriptor{Transport: tc.transport, Addr: "9.9.9.9", Port: 853}
		resp := r.Resolve(context.Background(), server, query, 0, time.Second)
		if _, ok := resp.(*model.RecordsResponse); !ok {
			t.Fatalf("%s: expected RecordsResponse, got %T", tc.transport, resp)
		}
		if gotNet != tc.wantNet {
			t.Errorf("%s: expected Client.Net %q, got %q", tc.transport, tc.wantNet, gotNet)
		}
	}
}

func TestResolveCancelledContext(t *testing.T) {
	query := model.Query{Name: "example.com.", Type: dns.TypeA}
	ex := &scriptedExchanger{replies: []*dns.Msg{nil}, errs: []error{errors.New("should not be reached")}}
	r := newScriptedResolver(ex, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := r.Resolve(ctx, udpServer("8.8.8.8"), query, 0, time.Second)
	er, ok := resp.(*model.ErrorResponse)
	if !ok {
		t.Fatalf("expected ErrorResponse for a cancelled context, got %T", resp)
	}
	if er.ErrKind != model.ErrorTransport {
		t.Error("expected transport error kind, got", er.ErrKind)
	}
	if ex.calls != 0 {
		t.Error("no exchange may happen once the context is cancelled, attempts:", ex.calls)
	}
}

// scriptedHTTPClient serves the DoH path with canned *http.Responses.
type scriptedHTTPClient struct {
	responses []*http.Response
	errs      []error
	calls     int
}

func (s *scriptedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	ix := s.calls
	if ix >= len(s.responses) {
		ix = len(s.responses) - 1
	}
	s.calls++
	return s.responses[ix], s.errs[ix]
}

func dohBody(t *testing.T, query model.Query, rrs ...string) *http.Response {
	t.Helper()
	reply := replyWithAnswer(query, rrs...)
	reply.Id = 0
	packed, err := reply.Pack()
	if err != nil {
		t.Fatal(err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       io.NopCloser(bytes.NewReader(packed)),
	}
}

func TestResolveDoH(t *testing.T) {
	query := model.Query{Name: "example.com.", Type: dns.TypeA}
	client := &scriptedHTTPClient{
		responses: []*http.Response{dohBody(t, query, "example.com. 3600 IN A 93.184.216.34")},
		errs:      []error{nil},
	}
	r := &Resolver{HTTPClient: client}

	server := model.NameServerDescriptor{
		Transport: model.TransportDoH, Addr: "1.1.1.1", Port: 443, TLSAuthName: "cloudflare-dns.com",
	}
	resp := r.Resolve(context.Background(), server, query, 0, time.Second)
	rr, ok := resp.(*model.RecordsResponse)
	if !ok {
		t.Fatalf("expected RecordsResponse, got %T", resp)
	}
	if len(rr.Records) != 1 || rr.Records[0].Data()["A"] != "93.184.216.34" {
		t.Error("unexpected record data", rr.Records)
	}
}

func TestResolveDoHBadStatus(t *testing.T) {
	query := model.Query{Name: "example.com.", Type: dns.TypeA}
	bad := &http.Response{
		StatusCode: http.StatusBadGateway,
		Status:     "502 Bad Gateway",
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}
	client := &scriptedHTTPClient{responses: []*http.Response{bad}, errs: []error{nil}}
	r := &Resolver{HTTPClient: client}

	server := model.NameServerDescriptor{Transport: model.TransportDoH, Addr: "1.1.1.1", Port: 443}
	resp := r.Resolve(context.Background(), server, query, 1, time.Second)
	er, ok := resp.(*model.ErrorResponse)
	if !ok {
		t.Fatalf("expected ErrorResponse, got %T", resp)
	}
	if er.ErrKind != model.ErrorTransport {
		t.Error("expected transport error kind for a non-200 DoH status, got", er.ErrKind)
	}
	if client.calls != 2 {
		t.Error("expected a transport-level DoH failure to be retried, attempts:", client.calls)
	}
}
