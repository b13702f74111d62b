// Package singleresolver implements the Single-Server Resolver: a transport-polymorphic
// component that resolves one Query against one NameServerDescriptor, applying a per-attempt timeout
// and up to Retries further attempts after the first, and returning exactly one terminal model.Response. It is the concrete
// engine.Resolver the Multi-Resolver Engine dispatches against.
//
// UDP, TCP and DoT share one code path built around miekg/dns.Client with a res_send-style retry
// loop: each attempt classifies the reply's Rcode to decide whether a retry against the same
// descriptor can possibly help. DoH is a second code path built around net/http with RFC8467
// padding applied to every outgoing query.
package singleresolver

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/lukaspustina/mhost/internal/model"
	"github.com/lukaspustina/mhost/internal/tlsutil"

	"github.com/miekg/dns"
	"golang.org/x/net/http2"
)

const me = "singleresolver"

// DNSExchanger is the subset of miekg/dns.Client used by the UDP/TCP/DoT code path, kept as an
// interface so tests can supply a mock.
type DNSExchanger interface {
	Exchange(m *dns.Msg, addr string) (*dns.Msg, time.Duration, error)
}

// NewDNSExchangerFunc constructs a DNSExchanger for the given miekg/dns.Client.Net value ("" for
// UDP, "tcp" for TCP, "tcp-tls" for DoT), a *tls.Config (DoT only) and the per-attempt timeout.
type NewDNSExchangerFunc func(net string, tlsConfig *tls.Config, timeout time.Duration) DNSExchanger

func defaultNewDNSExchanger(net string, tlsConfig *tls.Config, timeout time.Duration) DNSExchanger {
	return &dns.Client{Net: net, TLSConfig: tlsConfig, Timeout: timeout}
}

// Resolver is the default engine.Resolver implementation, dispatching to the UDP/TCP/DoT or DoH code
// path according to the target NameServerDescriptor's Transport.
type Resolver struct {
	NewDNSExchanger NewDNSExchangerFunc
	HTTPClient      HTTPClientDo
	UseSystemCAs    bool // passed to tlsutil for DoT/DoH certificate verification
}

// New constructs a Resolver with production defaults: a real miekg/dns.Client per attempt, and an
// http2-enabled http.Client for DoH verifying server certificates against the system CA pool.
func New() *Resolver {
	return &Resolver{
		NewDNSExchanger: defaultNewDNSExchanger,
		HTTPClient:      defaultHTTPClient(),
		UseSystemCAs:    true,
	}
}

func defaultHTTPClient() *http.Client {
	tlsConfig, err := tlsutil.NewClientTLSConfig(true, nil, "", "", "")
	if err != nil {
		return http.DefaultClient
	}
	tr := &http.Transport{TLSClientConfig: tlsConfig}
	if err := http2.ConfigureTransport(tr); err != nil {
		return http.DefaultClient
	}
	return &http.Client{Transport: tr}
}

// Resolve satisfies engine.Resolver. It dispatches on server.Transport and never retries
// NXDOMAIN/NODATA/REFUSED - those are definitive answers about the query, not the server.
func (r *Resolver) Resolve(ctx context.Context, server model.NameServerDescriptor, query model.Query, retries int, timeout time.Duration) model.Response {
	switch server.Transport {
	case model.TransportDoH:
		return r.resolveDoH(ctx, server, query, retries, timeout)
	default:
		return r.resolveDNS(ctx, server, query, retries, timeout)
	}
}

func (r *Resolver) tlsConfigFor(server model.NameServerDescriptor) (*tls.Config, error) {
	return tlsutil.NewClientTLSConfig(r.UseSystemCAs, nil, "", "", server.TLSAuthName)
}
