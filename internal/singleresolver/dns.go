package singleresolver

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/lukaspustina/mhost/internal/dnsutil"
	"github.com/lukaspustina/mhost/internal/model"

	"github.com/miekg/dns"
)

func transportNet(t model.Transport) string {
	switch t {
	case model.TransportTCP:
		return "tcp"
	case model.TransportDoT:
		return "tcp-tls"
	default:
		return "" // UDP
	}
}

// resolveDNS handles UDP, TCP and DoT. It retries up to `retries` additional times after the first
// attempt, but only on transport failures, timeouts and SERVFAIL - a definitive DNS answer
// (NXDOMAIN, NODATA, REFUSED, FORMERR) is returned immediately without spending the retry budget,
// since a retry cannot change what the server already told us about this query.
func (r *Resolver) resolveDNS(ctx context.Context, server model.NameServerDescriptor, query model.Query, retries int, timeout time.Duration) model.Response {
	var tlsCfg *tls.Config
	if server.Transport == model.TransportDoT {
		var err error
		tlsCfg, err = r.tlsConfigFor(server)
		if err != nil {
			return model.NewError(server, query, 0, model.ErrorTLS, err)
		}
	}

	addr := net.JoinHostPort(server.Addr, strconv.Itoa(server.Port))

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(query.Name), query.Type)
	msg.RecursionDesired = true

	maxAttempts := retries + 1
	lastTimeout := timeout

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return model.NewError(server, query, 0, model.ErrorTransport, ctx.Err())
		default:
		}

		exchanger := r.NewDNSExchanger(transportNet(server.Transport), tlsCfg, timeout)
		start := time.Now()
		reply, rtt, exErr := exchanger.Exchange(msg, addr)
		if rtt == 0 {
			rtt = time.Since(start)
		}

		if exErr != nil {
			if isTimeoutErr(exErr) {
				lastTimeout = timeout
				if attempt == maxAttempts-1 {
					return model.NewTimeout(server, query, 0, lastTimeout)
				}
				continue
			}
			if attempt == maxAttempts-1 {
				return model.NewError(server, query, 0, model.ErrorTransport, exErr)
			}
			continue
		}

		resp, retryable := classifyReply(server, query, reply, rtt)
		if resp != nil {
			return resp
		}
		if !retryable || attempt == maxAttempts-1 {
			return model.NewError(server, query, 0, model.ErrorServFail, dnsRcodeError(reply))
		}
	}

	return model.NewTimeout(server, query, 0, lastTimeout)
}

// classifyReply converts a *dns.Msg reply into a terminal Response, or (nil, true) if the Rcode
// indicates a server-side problem worth retrying (SERVFAIL).
func classifyReply(server model.NameServerDescriptor, query model.Query, reply *dns.Msg, rtt time.Duration) (model.Response, bool) {
	switch reply.Rcode {
	case dns.RcodeSuccess:
		if len(reply.Answer) == 0 {
			return model.NewNoRecords(server, query, 0, rtt), false
		}
		records := make([]model.Record, 0, len(reply.Answer))
		for _, rr := range reply.Answer {
			records = append(records, model.FromRR(rr))
		}
		return model.NewRecords(server, query, 0, records, rtt, dnsutil.MinTTL(reply.Answer)), false

	case dns.RcodeNameError:
		var soa *model.SOARecord
		for _, rr := range reply.Ns {
			if rec, ok := model.FromRR(rr).(*model.SOARecord); ok {
				soa = rec
				break
			}
		}
		return model.NewNxDomain(server, query, 0, soa, rtt), false

	case dns.RcodeRefused:
		return model.NewError(server, query, 0, model.ErrorRefused, dnsRcodeError(reply)), false

	case dns.RcodeFormatError:
		return model.NewError(server, query, 0, model.ErrorParse, dnsRcodeError(reply)), false

	case dns.RcodeServerFailure:
		return nil, true // worth retrying against the same descriptor

	default:
		return model.NewError(server, query, 0, model.ErrorProtocol, dnsRcodeError(reply)), false
	}
}

func dnsRcodeError(reply *dns.Msg) error {
	return &rcodeError{rcode: reply.Rcode}
}

type rcodeError struct{ rcode int }

func (e *rcodeError) Error() string {
	return me + ": " + dns.RcodeToString[e.rcode]
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	return err == context.DeadlineExceeded
}
