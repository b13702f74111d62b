package singleresolver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/lukaspustina/mhost/internal/constants"
	"github.com/lukaspustina/mhost/internal/dnsutil"
	"github.com/lukaspustina/mhost/internal/model"

	"github.com/miekg/dns"
)

// HTTPClientDo is the subset of net/http.Client used by the DoH code path - an interface so tests
// can inject a mock transport instead of a real net/http.Client.
type HTTPClientDo interface {
	Do(*http.Request) (*http.Response, error)
}

const dohPath = "/dns-query"

var consts = constants.Get()

// resolveDoH handles the DoH transport via RFC8484 POST with RFC8467 query padding. Like
// resolveDNS it retries only on transport failures (including non-200 HTTP statuses), timeouts and
// SERVFAIL, never on a definitive DNS answer.
func (r *Resolver) resolveDoH(ctx context.Context, server model.NameServerDescriptor, query model.Query, retries int, timeout time.Duration) model.Response {
	host := server.TLSAuthName
	if host == "" {
		host = server.Addr
	}
	url := "https://" + host + dohPath

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(query.Name), query.Type)
	msg.RecursionDesired = true
	msg.Id = 0 // cache-friendly per RFC8484, the response Id is ignored on the way back in

	binary, err := dnsutil.PadAndPack(msg, consts.Rfc8467ClientPadModulo)
	if err != nil {
		return model.NewError(server, query, 0, model.ErrorParse, err)
	}

	maxAttempts := retries + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return model.NewError(server, query, 0, model.ErrorTransport, ctx.Err())
		default:
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, rtt, err := r.doRequest(attemptCtx, url, binary)
		cancel()

		if err != nil {
			if attemptCtx.Err() == context.DeadlineExceeded {
				if attempt == maxAttempts-1 {
					return model.NewTimeout(server, query, 0, timeout)
				}
				continue
			}
			if attempt == maxAttempts-1 {
				return model.NewError(server, query, 0, model.ErrorTransport, err)
			}
			continue
		}

		result, retryable := classifyReply(server, query, resp, rtt)
		if result != nil {
			return result
		}
		if !retryable || attempt == maxAttempts-1 {
			return model.NewError(server, query, 0, model.ErrorServFail, dnsRcodeError(resp))
		}
	}

	return model.NewTimeout(server, query, 0, timeout)
}

func (r *Resolver) doRequest(ctx context.Context, url string, binary []byte) (*dns.Msg, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(binary))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", consts.Rfc8484AcceptValue)
	req.Header.Set("Content-Type", consts.Rfc8484AcceptValue)
	req.Header.Set("User-Agent", consts.ProgramName+"/"+consts.Version)

	start := time.Now()
	httpResp, err := r.HTTPClient.Do(req)
	rtt := time.Since(start)
	if err != nil {
		return nil, rtt, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, rtt, &httpStatusError{status: httpResp.Status}
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, rtt, err
	}

	reply := new(dns.Msg)
	if err := reply.Unpack(body); err != nil {
		return nil, rtt, err
	}

	return reply, rtt, nil
}

type httpStatusError struct{ status string }

func (e *httpStatusError) Error() string { return me + ": unexpected HTTP status: " + e.status }
