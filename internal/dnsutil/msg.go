/*
Package dnsutil provides helper methods to manipulate the EDNS0 OPT pseudo-RR of a
"github.com/miekg/dns.Msg" plus a compact, log-friendly rendering of resource record sets. The caller is assumed to have checked that the dns.Msg is a legitimate IN/Query prior to
calling any of these functions.
*/
package dnsutil

import (
	"github.com/lukaspustina/mhost/internal/constants"

	"github.com/miekg/dns"
)

var (
	consts = constants.Get()
)

// FindOPT searches dns.Msg.Extra for the first occurrence of an OPT RR. There should only be one.
//
// Return *dns.OPT if found otherwise nil
func FindOPT(q *dns.Msg) *dns.OPT {
	for _, rr := range q.Extra { // Search Extra for OPT RRs
		if opt, ok := rr.(*dns.OPT); ok {
			return opt
		}
	}

	return nil
}

// RemoveEDNS0FromOPT aggressively removes all occurrences of the specified EDNS0 sub-option in the
// Extra RR list of a dns.Msg. It makes the worst-case assumption that there may be multiple options
// and sub-options.
//
// True is returned if at least one sub-option was removed.
func RemoveEDNS0FromOPT(msg *dns.Msg, edns0Code uint16) (removed bool) {
	outRRs := make([]dns.RR, 0) // Construct an array of surviving RRs
	for _, rr := range msg.Extra {
		inOpt, ok := rr.(*dns.OPT)
		if !ok { // Non OPT RRs get copied straight across
			outRRs = append(outRRs, rr)
			continue
		}

		outOpt := &dns.OPT{Hdr: inOpt.Hdr} // Create a new OPT RR to contain the option survivors
		for _, opt := range inOpt.Option { // Search within the OPT RR for the target option
			if opt.Option() == edns0Code {
				removed = true
				continue
			}
			outOpt.Option = append(outOpt.Option, opt) // Non-matching options survive
		}
		if len(outOpt.Option) > 0 { // Only append new OPT RR if it's not empty
			outRRs = append(outRRs, outOpt)
		}
	}

	if removed {
		msg.Extra = outRRs // Return survivors to the message - if any
	}

	return
}

// NewOPT creates a populated msg.OPT RR as a zero-values struct is not a valid OPT.
func NewOPT() *dns.OPT {
	optRR := &dns.OPT{}
	optRR.SetVersion(0)
	optRR.SetUDPSize(dns.DefaultMsgSize)
	optRR.Hdr.Name = "."
	optRR.Hdr.Rrtype = dns.TypeOPT

	return optRR
}

// MinTTL returns the smallest TTL across an RRSet, or zero if the set is empty. Used to populate
// the minimum-TTL field carried on answer Responses.
func MinTTL(rrs []dns.RR) uint32 {
	if len(rrs) == 0 {
		return 0
	}
	min := rrs[0].Header().Ttl
	for _, rr := range rrs[1:] {
		if t := rr.Header().Ttl; t < min {
			min = t
		}
	}

	return min
}
