package dnsutil

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// CompactRRsString renders an RRset as a single printable line: entries separated by "/", each
// rendered as "TYPE*rdata". It serves two callers with the same need for a terse rendition: debug
// log output, and the raw form carried by record types mhost does not model explicitly.
func CompactRRsString(rrs []dns.RR) string {
	s := ""
	sep := ""
	for _, interfaceRR := range rrs {
		s += sep
		sep = "/"
		switch rr := interfaceRR.(type) {
		case *dns.A:
			s += "A*" + rr.A.String()
		case *dns.AAAA:
			s += "AAAA*" + rr.AAAA.String()
		case *dns.CNAME:
			s += "CNAME*" + rr.Target
		case *dns.MX:
			s += fmt.Sprintf("MX*%d-%s", rr.Preference, rr.Mx)
		case *dns.NS:
			s += "NS*" + rr.Ns
		case *dns.PTR:
			s += "PTR*" + rr.Ptr
		case *dns.SRV:
			s += fmt.Sprintf("SRV*%d-%d-%s:%d", rr.Priority, rr.Weight, rr.Target, rr.Port)
		case *dns.OPT:
			s += fmt.Sprintf("OPT(%d)", len(rr.Option)) // Sub-options are of no interest here
		default:
			s += dns.TypeToString[interfaceRR.Header().Rrtype] + "*" + rdataString(interfaceRR)
		}
	}

	return s
}

// rdataString extracts just the rdata portion of an RR's presentation format by stripping the
// header prefix off rr.String(). miekg/dns offers no direct accessor for this.
func rdataString(rr dns.RR) string {
	return strings.TrimPrefix(rr.String(), rr.Header().String())
}
