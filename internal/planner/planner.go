// Package planner implements the Query Planner: it turns a high-level user request -
// names, IPs, CIDRs, service specs, a record-type set - into a normalized, deterministic
// model.QueryBatch. FQDN qualification follows ndots/search-domain rules; reverse lookups expand
// IPs and CIDRs into PTR queries via github.com/miekg/dns's reverse-name helper.
package planner

import (
	"fmt"
	"net"
	"strings"

	"github.com/lukaspustina/mhost/internal/model"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

const me = "planner"

// DefaultTypes is the record-type set used when the caller supplies none.
func DefaultTypes() []string { return []string{"A", "AAAA", "CNAME", "MX"} }

// AllTypes is the set --all expands to: every record type this module models explicitly and can
// query. ANAME is modelled but has no query type code in github.com/miekg/dns, so it is not part
// of the set. Unsupported/exotic types are reachable only via an explicit -t, never via --all.
func AllTypes() []string {
	return []string{"A", "AAAA", "CNAME", "MX", "NS", "PTR", "SOA", "SRV", "TXT", "CAA", "NULL"}
}

// Config carries the normalization parameters the CLI derives from flags, /etc/resolv.conf and the
// host's own FQDN.
type Config struct {
	Ndots        int    // append SearchDomain when name has fewer dots than this
	SearchDomain string // empty disables search-domain qualification
	CIDRLimit    int    // cap on PTR queries generated from a single CIDR argument
}

// effectiveCIDRLimit mirrors the pool's default of 100 when the caller leaves CIDRLimit unset, but
// callers doing a full CIDR sweep should set it
// explicitly.
func (c Config) effectiveCIDRLimit() int {
	if c.CIDRLimit > 0 {
		return c.CIDRLimit
	}
	return 100
}

// Request is one planner argument: a name, IP, CIDR or service spec, plus the record types it
// should fan out to. An empty Types on a plain-name Request falls back to DefaultTypes().
type Request struct {
	Target string
	Types  []string // explicit -t values for this argument; empty means "use the batch default"
	All    bool     // --all: expand to AllTypes() for this argument
}

// Plan turns a set of Requests into a deterministic QueryBatch. Same inputs always
// produce the same batch: no randomness, no I/O, no wall-clock dependency.
func Plan(cfg Config, requests []Request) (model.QueryBatch, error) {
	var queries []model.Query
	seen := make(map[model.Query]bool)

	add := func(q model.Query) {
		if !seen[q] {
			seen[q] = true
			queries = append(queries, q)
		}
	}

	for _, req := range requests {
		if len(req.Target) == 0 {
			return model.QueryBatch{}, fmt.Errorf("%s: empty target", me)
		}

		if ip := net.ParseIP(req.Target); ip != nil {
			name, err := dns.ReverseAddr(req.Target)
			if err != nil {
				return model.QueryBatch{}, fmt.Errorf("%s: reverse lookup for %s: %w", me, req.Target, err)
			}
			add(model.Query{Name: name, Type: dns.TypePTR})
			continue
		}

		if strings.Contains(req.Target, "/") {
			names, err := expandCIDR(req.Target, cfg.effectiveCIDRLimit())
			if err != nil {
				return model.QueryBatch{}, fmt.Errorf("%s: %w", me, err)
			}
			for _, n := range names {
				add(model.Query{Name: n, Type: dns.TypePTR})
			}
			continue
		}

		if name, proto, domain, ok := parseServiceSpec(req.Target); ok {
			fqdn := dns.Fqdn(fmt.Sprintf("_%s._%s.%s", name, proto, normalizeBase(cfg, domain)))
			add(model.Query{Name: fqdn, Type: dns.TypeSRV})
			continue
		}

		qname := dns.Fqdn(qualify(cfg, req.Target))
		for _, t := range resolveTypes(req) {
			rt, ok := dns.StringToType[strings.ToUpper(t)]
			if !ok {
				return model.QueryBatch{}, fmt.Errorf("%s: unsupported record type %q", me, t)
			}
			add(model.Query{Name: qname, Type: rt})
		}
	}

	return model.QueryBatch{Queries: queries}, nil
}

func resolveTypes(req Request) []string {
	if req.All {
		return AllTypes()
	}
	if len(req.Types) > 0 {
		return req.Types
	}
	return DefaultTypes()
}

// qualify applies punycode normalization then ndots/search-domain qualification. A
// name already terminated with a trailing dot is treated as already fully qualified and left
// untouched beyond that, which is what makes Plan idempotent on its own output.
func qualify(cfg Config, name string) string {
	name = toASCII(name)
	if strings.HasSuffix(name, ".") {
		return name
	}
	if len(cfg.SearchDomain) > 0 && strings.Count(name, ".") < cfg.Ndots {
		return name + "." + strings.TrimSuffix(cfg.SearchDomain, ".")
	}
	return name
}

// toASCII punycode-encodes a non-ASCII name per IDNA2008 so the wire query always carries an ASCII
// label set; a name that fails IDNA validation is passed through unchanged and will surface as a
// NXDOMAIN or parse Error further down the pipeline rather than failing the plan outright.
func toASCII(name string) string {
	if isASCII(name) {
		return name
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return name
	}
	return ascii
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

// normalizeBase qualifies the domain portion of a service spec the same way a plain name would be.
func normalizeBase(cfg Config, domain string) string {
	return qualify(cfg, domain)
}

// parseServiceSpec recognizes the "name[:proto]:domain" grammar: either
// "name:proto:domain" or "name::domain" (proto defaults to tcp). The string is split at its first two
// colons, so the domain is everything after the second one. Returns ok=false for anything with
// fewer than two colons or an empty name or domain.
func parseServiceSpec(s string) (name, proto, domain string, ok bool) {
	if strings.Count(s, ":") < 2 {
		return "", "", "", false
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || len(parts[0]) == 0 || len(parts[2]) == 0 {
		return "", "", "", false
	}
	proto = parts[1]
	if len(proto) == 0 {
		proto = "tcp"
	}
	return parts[0], proto, parts[2], true
}

// expandCIDR enumerates one PTR query per host address in the block, in address order, capped at
// limit. For a.b.c.0/24 with a limit of at least 256 this yields exactly 256 PTR queries.
func expandCIDR(cidr string, limit int) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}

	ip4 := ip.To4()
	if ip4 == nil {
		return expandCIDR6(ipnet, limit)
	}

	ones, bits := ipnet.Mask.Size()
	total := 1 << uint(bits-ones)
	if total > limit {
		total = limit
	}

	base := ipnet.IP.To4()
	start := uint32(base[0])<<24 | uint32(base[1])<<16 | uint32(base[2])<<8 | uint32(base[3])

	names := make([]string, 0, total)
	for i := 0; i < total; i++ {
		v := start + uint32(i)
		addr := net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)).String()
		name, err := dns.ReverseAddr(addr)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// expandCIDR6 is the IPv6 analogue of expandCIDR. IPv6 blocks are routinely far larger than any
// sane limit, so this is always bounded by limit - the planner never attempts to walk a /64.
func expandCIDR6(ipnet *net.IPNet, limit int) ([]string, error) {
	base := append(net.IP{}, ipnet.IP.To16()...)
	names := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		addr := make(net.IP, len(base))
		copy(addr, base)
		addUint(addr, uint64(i))
		if !ipnet.Contains(addr) {
			break
		}
		name, err := dns.ReverseAddr(addr.String())
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// addUint adds v to the big-endian byte slice ip in place, treating it as one large integer.
func addUint(ip net.IP, v uint64) {
	for i := len(ip) - 1; i >= 0 && v > 0; i-- {
		sum := uint64(ip[i]) + v
		ip[i] = byte(sum)
		v = sum >> 8
	}
}
