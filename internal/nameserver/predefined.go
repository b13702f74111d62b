package nameserver

import "github.com/lukaspustina/mhost/internal/model"

// predefined is the built-in set of well-known public resolvers offered via --predefined,
// optionally narrowed with --predefined-filter. Listing a handful of major operators across all
// four transports lets a single --predefined flag exercise DoT and DoH end to end without the
// caller supplying their own SPEC strings.
var predefined = []model.NameServerDescriptor{
	{Transport: model.TransportUDP, Addr: "8.8.8.8", Port: 53, Label: "google", Origin: model.OriginPredefined},
	{Transport: model.TransportTCP, Addr: "8.8.8.8", Port: 53, Label: "google", Origin: model.OriginPredefined},
	{Transport: model.TransportDoT, Addr: "8.8.8.8", Port: 853, TLSAuthName: "dns.google", Label: "google", Origin: model.OriginPredefined},
	{Transport: model.TransportDoH, Addr: "8.8.8.8", Port: 443, TLSAuthName: "dns.google", Label: "google", Origin: model.OriginPredefined},

	{Transport: model.TransportUDP, Addr: "1.1.1.1", Port: 53, Label: "cloudflare", Origin: model.OriginPredefined},
	{Transport: model.TransportTCP, Addr: "1.1.1.1", Port: 53, Label: "cloudflare", Origin: model.OriginPredefined},
	{Transport: model.TransportDoT, Addr: "1.1.1.1", Port: 853, TLSAuthName: "cloudflare-dns.com", Label: "cloudflare", Origin: model.OriginPredefined},
	{Transport: model.TransportDoH, Addr: "1.1.1.1", Port: 443, TLSAuthName: "cloudflare-dns.com", Label: "cloudflare", Origin: model.OriginPredefined},

	{Transport: model.TransportUDP, Addr: "9.9.9.9", Port: 53, Label: "quad9", Origin: model.OriginPredefined},
	{Transport: model.TransportTCP, Addr: "9.9.9.9", Port: 53, Label: "quad9", Origin: model.OriginPredefined},
	{Transport: model.TransportDoT, Addr: "9.9.9.9", Port: 853, TLSAuthName: "dns.quad9.net", Label: "quad9", Origin: model.OriginPredefined},
	{Transport: model.TransportDoH, Addr: "9.9.9.9", Port: 443, TLSAuthName: "dns.quad9.net", Label: "quad9", Origin: model.OriginPredefined},
}

// Predefined returns the built-in resolver list, optionally filtered to the given transports. An
// empty filter returns the whole list.
func Predefined(transportFilter []model.Transport) []model.NameServerDescriptor {
	if len(transportFilter) == 0 {
		return append([]model.NameServerDescriptor{}, predefined...)
	}

	want := make(map[model.Transport]bool, len(transportFilter))
	for _, t := range transportFilter {
		want[t] = true
	}

	var out []model.NameServerDescriptor
	for _, d := range predefined {
		if want[d.Transport] {
			out = append(out, d)
		}
	}
	return out
}
