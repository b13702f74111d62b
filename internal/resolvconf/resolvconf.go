// Package resolvconf extracts the fields the engine consumes from /etc/resolv.conf: system
// nameserver addresses, search, ndots, timeout and attempts. A thin wrapper over
// github.com/miekg/dns's ClientConfigFromFile.
package resolvconf

import (
	"errors"

	"github.com/miekg/dns"
)

const me = "resolvconf"

// Config is the subset of dns.ClientConfig the rest of mhost cares about.
type Config struct {
	Servers  []string
	Search   []string
	Ndots    int
	Timeout  int
	Attempts int
}

// Load parses path (typically /etc/resolv.conf) via dns.ClientConfigFromFile and fixes up the
// zero values miekg/dns can return for Timeout/Attempts on a malformed or minimal file, which are
// not usable as-is.
func Load(path string) (*Config, error) {
	if len(path) == 0 {
		return nil, errors.New(me + ": empty resolv.conf path")
	}

	cc, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return nil, errors.New(me + ": " + err.Error())
	}

	if cc.Attempts <= 0 {
		cc.Attempts = 1
	}
	if cc.Timeout <= 0 {
		cc.Timeout = 1
	}

	return &Config{
		Servers:  cc.Servers,
		Search:   cc.Search,
		Ndots:    cc.Ndots,
		Timeout:  cc.Timeout,
		Attempts: cc.Attempts,
	}, nil
}
