// Package nameserver builds and holds the Resolvers Pool: the deduplicated, capped collection of
// name-server descriptors the engine dispatches against, partitioned into system and lookup
// sub-pools.
package nameserver

import (
	"fmt"
	"os"

	"github.com/lukaspustina/mhost/internal/model"
	"github.com/lukaspustina/mhost/internal/resolvconf"
)

const me = "nameserver"

// Config mirrors the subset of global CLI flags that feed pool construction.
type Config struct {
	Nameservers         []string          // --nameserver SPEC...
	NameserversFromFile string            // --nameservers-from-file FILE
	Predefined          bool              // --predefined
	PredefinedFilter    []model.Transport

	NoSystemNameservers bool     // suppress /etc/resolv.conf derived lookup servers
	ResolvConfPath      string   // --resolv-conf, defaults to /etc/resolv.conf
	NoSystemLookups     bool     // -S/--no-system-lookups
	SystemNameservers   []string // --system-nameserver IP...

	Limit int // --limit, default 100

	// ReadFile abstracts reading --nameservers-from-file for testability; defaults to
	// os.ReadFile when nil.
	ReadFile func(path string) ([]byte, error)
}

// Pool is an ordered, deduplicated collection of NameServerDescriptors, capped at Config.Limit and
// partitioned into system (used only for "system lookups") and lookup (everything else).
type Pool struct {
	lookup []model.NameServerDescriptor
	system []model.NameServerDescriptor
}

// System returns the system-lookup sub-pool.
func (p *Pool) System() []model.NameServerDescriptor { return p.system }

// Lookup returns the general lookup sub-pool.
func (p *Pool) Lookup() []model.NameServerDescriptor { return p.lookup }

// AllUnique returns the deduplicated union of both sub-pools, lookup first, in insertion order.
func (p *Pool) AllUnique() []model.NameServerDescriptor {
	seen := make(map[string]bool, len(p.lookup)+len(p.system))
	out := make([]model.NameServerDescriptor, 0, len(p.lookup)+len(p.system))
	for _, d := range append(append([]model.NameServerDescriptor{}, p.lookup...), p.system...) {
		if !seen[d.Key()] {
			seen[d.Key()] = true
			out = append(out, d)
		}
	}
	return out
}

// Build constructs a Pool: sources are applied in order (explicit --nameserver,
// --nameservers-from-file, --predefined, system descriptors from resolv.conf), with a descriptor
// from an earlier source shadowing a duplicate from a later one. Fails with a configuration error
// if a descriptor is unparseable; individual unreachable servers are never a build failure.
func Build(cfg Config) (*Pool, error) {
	p := &Pool{}
	seen := make(map[string]bool)

	add := func(d model.NameServerDescriptor) {
		if seen[d.Key()] {
			return
		}
		seen[d.Key()] = true
		p.lookup = append(p.lookup, d)
	}

	for _, spec := range cfg.Nameservers {
		d, err := model.ParseDescriptor(spec, model.OriginUserCli)
		if err != nil {
			return nil, fmt.Errorf("%s: ConfigError: %w", me, err)
		}
		add(d)
	}

	if len(cfg.NameserversFromFile) > 0 {
		readFile := cfg.ReadFile
		if readFile == nil {
			readFile = defaultReadFile
		}
		specs, err := readSpecLines(readFile, cfg.NameserversFromFile)
		if err != nil {
			return nil, fmt.Errorf("%s: ConfigError: %w", me, err)
		}
		for _, spec := range specs {
			d, err := model.ParseDescriptor(spec, model.OriginUserFile)
			if err != nil {
				return nil, fmt.Errorf("%s: ConfigError: %w", me, err)
			}
			add(d)
		}
	}

	if cfg.Predefined {
		for _, d := range Predefined(cfg.PredefinedFilter) {
			add(d)
		}
	}

	if !cfg.NoSystemNameservers {
		rc, err := loadResolvConf(cfg.ResolvConfPath)
		if err != nil {
			return nil, fmt.Errorf("%s: ConfigError: %w", me, err)
		}
		for _, s := range rc.Servers {
			add(model.NameServerDescriptor{Transport: model.TransportUDP, Addr: s, Port: 53, Origin: model.OriginSystem})
		}
	}

	if len(p.lookup) > cfg.effectiveLimit() {
		p.lookup = p.lookup[:cfg.effectiveLimit()] // truncate in insertion order
	}

	// System-lookup sub-pool: either explicit --system-nameserver IPs or resolv.conf, unless
	// --no-system-lookups suppresses it entirely.
	if !cfg.NoSystemLookups {
		seenSys := make(map[string]bool)
		addSys := func(d model.NameServerDescriptor) {
			if seenSys[d.Key()] {
				return
			}
			seenSys[d.Key()] = true
			p.system = append(p.system, d)
		}

		if len(cfg.SystemNameservers) > 0 {
			for _, ip := range cfg.SystemNameservers {
				addSys(model.NameServerDescriptor{Transport: model.TransportUDP, Addr: ip, Port: 53, Origin: model.OriginSystem})
			}
		} else {
			rc, err := loadResolvConf(cfg.ResolvConfPath)
			if err != nil {
				return nil, fmt.Errorf("%s: ConfigError: %w", me, err)
			}
			for _, s := range rc.Servers {
				addSys(model.NameServerDescriptor{Transport: model.TransportUDP, Addr: s, Port: 53, Origin: model.OriginSystem})
			}
		}
	}

	return p, nil
}

func (cfg Config) effectiveLimit() int {
	if cfg.Limit > 0 {
		return cfg.Limit
	}
	return 100
}

func loadResolvConf(path string) (*resolvconf.Config, error) {
	if len(path) == 0 {
		path = "/etc/resolv.conf"
	}
	return resolvconf.Load(path)
}

func readSpecLines(readFile func(string) ([]byte, error), path string) ([]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var lines []string
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := trimSpace(string(data[start:i]))
			if len(line) > 0 && line[0] != '#' {
				lines = append(lines, line)
			}
			start = i + 1
		}
	}
	return lines, nil
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' }

func defaultReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
