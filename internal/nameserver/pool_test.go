package nameserver

import (
	"errors"
	"testing"

	"github.com/lukaspustina/mhost/internal/model"
)

func noResolvConf(cfg Config) Config {
	cfg.NoSystemNameservers = true
	cfg.NoSystemLookups = true
	return cfg
}

func TestBuildExplicitNameservers(t *testing.T) {
	cfg := noResolvConf(Config{Nameservers: []string{"8.8.8.8", "1.1.1.1"}})
	pool, err := Build(cfg)
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if len(pool.Lookup()) != 2 {
		t.Fatal("expected 2 lookup servers, got", len(pool.Lookup()))
	}
}

func TestBuildDedupesAcrossSources(t *testing.T) {
	cfg := noResolvConf(Config{
		Nameservers: []string{"8.8.8.8"},
		Predefined:  true,
	})
	pool, err := Build(cfg)
	if err != nil {
		t.Fatal("unexpected error", err)
	}

	count := 0
	for _, d := range pool.Lookup() {
		if d.Addr == "8.8.8.8" && d.Transport == model.TransportUDP {
			count++
		}
	}
	if count != 1 {
		t.Error("expected explicit --nameserver to shadow the predefined duplicate, got", count, "occurrences")
	}
}

func TestBuildEnforcesLimit(t *testing.T) {
	specs := make([]string, 0, 5)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5"} {
		specs = append(specs, ip)
	}
	cfg := noResolvConf(Config{Nameservers: specs, Limit: 3})
	pool, err := Build(cfg)
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if len(pool.Lookup()) != 3 {
		t.Fatal("expected limit to truncate to 3, got", len(pool.Lookup()))
	}
	if pool.Lookup()[0].Addr != "10.0.0.1" || pool.Lookup()[2].Addr != "10.0.0.3" {
		t.Error("expected truncation to preserve insertion order", pool.Lookup())
	}
}

func TestBuildRejectsBadSpec(t *testing.T) {
	cfg := noResolvConf(Config{Nameservers: []string{"udp:8.8.8.8,bogus=1"}})
	_, err := Build(cfg)
	if err == nil {
		t.Fatal("expected ConfigError for an unparseable descriptor")
	}
}

func TestBuildFromFile(t *testing.T) {
	cfg := noResolvConf(Config{
		NameserversFromFile: "servers.txt",
		ReadFile: func(path string) ([]byte, error) {
			if path != "servers.txt" {
				return nil, errors.New("unexpected path")
			}
			return []byte("8.8.8.8\n# comment\n\n1.1.1.1\n"), nil
		},
	})
	pool, err := Build(cfg)
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if len(pool.Lookup()) != 2 {
		t.Fatal("expected 2 servers from file, got", len(pool.Lookup()))
	}
}

func TestAllUnique(t *testing.T) {
	cfg := Config{
		Nameservers:         []string{"8.8.8.8"},
		SystemNameservers:   []string{"8.8.8.8"},
		NoSystemNameservers: true,
	}
	pool, err := Build(cfg)
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if len(pool.AllUnique()) != 1 {
		t.Error("expected AllUnique to dedupe across lookup and system pools, got", len(pool.AllUnique()))
	}
}
