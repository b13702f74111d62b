package resolvconf

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resolv.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConf(t, `nameserver 192.0.2.53
nameserver 2001:db8::53
search corp.example.com example.com
options ndots:2 timeout:3 attempts:4
`)

	rc, err := Load(path)
	if err != nil {
		t.Fatal("Load:", err)
	}

	if len(rc.Servers) != 2 || rc.Servers[0] != "192.0.2.53" || rc.Servers[1] != "2001:db8::53" {
		t.Error("unexpected servers", rc.Servers)
	}
	if len(rc.Search) != 2 || rc.Search[0] != "corp.example.com" {
		t.Error("unexpected search domains", rc.Search)
	}
	if rc.Ndots != 2 {
		t.Error("expected ndots 2, got", rc.Ndots)
	}
	if rc.Timeout != 3 {
		t.Error("expected timeout 3, got", rc.Timeout)
	}
	if rc.Attempts != 4 {
		t.Error("expected attempts 4, got", rc.Attempts)
	}
}

// A minimal file must still yield usable Timeout/Attempts values.
func TestLoadMinimalFixups(t *testing.T) {
	path := writeConf(t, "nameserver 192.0.2.53\n")

	rc, err := Load(path)
	if err != nil {
		t.Fatal("Load:", err)
	}
	if rc.Timeout < 1 {
		t.Error("expected Timeout to be fixed up to at least 1, got", rc.Timeout)
	}
	if rc.Attempts < 1 {
		t.Error("expected Attempts to be fixed up to at least 1, got", rc.Attempts)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected an error for an empty path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent")); err == nil {
		t.Error("expected an error for a nonexistent file")
	}
}
