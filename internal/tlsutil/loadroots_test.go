package tlsutil

import (
	"testing"
)

func TestLoadRoots(t *testing.T) {
	pool, err := loadroots(false, zeroCAs)
	if err != nil {
		t.Error("unexpected error with no roots at all", err)
	}
	if pool == nil {
		t.Error("expected an (empty) pool back when no error returned")
	}

	pool, err = loadroots(true, zeroCAs)
	if err != nil {
		t.Error("unexpected error with system roots only", err)
	}
	if pool == nil {
		t.Error("expected a pool back when no error returned")
	}

	if _, err = loadroots(false, oneCA); err != nil {
		t.Error("unexpected error loading a CA file", err)
	}
	if _, err = loadroots(true, oneCA); err != nil {
		t.Error("unexpected error loading a CA file on top of system roots", err)
	}

	if _, err = loadroots(false, missingCA); err == nil {
		t.Error("expected an error for a nonexistent CA file")
	}
	if _, err = loadroots(false, emptyCA); err == nil {
		t.Error("expected an error for a CA file with no PEM data")
	}
}
