package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestUsage(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	mainInit(out, errOut)
	ec := mainExecute([]string{"mhost", "-help"})

	if ec != exitSuccess {
		t.Errorf("expected exit 0, got %d", ec)
	}
	for _, want := range []string{"NAME", "SYNOPSIS", "COMMANDS", "lookup", "discover", "check", "server-lists", "Version:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("usage output missing %q:\n%s", want, out.String())
		}
	}
}
