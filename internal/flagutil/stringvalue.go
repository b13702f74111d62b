// Package flagutil supplements the standard flag package with the value types mhost's CLI needs.
// Currently that is StringValue, a flag.Value implementation for options that may occur multiple
// times on the command line, such as:
//
//	$ mhost -s 8.8.8.8 -s 1.1.1.1 -s tls:9.9.9.9 lookup ...
//
// Usage follows the flag package conventions:
//
//	var servers flagutil.StringValue
//	flagSet.Var(&servers, "s", "name server (repeatable)")
//	specs := servers.Args()
package flagutil

import (
	"strings"
)

// StringValue accumulates every occurrence of its flag, in command-line order.
type StringValue struct {
	strings []string
}

// Set appends one occurrence's value. Called by the flag package; part of the flag.Value
// interface.
func (t *StringValue) Set(s string) error {
	t.strings = append(t.strings, s)

	return nil
}

// String returns the accumulated values space-separated. Part of the flag.Value interface.
func (t *StringValue) String() string {
	return strings.Join(t.strings, " ")
}

// Args returns a copy of the accumulated values. Callers may modify the returned slice freely.
func (t *StringValue) Args() []string {
	return append([]string{}, t.strings...)
}
