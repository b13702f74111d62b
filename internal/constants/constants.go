/*
Package constants provides common values used across all mhost packages. Usage is to call the
global Get() function which returns the Constants by value ensuring that any modifications made
(accidental or otherwise) will not affect other modules when they call Get().

Typically usage:

    consts := constants.Get()
    fmt.Println("I am", consts.ProgramName, "version", consts.Version)

The primary reason for making this a constructed struct rather than the more typical const () block
is so that it can be fed directly into templating packages for printing usage messages.
*/
package constants

// Constants contains the system-wide constants
type Constants struct {
	ProgramName string
	Version     string
	PackageURL  string

	DefaultUDPPort  string // Name-server SPEC grammar default ports
	DefaultTCPPort  string
	DefaultTLSPort  string
	DefaultHTTPPort string

	DefaultLimit                 int // Pool size cap
	DefaultMaxConcurrentServers  int // Engine budget M
	DefaultMaxConcurrentRequests int // Engine budget K
	DefaultRetries               int
	DefaultTimeoutSeconds        int
	DefaultNdots                 int

	DefaultRandomNameCount  int // Discover wildcard detection
	DefaultRandomNameLength int

	DNSUDPTransport string // Suitable for miekg/dns.Client.Net
	DNSTCPTransport string
	DNSTLSTransport string // "tcp-tls"

	MinimumViableDNSMessage uint // A legit binary DNS Message cannot be shorter than this
	MaximumViableDNSMessage uint
	Rfc8467ClientPadModulo  uint

	Rfc8484AcceptValue string // application/dns-message content-type for DoH, RFC8484
}

var readOnlyConstants *Constants

// createReadOnlyConstants creates a read-only copy of the Constants which is copied whenever a
// caller asks for the constants set. The main reason for returning a struct is so that callers can
// inspect and/or use packages that introspect - particularly */template packages.
func createReadOnlyConstants() {
	readOnlyConstants = &Constants{
		ProgramName: "mhost",
		Version:     "v0.1.0",
		PackageURL:  "https://github.com/lukaspustina/mhost",

		DefaultUDPPort:  "53",
		DefaultTCPPort:  "53",
		DefaultTLSPort:  "853",
		DefaultHTTPPort: "443",

		DefaultLimit:                 100,
		DefaultMaxConcurrentServers:  10,
		DefaultMaxConcurrentRequests: 5,
		DefaultRetries:               0,
		DefaultTimeoutSeconds:        5,
		DefaultNdots:                 1,

		DefaultRandomNameCount:  3,
		DefaultRandomNameLength: 32,

		DNSUDPTransport: "udp",
		DNSTCPTransport: "tcp",
		DNSTLSTransport: "tcp-tls",

		MinimumViableDNSMessage: 16,
		MaximumViableDNSMessage: 65535,
		Rfc8467ClientPadModulo:  128,

		Rfc8484AcceptValue: "application/dns-message",
	}
}

func init() {
	createReadOnlyConstants()
}

// Get returns a copy of the Constant struct. Return by value so internal values cannot be
// inadvertently changed by callers.
func Get() Constants {
	return *readOnlyConstants
}
