package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Transport identifies the wire protocol a NameServerDescriptor is reached over.
type Transport string

const (
	TransportUDP Transport = "udp"
	TransportTCP Transport = "tcp"
	TransportDoT Transport = "tls"
	TransportDoH Transport = "https"
)

// Origin records why a NameServerDescriptor exists, so the pool can classify and, for the Check
// pipeline, synthesize ad-hoc descriptors that never touch the process-wide configuration.
type Origin string

const (
	OriginSystem                  Origin = "System"
	OriginPredefined              Origin = "Predefined"
	OriginUserCli                 Origin = "UserCli"
	OriginUserFile                Origin = "UserFile"
	OriginDiscoveredAuthoritative Origin = "DiscoveredAuthoritative"
	OriginServerLists             Origin = "ServerLists"
)

// NameServerDescriptor immutably identifies one upstream name server. Equality is defined by
// (Transport, Addr, Port, TLSAuthName); Label and Origin are metadata, not identity.
type NameServerDescriptor struct {
	Transport   Transport
	Addr        string
	Port        int
	TLSAuthName string
	Label       string
	Origin      Origin
}

// Equal implements descriptor identity: two descriptors differing only by
// Label or Origin are the same server.
func (d NameServerDescriptor) Equal(o NameServerDescriptor) bool {
	return d.Transport == o.Transport && d.Addr == o.Addr && d.Port == o.Port && d.TLSAuthName == o.TLSAuthName
}

// Key returns a string suitable for use as a dedupe map key, consistent with Equal.
func (d NameServerDescriptor) Key() string {
	return string(d.Transport) + "|" + d.Addr + "|" + strconv.Itoa(d.Port) + "|" + d.TLSAuthName
}

// String renders the descriptor for summary/log output, e.g. "udp:8.8.8.8:53".
func (d NameServerDescriptor) String() string {
	s := string(d.Transport) + ":" + d.Addr + ":" + strconv.Itoa(d.Port)
	if len(d.Label) > 0 {
		s += " (" + d.Label + ")"
	}
	return s
}

// defaultPort returns the SPEC grammar's default port for a transport.
func defaultPort(t Transport) int {
	switch t {
	case TransportDoT:
		return 853
	case TransportDoH:
		return 443
	default:
		return 53
	}
}

// ParseDescriptor parses the name-server SPEC grammar:
//
//	[proto:]<host-or-ip>[:port][,tls_auth_name=NAME][,name=LABEL]
//
// Default proto is udp; default port is 53 for udp/tcp, 853 for tls, 443 for https.
func ParseDescriptor(spec string, origin Origin) (NameServerDescriptor, error) {
	fields := strings.Split(spec, ",")
	if len(fields) == 0 || len(fields[0]) == 0 {
		return NameServerDescriptor{}, errors.New("model:ParseDescriptor: empty spec")
	}

	d := NameServerDescriptor{Transport: TransportUDP, Origin: origin}

	hostPart := fields[0]
	if ix := strings.Index(hostPart, ":"); ix >= 0 {
		maybeProto := hostPart[:ix]
		switch maybeProto {
		case "udp":
			d.Transport = TransportUDP
			hostPart = hostPart[ix+1:]
		case "tcp":
			d.Transport = TransportTCP
			hostPart = hostPart[ix+1:]
		case "tls":
			d.Transport = TransportDoT
			hostPart = hostPart[ix+1:]
		case "https":
			d.Transport = TransportDoH
			hostPart = hostPart[ix+1:]
		}
	}

	// hostPart is now <host-or-ip>[:port], taking IPv6 [addr]:port into account.
	host, port, err := splitHostPort(hostPart)
	if err != nil {
		return NameServerDescriptor{}, fmt.Errorf("model:ParseDescriptor: %w", err)
	}
	d.Addr = host
	if port > 0 {
		d.Port = port
	} else {
		d.Port = defaultPort(d.Transport)
	}

	for _, kv := range fields[1:] {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return NameServerDescriptor{}, fmt.Errorf("model:ParseDescriptor: malformed attribute %q", kv)
		}
		switch parts[0] {
		case "tls_auth_name":
			d.TLSAuthName = parts[1]
		case "name":
			d.Label = parts[1]
		default:
			return NameServerDescriptor{}, fmt.Errorf("model:ParseDescriptor: unknown attribute %q", parts[0])
		}
	}

	return d, nil
}

// splitHostPort splits "host[:port]" or "[ipv6]:port", tolerating a bare IPv6 address with no port.
func splitHostPort(s string) (host string, port int, err error) {
	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return "", 0, errors.New("unterminated [ipv6] literal")
		}
		host = s[1:end]
		rest := s[end+1:]
		if len(rest) == 0 {
			return host, 0, nil
		}
		if rest[0] != ':' {
			return "", 0, errors.New("expected ':port' after ]")
		}
		port, err = strconv.Atoi(rest[1:])
		return host, port, err
	}

	// Bare IPv6 addresses contain multiple colons and have no port attached.
	if strings.Count(s, ":") > 1 {
		return s, 0, nil
	}

	ix := strings.LastIndex(s, ":")
	if ix < 0 {
		return s, 0, nil
	}
	host = s[:ix]
	port, err = strconv.Atoi(s[ix+1:])
	return host, port, err
}
