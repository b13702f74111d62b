// Package serverlists fetches lists of public name servers from third-party directories
// (public-dns.info, OpenNIC) and parses them into model.NameServerDescriptor values. Only the
// data shapes and a minimal HTTP fetch live here, behind the same HTTPClientDo seam the DoH
// transport uses so tests can inject a mock transport.
package serverlists

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lukaspustina/mhost/internal/model"
)

const me = "serverlists"

// HTTPClientDo is the subset of net/http.Client this package needs, grounded on
// internal/singleresolver's identically-shaped seam so tests can inject a mock transport.
type HTTPClientDo interface {
	Do(*http.Request) (*http.Response, error)
}

// Source identifies which public directory to fetch from, and the country/tier filter it accepts.
type Source struct {
	Name string // "public-dns" or "opennic"
	Spec string // e.g. "us" (country code) or "" (no filter)
}

// ParseSource recognizes the "name:spec" grammar accepted by the server-lists command, e.g.
// "public-dns:us" or "opennic:".
func ParseSource(s string) (Source, error) {
	name, spec, ok := strings.Cut(s, ":")
	if !ok {
		return Source{}, fmt.Errorf("%s: expected name:spec, got %q", me, s)
	}
	switch name {
	case "public-dns", "opennic":
	default:
		return Source{}, fmt.Errorf("%s: unknown source %q", me, name)
	}
	return Source{Name: name, Spec: spec}, nil
}

func (s Source) url() string {
	switch s.Name {
	case "public-dns":
		if len(s.Spec) > 0 {
			return "https://public-dns.info/nameserver/" + s.Spec + ".csv"
		}
		return "https://public-dns.info/nameservers.csv"
	case "opennic":
		return "https://api.opennicproject.org/geoip/?list&res=2&ipv=4"
	}
	return ""
}

// Fetch retrieves src's list over HTTP and parses it into NameServerDescriptors, one per listed
// address (reachability is not checked), all with Origin model.OriginServerLists and udp transport
// on port 53.
func Fetch(ctx context.Context, client HTTPClientDo, src Source) ([]model.NameServerDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.url(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", me, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", me, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s returned %s", me, src.Name, resp.Status)
	}

	switch src.Name {
	case "public-dns":
		return parsePublicDNSCSV(resp.Body)
	case "opennic":
		return parseOpenNICList(resp.Body)
	default:
		return nil, fmt.Errorf("%s: unknown source %q", me, src.Name)
	}
}

// parsePublicDNSCSV reads public-dns.info's "ip,name,..." CSV export. Only the first column (the
// resolver's IP address) is used; the rest of the schema is for humans.
func parsePublicDNSCSV(r io.Reader) ([]model.NameServerDescriptor, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []model.NameServerDescriptor
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", me, err)
		}
		if first {
			first = false
			if len(rec) > 0 && strings.EqualFold(rec[0], "ip") {
				continue // header row
			}
		}
		if len(rec) == 0 || len(rec[0]) == 0 {
			continue
		}
		out = append(out, model.NameServerDescriptor{
			Transport: model.TransportUDP, Addr: rec[0], Port: 53,
			Origin: model.OriginServerLists,
		})
	}
	return out, nil
}

// parseOpenNICList reads OpenNIC's one-address-per-line geoip list.
func parseOpenNICList(r io.Reader) ([]model.NameServerDescriptor, error) {
	var out []model.NameServerDescriptor
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		out = append(out, model.NameServerDescriptor{
			Transport: model.TransportUDP, Addr: line, Port: 53,
			Origin: model.OriginServerLists,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", me, err)
	}
	return out, nil
}
