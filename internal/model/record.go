// Package model defines the data types that flow through the engine: name-server descriptors,
// queries, responses, resource records and the Lookups aggregate. Everything here is immutable
// once constructed so it can be freely shared across worker goroutines.
package model

import (
	"github.com/lukaspustina/mhost/internal/dnsutil"

	"github.com/miekg/dns"
)

// Record is the common interface implemented by every typed resource record variant. It is the Go
// rendering of the ResourceRecord sum type: one concrete struct per DNS type, plus Unsupported as
// the fallthrough for anything the engine doesn't model explicitly.
type Record interface {
	Type() string
	TTL() uint32

	// Data returns the type's rdata as a small map suitable for JSON serialization, e.g.
	// {"A": "93.184.216.34"} for an ARecord.
	Data() map[string]interface{}
}

type ARecord struct {
	Addr string
	Ttl  uint32
}

func (r *ARecord) Type() string                 { return "A" }
func (r *ARecord) TTL() uint32                  { return r.Ttl }
func (r *ARecord) Data() map[string]interface{} { return map[string]interface{}{"A": r.Addr} }

type AAAARecord struct {
	Addr string
	Ttl  uint32
}

func (r *AAAARecord) Type() string                 { return "AAAA" }
func (r *AAAARecord) TTL() uint32                  { return r.Ttl }
func (r *AAAARecord) Data() map[string]interface{} { return map[string]interface{}{"AAAA": r.Addr} }

type ANAMERecord struct {
	Target string
	Ttl    uint32
}

func (r *ANAMERecord) Type() string                 { return "ANAME" }
func (r *ANAMERecord) TTL() uint32                  { return r.Ttl }
func (r *ANAMERecord) Data() map[string]interface{} { return map[string]interface{}{"ANAME": r.Target} }

type CNAMERecord struct {
	Target string
	Ttl    uint32
}

func (r *CNAMERecord) Type() string                 { return "CNAME" }
func (r *CNAMERecord) TTL() uint32                  { return r.Ttl }
func (r *CNAMERecord) Data() map[string]interface{} { return map[string]interface{}{"CNAME": r.Target} }

type MXRecord struct {
	Preference uint16
	Exchange   string
	Ttl        uint32
}

func (r *MXRecord) Type() string { return "MX" }
func (r *MXRecord) TTL() uint32  { return r.Ttl }
func (r *MXRecord) Data() map[string]interface{} {
	return map[string]interface{}{"preference": r.Preference, "exchange": r.Exchange}
}

type NSRecord struct {
	Target string
	Ttl    uint32
}

func (r *NSRecord) Type() string                 { return "NS" }
func (r *NSRecord) TTL() uint32                  { return r.Ttl }
func (r *NSRecord) Data() map[string]interface{} { return map[string]interface{}{"NS": r.Target} }

type PTRRecord struct {
	Target string
	Ttl    uint32
}

func (r *PTRRecord) Type() string                 { return "PTR" }
func (r *PTRRecord) TTL() uint32                  { return r.Ttl }
func (r *PTRRecord) Data() map[string]interface{} { return map[string]interface{}{"PTR": r.Target} }

type SOARecord struct {
	Ns      string
	Mbox    string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minttl  uint32
	Ttl     uint32
}

func (r *SOARecord) Type() string { return "SOA" }
func (r *SOARecord) TTL() uint32  { return r.Ttl }
func (r *SOARecord) Data() map[string]interface{} {
	return map[string]interface{}{
		"ns": r.Ns, "mbox": r.Mbox, "serial": r.Serial,
		"refresh": r.Refresh, "retry": r.Retry, "expire": r.Expire, "minttl": r.Minttl,
	}
}

type SRVRecord struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
	Ttl      uint32
}

func (r *SRVRecord) Type() string { return "SRV" }
func (r *SRVRecord) TTL() uint32  { return r.Ttl }
func (r *SRVRecord) Data() map[string]interface{} {
	return map[string]interface{}{
		"priority": r.Priority, "weight": r.Weight, "port": r.Port, "target": r.Target,
	}
}

type TXTRecord struct {
	Txt []string
	Ttl uint32
}

func (r *TXTRecord) Type() string { return "TXT" }
func (r *TXTRecord) TTL() uint32  { return r.Ttl }
func (r *TXTRecord) Data() map[string]interface{} {
	return map[string]interface{}{"TXT": r.Txt}
}

type CAARecord struct {
	Flag  uint8
	Tag   string
	Value string
	Ttl   uint32
}

func (r *CAARecord) Type() string { return "CAA" }
func (r *CAARecord) TTL() uint32  { return r.Ttl }
func (r *CAARecord) Data() map[string]interface{} {
	return map[string]interface{}{"flag": r.Flag, "tag": r.Tag, "value": r.Value}
}

type NULLRecord struct {
	Raw []byte
	Ttl uint32
}

func (r *NULLRecord) Type() string                 { return "NULL" }
func (r *NULLRecord) TTL() uint32                  { return r.Ttl }
func (r *NULLRecord) Data() map[string]interface{} { return map[string]interface{}{"NULL": r.Raw} }

// UnsupportedRecord is the fallthrough for any dns.RR type this package does not model explicitly.
type UnsupportedRecord struct {
	TypeCode uint16
	Raw      string
	Ttl      uint32
}

func (r *UnsupportedRecord) Type() string { return "UNSUPPORTED" }
func (r *UnsupportedRecord) TTL() uint32  { return r.Ttl }
func (r *UnsupportedRecord) Data() map[string]interface{} {
	return map[string]interface{}{"type_code": r.TypeCode, "raw": r.Raw}
}

// FromRR converts a github.com/miekg/dns resource record into the typed Record variant this package
// works with. Types without a dedicated case fall through to UnsupportedRecord, carrying a compact
// rdata rendition as their raw form.
func FromRR(rr dns.RR) Record {
	ttl := rr.Header().Ttl
	switch v := rr.(type) {
	case *dns.A:
		return &ARecord{Addr: v.A.String(), Ttl: ttl}
	case *dns.AAAA:
		return &AAAARecord{Addr: v.AAAA.String(), Ttl: ttl}
	case *dns.CNAME:
		return &CNAMERecord{Target: v.Target, Ttl: ttl}
	case *dns.MX:
		return &MXRecord{Preference: v.Preference, Exchange: v.Mx, Ttl: ttl}
	case *dns.NS:
		return &NSRecord{Target: v.Ns, Ttl: ttl}
	case *dns.PTR:
		return &PTRRecord{Target: v.Ptr, Ttl: ttl}
	case *dns.SOA:
		return &SOARecord{
			Ns: v.Ns, Mbox: v.Mbox, Serial: v.Serial, Refresh: v.Refresh,
			Retry: v.Retry, Expire: v.Expire, Minttl: v.Minttl, Ttl: ttl,
		}
	case *dns.SRV:
		return &SRVRecord{Priority: v.Priority, Weight: v.Weight, Port: v.Port, Target: v.Target, Ttl: ttl}
	case *dns.TXT:
		return &TXTRecord{Txt: v.Txt, Ttl: ttl}
	case *dns.CAA:
		return &CAARecord{Flag: v.Flag, Tag: v.Tag, Value: v.Value, Ttl: ttl}
	case *dns.NULL:
		return &NULLRecord{Raw: []byte(v.Data), Ttl: ttl}
	default:
		return &UnsupportedRecord{TypeCode: rr.Header().Rrtype, Raw: dnsutil.CompactRRsString([]dns.RR{rr}), Ttl: ttl}
	}
}
