package model

import (
	"encoding/json"
	"fmt"

	"github.com/miekg/dns"
)

// jsonDescriptor is the wire shape of NameServerDescriptor used under the "server" key. Port is
// rendered as a number; TLSAuthName and Label are omitted when empty so the common udp/tcp case
// stays minimal.
type jsonDescriptor struct {
	Transport   string `json:"transport"`
	Addr        string `json:"addr"`
	Port        int    `json:"port"`
	TLSAuthName string `json:"tls_auth_name,omitempty"`
	Label       string `json:"name,omitempty"`
}

func toJSONDescriptor(d NameServerDescriptor) jsonDescriptor {
	return jsonDescriptor{Transport: string(d.Transport), Addr: d.Addr, Port: d.Port, TLSAuthName: d.TLSAuthName, Label: d.Label}
}

func (d jsonDescriptor) toDescriptor() NameServerDescriptor {
	return NameServerDescriptor{Transport: Transport(d.Transport), Addr: d.Addr, Port: d.Port, TLSAuthName: d.TLSAuthName, Label: d.Label}
}

type jsonQuery struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Class string `json:"class"`
}

func toJSONQuery(q Query) jsonQuery {
	return jsonQuery{Name: q.Name, Type: q.TypeString(), Class: "IN"}
}

type jsonRecord struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
	TTL  uint32                 `json:"ttl"`
}

func toJSONRecord(r Record) jsonRecord {
	return jsonRecord{Type: r.Type(), Data: r.Data(), TTL: r.TTL()}
}

// fromJSONRecord reconstructs the concrete Record variant from its wire shape. It round-trips
// everything FromRR can produce except the rdata of a NULL record, which comes back empty.
func fromJSONRecord(jr jsonRecord) (Record, error) {
	get := func(k string) string {
		v, _ := jr.Data[k].(string)
		return v
	}
	getNum := func(k string) uint32 {
		switch v := jr.Data[k].(type) {
		case float64:
			return uint32(v)
		case json.Number:
			n, _ := v.Int64()
			return uint32(n)
		}
		return 0
	}

	switch jr.Type {
	case "A":
		return &ARecord{Addr: get("A"), Ttl: jr.TTL}, nil
	case "AAAA":
		return &AAAARecord{Addr: get("AAAA"), Ttl: jr.TTL}, nil
	case "ANAME":
		return &ANAMERecord{Target: get("ANAME"), Ttl: jr.TTL}, nil
	case "CNAME":
		return &CNAMERecord{Target: get("CNAME"), Ttl: jr.TTL}, nil
	case "MX":
		return &MXRecord{Preference: uint16(getNum("preference")), Exchange: get("exchange"), Ttl: jr.TTL}, nil
	case "NS":
		return &NSRecord{Target: get("NS"), Ttl: jr.TTL}, nil
	case "PTR":
		return &PTRRecord{Target: get("PTR"), Ttl: jr.TTL}, nil
	case "SOA":
		return &SOARecord{
			Ns: get("ns"), Mbox: get("mbox"), Serial: getNum("serial"),
			Refresh: getNum("refresh"), Retry: getNum("retry"), Expire: getNum("expire"),
			Minttl: getNum("minttl"), Ttl: jr.TTL,
		}, nil
	case "SRV":
		return &SRVRecord{
			Priority: uint16(getNum("priority")), Weight: uint16(getNum("weight")),
			Port: uint16(getNum("port")), Target: get("target"), Ttl: jr.TTL,
		}, nil
	case "TXT":
		var txt []string
		if arr, ok := jr.Data["TXT"].([]interface{}); ok {
			for _, v := range arr {
				if s, ok := v.(string); ok {
					txt = append(txt, s)
				}
			}
		}
		return &TXTRecord{Txt: txt, Ttl: jr.TTL}, nil
	case "CAA":
		return &CAARecord{Flag: uint8(getNum("flag")), Tag: get("tag"), Value: get("value"), Ttl: jr.TTL}, nil
	case "NULL":
		return &NULLRecord{Ttl: jr.TTL}, nil
	case "UNSUPPORTED":
		return &UnsupportedRecord{TypeCode: uint16(getNum("type_code")), Raw: get("raw"), Ttl: jr.TTL}, nil
	default:
		return nil, fmt.Errorf("model: unknown record type %q in JSON", jr.Type)
	}
}

type jsonRow struct {
	Query  jsonQuery              `json:"query"`
	Result map[string]interface{} `json:"result"`
	Server jsonDescriptor         `json:"server"`
}

type jsonLookups struct {
	Lookups []jsonRow `json:"lookups"`
}

func resultPayload(r Response) map[string]interface{} {
	switch v := r.(type) {
	case *RecordsResponse:
		recs := make([]jsonRecord, 0, len(v.Records))
		for _, rec := range v.Records {
			recs = append(recs, toJSONRecord(rec))
		}
		return map[string]interface{}{string(KindRecords): map[string]interface{}{"records": recs}}
	case *NxDomainResponse:
		body := map[string]interface{}{}
		if v.AuthoritySOA != nil {
			body["authority_soa"] = toJSONRecord(v.AuthoritySOA)
		}
		return map[string]interface{}{string(KindNxDomain): body}
	case *NoRecordsResponse:
		return map[string]interface{}{string(KindNoRecords): map[string]interface{}{}}
	case *TimeoutResponse:
		return map[string]interface{}{string(KindTimeout): map[string]interface{}{"after_ms": v.After.Milliseconds()}}
	case *ErrorResponse:
		body := map[string]interface{}{"kind": string(v.ErrKind)}
		if v.Err != nil {
			body["message"] = v.Err.Error()
		}
		return map[string]interface{}{string(KindError): body}
	default:
		return map[string]interface{}{}
	}
}

// MarshalJSON flattens the Lookups tree to one row per (query, server, response):
// {"lookups":[{"query":{...},"result":{...},"server":{...}}]}.
func (ls Lookups) MarshalJSON() ([]byte, error) {
	var rows []jsonRow
	for _, l := range ls.Items {
		jq := toJSONQuery(l.Query)
		for _, r := range l.Responses {
			rows = append(rows, jsonRow{Query: jq, Result: resultPayload(r), Server: toJSONDescriptor(r.Server())})
		}
	}
	return json.Marshal(jsonLookups{Lookups: rows})
}

// UnmarshalJSON reconstructs a Lookups value from the flattened schema, grouping consecutive rows
// that share the same query back into one Lookup - the inverse of MarshalJSON.
func (ls *Lookups) UnmarshalJSON(data []byte) error {
	var wire jsonLookups
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	ls.Items = nil
	var cur *Lookup
	var curQuery jsonQuery
	for _, row := range wire.Lookups {
		if cur == nil || row.Query != curQuery {
			ls.Items = append(ls.Items, Lookup{Query: Query{Name: row.Query.Name, Type: stringToType(row.Query.Type)}})
			cur = &ls.Items[len(ls.Items)-1]
			curQuery = row.Query
		}

		server := row.Server.toDescriptor()
		resp, err := rowToResponse(cur.Query, server, row.Result)
		if err != nil {
			return err
		}
		cur.Responses = append(cur.Responses, resp)
	}

	return nil
}

func rowToResponse(query Query, server NameServerDescriptor, result map[string]interface{}) (Response, error) {
	for key, raw := range result {
		body, _ := raw.(map[string]interface{})
		switch ResponseKind(key) {
		case KindRecords:
			recsRaw, _ := body["records"].([]interface{})
			var records []Record
			for _, rr := range recsRaw {
				b, err := json.Marshal(rr)
				if err != nil {
					return nil, err
				}
				var jr jsonRecord
				if err := json.Unmarshal(b, &jr); err != nil {
					return nil, err
				}
				rec, err := fromJSONRecord(jr)
				if err != nil {
					return nil, err
				}
				records = append(records, rec)
			}
			return NewRecords(server, query, 0, records, 0, 0), nil
		case KindNxDomain:
			return NewNxDomain(server, query, 0, nil, 0), nil
		case KindNoRecords:
			return NewNoRecords(server, query, 0, 0), nil
		case KindTimeout:
			return NewTimeout(server, query, 0, 0), nil
		case KindError:
			kind, _ := body["kind"].(string)
			var err error
			if msg, ok := body["message"].(string); ok {
				err = fmt.Errorf("%s", msg)
			}
			return NewError(server, query, 0, ErrorKind(kind), err), nil
		}
	}
	return nil, fmt.Errorf("model: result payload had no recognized variant key")
}

func stringToType(s string) uint16 {
	return dns.StringToType[s]
}
