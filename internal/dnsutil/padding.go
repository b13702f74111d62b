package dnsutil

import (
	"fmt"

	"github.com/miekg/dns"
)

// PadAndPack adds an EDNS0_PADDING sub-option to the message's OPT RR (creating the OPT if need
// be) sized so that the packed message length is a multiple of moduloSize, then packs the message.
// RFC8467 recommends DoH queries be padded to the closest multiple of 128 octets; mhost applies
// this to every outgoing DoH query. Any pre-existing padding option is removed first - padding is
// hop-by-hop, so whatever the message carried before arriving here has already served its purpose.
//
// Packing happens inside this function because any modification made to the message after padding
// would invalidate the carefully selected padding size.
//
// WARNING: dns.Msg.Len() and dns.Msg.Pack() only work properly with well-formed DNS messages and
// can disagree on length for malformed ones, so this function is equally constrained.
//
// Returns the dns.Pack() byte array or an error.
func PadAndPack(msg *dns.Msg, moduloSize uint) ([]byte, error) {
	if moduloSize < 1 || moduloSize > consts.MaximumViableDNSMessage {
		return nil, fmt.Errorf("PadAndPack: Modulo size %d is not in range 1-%d",
			moduloSize, consts.MaximumViableDNSMessage)
	}
	var optRR *dns.OPT
	if len(msg.Extra) > 0 {
		RemoveEDNS0FromOPT(msg, dns.EDNS0PADDING) // Remove any existing PADDING
		if len(msg.Extra) > 0 {
			optRR = FindOPT(msg) // Use pre-existing OPT if present
		}
	}
	if optRR == nil { // If no pre-existing, create a fresh one
		optRR = NewOPT()
		msg.Extra = append(msg.Extra, optRR)
	}

	// The message now has an OPT RR with no padding option. Append a zero-length padding option
	// so the packed length includes the option overhead, then compute how much actual padding
	// brings the total up to the requested modulo.

	padding := &dns.EDNS0_PADDING{Padding: make([]byte, 0)}
	optRR.Option = append(optRR.Option, padding)

	mLen := msg.Len() // This is an expensive call so cache the value

	extraPadding := (moduloSize - (uint(mLen) % moduloSize)) % moduloSize

	// A zero-length option is kept even when the length already fits: its presence signals the
	// remote end to pad its response.
	if extraPadding > 0 {
		padding.Padding = make([]byte, extraPadding)
		optRR.Option[len(optRR.Option)-1] = padding
	}

	packed, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("PadAndPack dns.Pack() failed: %s", err.Error())
	}

	// msg.Len() does not follow the same code path as msg.Pack(), so verify the modulo landed.
	if uint(len(packed))%moduloSize != 0 {
		return nil, fmt.Errorf("PadAndPack dns.Pack() created unexpected length of %d with mod %d",
			len(packed), moduloSize)
	}

	return packed, nil
}
