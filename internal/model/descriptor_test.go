package model

import "testing"

func TestParseDescriptorDefaults(t *testing.T) {
	d, err := ParseDescriptor("8.8.8.8", OriginUserCli)
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if d.Transport != TransportUDP || d.Addr != "8.8.8.8" || d.Port != 53 {
		t.Error("wrong defaults", d)
	}
}

func TestParseDescriptorFullGrammar(t *testing.T) {
	d, err := ParseDescriptor("tls:9.9.9.9:853,tls_auth_name=dns.quad9.net,name=quad9", OriginUserCli)
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if d.Transport != TransportDoT || d.Addr != "9.9.9.9" || d.Port != 853 {
		t.Error("wrong parse", d)
	}
	if d.TLSAuthName != "dns.quad9.net" || d.Label != "quad9" {
		t.Error("wrong attributes", d)
	}
}

func TestParseDescriptorIPv6(t *testing.T) {
	d, err := ParseDescriptor("[2001:4860:4860::8888]:53", OriginUserCli)
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if d.Addr != "2001:4860:4860::8888" || d.Port != 53 {
		t.Error("wrong ipv6 parse", d)
	}

	d2, err := ParseDescriptor("2001:4860:4860::8888", OriginUserCli)
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if d2.Addr != "2001:4860:4860::8888" || d2.Port != 53 {
		t.Error("wrong bare ipv6 parse", d2)
	}
}

func TestParseDescriptorRejectsUnknownAttribute(t *testing.T) {
	if _, err := ParseDescriptor("8.8.8.8,bogus=1", OriginUserCli); err == nil {
		t.Error("expected an error for an unknown attribute")
	}
}

func TestDescriptorEquality(t *testing.T) {
	a := NameServerDescriptor{Transport: TransportUDP, Addr: "8.8.8.8", Port: 53, Label: "a"}
	b := NameServerDescriptor{Transport: TransportUDP, Addr: "8.8.8.8", Port: 53, Label: "b"}
	if !a.Equal(b) {
		t.Error("descriptors differing only by label should be equal")
	}

	c := NameServerDescriptor{Transport: TransportTCP, Addr: "8.8.8.8", Port: 53}
	if a.Equal(c) {
		t.Error("descriptors differing by transport should not be equal")
	}
}
