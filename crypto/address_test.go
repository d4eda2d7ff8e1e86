package crypto

import (
	"bytes"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, AddressLength)
	raw[AddressLength-1] = 0x42
	addr := MustNewAddress(AccountPrefix, raw)

	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(addr) {
		t.Fatalf("round trip mismatch: %x vs %x", decoded.Bytes(), addr.Bytes())
	}
	if decoded.Prefix() != AccountPrefix {
		t.Fatalf("unexpected prefix %q", decoded.Prefix())
	}
}

func TestNewAddressRejectsBadLength(t *testing.T) {
	if _, err := NewAddress(AccountPrefix, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestNewAddressCopiesInput(t *testing.T) {
	raw := make([]byte, AddressLength)
	addr := MustNewAddress(AccountPrefix, raw)
	raw[0] = 0xFF
	if addr.Bytes()[0] != 0 {
		t.Fatalf("address aliased caller slice")
	}
}

func TestModuleAddressDeterministic(t *testing.T) {
	a := ModuleAddress("pool")
	b := ModuleAddress("pool")
	c := ModuleAddress("lending")
	if !a.Equal(b) {
		t.Fatalf("module address not deterministic")
	}
	if a.Equal(c) {
		t.Fatalf("distinct modules share an address")
	}
	if a.IsZero() {
		t.Fatalf("module address must not be zero")
	}
}

func TestAddressText(t *testing.T) {
	addr := ModuleAddress("leverage")
	text, err := addr.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Address
	if err := out.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(out.Bytes(), addr.Bytes()) {
		t.Fatalf("text round trip mismatch")
	}
	if err := out.UnmarshalText([]byte("not-an-address")); err == nil {
		t.Fatalf("expected decode error")
	}
}
