package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestModuleAddressIsStableAndValid(t *testing.T) {
	a := ModuleAddress("creditmanager")
	if a != ModuleAddress("creditmanager") {
		t.Fatalf("module address not deterministic")
	}
	if a == ModuleAddress("lending") {
		t.Fatalf("distinct modules share an address")
	}
	if !strings.HasPrefix(a, "mars1") {
		t.Fatalf("unexpected prefix: %s", a)
	}
	if err := ValidateAddress(a); err != nil {
		t.Fatalf("validate: %v", err)
	}
	decoded, err := DecodeAddress(a)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Bytes()) != 32 {
		t.Fatalf("module address has %d bytes, want 32", len(decoded.Bytes()))
	}
}

func TestDecodeAddressRoundTrip(t *testing.T) {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	addr, err := NewAddress(MarsPrefix, raw)
	if err != nil {
		t.Fatalf("new address: %v", err)
	}
	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded.Bytes()) != string(raw) || decoded.Prefix() != MarsPrefix {
		t.Fatalf("round trip mismatch: %x %s", decoded.Bytes(), decoded.Prefix())
	}
}

func TestValidateAddressRejects(t *testing.T) {
	other, err := NewAddress("osmo", make([]byte, 20))
	if err != nil {
		t.Fatalf("new address: %v", err)
	}
	for _, input := range []string{"", "mars", "not-bech32", other.String()} {
		if err := ValidateAddress(input); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("ValidateAddress(%q) = %v, want ErrInvalidAddress", input, err)
		}
	}
	if _, err := NewAddress(MarsPrefix, make([]byte, 5)); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected length error, got %v", err)
	}
}
