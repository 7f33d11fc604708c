package crypto

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part of a bech32 address.
type AddressPrefix string

const MarsPrefix AddressPrefix = "mars"

var ErrInvalidAddress = errors.New("crypto: invalid address")

// Address is a 20 byte account or a 32 byte module address with its prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 && len(b) != 32 {
		return Address{}, fmt.Errorf("%w: %d bytes", ErrInvalidAddress, len(b))
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}, nil
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		return ""
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		return ""
	}
	return encoded
}

func (a Address) Bytes() []byte { return append([]byte(nil), a.bytes...) }

func (a Address) Prefix() AddressPrefix { return a.prefix }

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: converting bits: %v", ErrInvalidAddress, err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// ValidateAddress checks that s is a well formed bech32 address under the
// mars prefix.
func ValidateAddress(s string) error {
	addr, err := DecodeAddress(s)
	if err != nil {
		return err
	}
	if addr.Prefix() != MarsPrefix {
		return fmt.Errorf("%w: prefix %q, want %q", ErrInvalidAddress, addr.Prefix(), MarsPrefix)
	}
	return nil
}

// ModuleAddress derives the deterministic account of a protocol module from
// its name.
func ModuleAddress(name string) string {
	hash := crypto.Keccak256([]byte("module/" + name))
	addr, _ := NewAddress(MarsPrefix, hash)
	return addr.String()
}
