package crypto

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable part of a bech32 address.
type AddressPrefix string

const (
	// AccountPrefix is used for every account known to the venue, user or
	// module alike.
	AccountPrefix AddressPrefix = "corn"

	// AddressLength is the raw byte length of an account identifier.
	AddressLength = 20
)

// Address represents a 20-byte account identifier with a specific prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

// NewAddress validates the raw bytes and wraps them in an Address.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes long, got %d", AddressLength, len(b))
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}, nil
}

// MustNewAddress is NewAddress for constants and tests.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// ModuleAddress derives the deterministic account owned by a system
// component such as the pool or the lending engine.
func ModuleAddress(name string) Address {
	digest := ethcrypto.Keccak256([]byte("module:" + name))
	return MustNewAddress(AccountPrefix, digest[len(digest)-AddressLength:])
}

func (a Address) String() string {
	if len(a.bytes) == 0 {
		return ""
	}
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns the raw address bytes. Callers must not mutate the slice.
func (a Address) Bytes() []byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether the address is unset or all zero bytes.
func (a Address) IsZero() bool {
	for _, b := range a.bytes {
		if b != 0 {
			return false
		}
	}
	return true
}

// Equal compares the raw bytes of two addresses; prefixes are ignored.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a.bytes, other.bytes)
}

// Key returns a map key for the address.
func (a Address) Key() string {
	return string(a.bytes)
}

// MarshalText implements encoding.TextMarshaler using the bech32 form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// DecodeAddress parses a bech32 encoded address.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}
