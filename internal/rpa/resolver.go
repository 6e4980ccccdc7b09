// Package rpa classifies Bluetooth LE addresses and resolves Resolvable
// Private Addresses against Identity Resolving Keys using the link-layer
// privacy ah() function.
package rpa

import (
	"bytes"
	"crypto/aes"
	"encoding/hex"
	"strings"

	"github.com/tphakala/rfscan-go/internal/errors"
)

const (
	// KeySize is the length of an IRK in bytes.
	KeySize = 16
	// AddressSize is the length of a BLE device address in bytes.
	AddressSize = 6

	rpaMask   = 0xC0
	rpaMarker = 0x40
)

var (
	ErrInvalidAddressFormat = errors.NewStd("invalid address format")
	ErrInvalidKeyFormat     = errors.NewStd("invalid key format")
)

// Address is a BLE device address, most significant octet first.
type Address [AddressSize]byte

// String renders the address as AA:BB:CC:DD:EE:FF.
func (a Address) String() string {
	var sb strings.Builder
	sb.Grow(17)
	for i, b := range a {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{b})))
	}
	return sb.String()
}

// IsResolvable reports whether the two top bits of the first octet are 01.
func (a Address) IsResolvable() bool {
	return a[0]&rpaMask == rpaMarker
}

// Key is a 128-bit Identity Resolving Key.
type Key [KeySize]byte

// ParseAddress accepts six octets separated by ':' or '-', or 12 bare hex digits.
func ParseAddress(s string) (Address, error) {
	var addr Address
	compact := strings.TrimSpace(s)
	switch len(compact) {
	case 17:
		sep := compact[2]
		if sep != ':' && sep != '-' {
			return addr, ErrInvalidAddressFormat
		}
		for i := 2; i < len(compact); i += 3 {
			if compact[i] != sep {
				return addr, ErrInvalidAddressFormat
			}
		}
		compact = strings.ReplaceAll(compact, string(sep), "")
	case 12:
	default:
		return addr, ErrInvalidAddressFormat
	}

	if _, err := hex.Decode(addr[:], []byte(compact)); err != nil {
		return Address{}, ErrInvalidAddressFormat
	}
	return addr, nil
}

// IsResolvablePrivateAddress reports whether address uses the resolvable
// private scheme. Malformed input returns ErrInvalidAddressFormat.
func IsResolvablePrivateAddress(address string) (bool, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return false, err
	}
	return addr.IsResolvable(), nil
}

// ParseKey accepts 32 hex digits with an optional 0x prefix and optional
// ':' or '-' separators.
func ParseKey(s string) (Key, error) {
	var key Key
	compact := strings.TrimSpace(s)
	if strings.HasPrefix(compact, "0x") || strings.HasPrefix(compact, "0X") {
		compact = compact[2:]
	}
	compact = strings.NewReplacer(":", "", "-", "").Replace(compact)
	if len(compact) != KeySize*2 {
		return key, ErrInvalidKeyFormat
	}
	if _, err := hex.Decode(key[:], []byte(compact)); err != nil {
		return Key{}, ErrInvalidKeyFormat
	}
	return key, nil
}

// KeyStyle selects the textual form produced by FormatKey.
type KeyStyle int

const (
	KeyStyleCompact  KeyStyle = iota // 0102...0f10
	KeyStyleColon                    // 01:02:...:10
	KeyStyleDash                     // 01-02-...-10
	KeyStylePrefixed                 // 0x0102...0f10
)

// FormatKey renders key in the given style; ParseKey accepts every style.
func FormatKey(key Key, style KeyStyle) string {
	compact := hex.EncodeToString(key[:])
	switch style {
	case KeyStyleColon, KeyStyleDash:
		sep := ":"
		if style == KeyStyleDash {
			sep = "-"
		}
		pairs := make([]string, KeySize)
		for i := range pairs {
			pairs[i] = compact[i*2 : i*2+2]
		}
		return strings.Join(pairs, sep)
	case KeyStylePrefixed:
		return "0x" + compact
	default:
		return compact
	}
}

// String returns the canonical lower-case compact form used for storage.
func (k Key) String() string {
	return FormatKey(k, KeyStyleCompact)
}

// ah computes the 24-bit hash of prand under key: AES-128 over 13 zero
// bytes followed by prand, keeping the last three bytes of the ciphertext.
func ah(key Key, prand [3]byte) [3]byte {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		// unreachable: key length is fixed at 16
		panic(err)
	}
	var in, out [aes.BlockSize]byte
	copy(in[aes.BlockSize-3:], prand[:])
	block.Encrypt(out[:], in[:])

	var hash [3]byte
	copy(hash[:], out[aes.BlockSize-3:])
	return hash
}

// ResolveAddress reports whether addr was generated from key.
func ResolveAddress(addr Address, key Key) bool {
	if !addr.IsResolvable() {
		return false
	}
	hash := ah(key, [3]byte(addr[:3]))
	return bytes.Equal(hash[:], addr[3:])
}

// Resolve parses address and reports whether it resolves under key.
// Malformed addresses never resolve.
func Resolve(address string, key Key) bool {
	addr, err := ParseAddress(address)
	if err != nil {
		return false
	}
	return ResolveAddress(addr, key)
}

// Match returns the index of the first key that resolves address.
func Match(address string, keys []Key) (int, bool) {
	addr, err := ParseAddress(address)
	if err != nil || !addr.IsResolvable() {
		return -1, false
	}
	for i, key := range keys {
		if ResolveAddress(addr, key) {
			return i, true
		}
	}
	return -1, false
}

// Generate builds a resolvable private address for key. The two top bits
// of prand are forced to 01.
func Generate(key Key, prand [3]byte) Address {
	prand[0] = prand[0]&^rpaMask | rpaMarker
	hash := ah(key, prand)

	var addr Address
	copy(addr[:3], prand[:])
	copy(addr[3:], hash[:])
	return addr
}
