package radio

import (
	"encoding/hex"
	"strings"
)

// NormalizeAddress renders a hardware address as upper-case colon-separated
// octets. Input may use ':' or '-' separators or none. Identifiers that are
// not 48-bit addresses (cell ids) are trimmed and upper-cased.
func NormalizeAddress(addr string) string {
	trimmed := strings.TrimSpace(addr)
	compact := strings.NewReplacer(":", "", "-", "").Replace(trimmed)
	raw, err := hex.DecodeString(compact)
	if err != nil || len(raw) != 6 {
		return strings.ToUpper(trimmed)
	}
	return FormatAddress([6]byte(raw))
}

// FormatAddress renders six octets as AA:BB:CC:DD:EE:FF.
func FormatAddress(b [6]byte) string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, 0, 17)
	for i, octet := range b {
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, digits[octet>>4], digits[octet&0x0f])
	}
	return string(out)
}
