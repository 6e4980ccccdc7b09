package radio

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// TxPowerUnknown is reported when an advertisement carries no TX power level.
const TxPowerUnknown = -127

// FormatManufacturerData renders the company identifier as four upper-case
// hex digits followed by the upper-case hex payload.
func FormatManufacturerData(companyID uint16, payload []byte) string {
	return fmt.Sprintf("%04X", companyID) + strings.ToUpper(hex.EncodeToString(payload))
}

// FormatServiceUUIDs joins service UUIDs with commas, lower-cased.
func FormatServiceUUIDs(uuids []string) string {
	if len(uuids) == 0 {
		return ""
	}
	out := make([]string, 0, len(uuids))
	for _, u := range uuids {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, strings.ToLower(u))
		}
	}
	return strings.Join(out, ",")
}

// ParseServiceUUIDs splits a stored service UUID list.
func ParseServiceUUIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
