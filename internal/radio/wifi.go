package radio

import "strings"

// Security is the normalized Wi-Fi security mode.
type Security string

const (
	SecurityOpen    Security = "OPEN"
	SecurityWEP     Security = "WEP"
	SecurityWPA     Security = "WPA"
	SecurityWPA2    Security = "WPA2"
	SecurityWPA3    Security = "WPA3"
	SecurityWPAEAP  Security = "WPA_EAP"
	SecurityWPA2EAP Security = "WPA2_EAP"
	SecurityUnknown Security = "UNKNOWN"
)

// FrequencyToChannel converts a center frequency in MHz to its channel number,
// or 0 when the frequency is outside the 2.4, 5 and 6 GHz bands.
func FrequencyToChannel(freq int) int {
	switch {
	case freq == 2484:
		return 14
	case freq >= 2412 && freq < 2484:
		return (freq-2412)/5 + 1
	case freq >= 5170 && freq <= 5825:
		return (freq-5170)/5 + 34
	case freq >= 5935 && freq <= 7115:
		return (freq-5935)/5 + 1
	default:
		return 0
	}
}

// ParseSecurity derives the security mode from a capabilities string such as
// "[WPA2-PSK-CCMP][RSN-PSK-CCMP][ESS]". The strongest match wins.
func ParseSecurity(capabilities string) Security {
	caps := strings.ToUpper(capabilities)
	switch {
	case strings.Contains(caps, "WPA3"):
		return SecurityWPA3
	case strings.Contains(caps, "WPA2-EAP") || strings.Contains(caps, "RSN-EAP"):
		return SecurityWPA2EAP
	case strings.Contains(caps, "WPA2") || strings.Contains(caps, "RSN"):
		return SecurityWPA2
	case strings.Contains(caps, "WPA-EAP"):
		return SecurityWPAEAP
	case strings.Contains(caps, "WPA"):
		return SecurityWPA
	case strings.Contains(caps, "WEP"):
		return SecurityWEP
	case strings.Contains(caps, "ESS"):
		return SecurityOpen
	default:
		return SecurityUnknown
	}
}
