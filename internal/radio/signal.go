package radio

import "math"

const (
	qualityFloor   = -100
	qualityCeiling = -30

	// DefaultTxPower is the assumed 1 m RSSI for distance estimates
	DefaultTxPower = -59
	// DefaultPathLossExponent models a cluttered outdoor environment
	DefaultPathLossExponent = 2.5
)

// QualityPercent maps an RSSI to 0-100, linear between -100 and -30 dBm.
func QualityPercent(rssi int) int {
	clamped := min(max(rssi, qualityFloor), qualityCeiling)
	return (clamped - qualityFloor) * 100 / (qualityCeiling - qualityFloor)
}

// QualityLabel buckets an RSSI into a human label.
func QualityLabel(rssi int) string {
	switch {
	case rssi >= -50:
		return "Excellent"
	case rssi >= -60:
		return "Good"
	case rssi >= -70:
		return "Fair"
	case rssi >= -80:
		return "Weak"
	default:
		return "Poor"
	}
}

// EstimateDistance returns meters from the log-distance path loss model,
// or -1 when rssi is 0 (no reading).
func EstimateDistance(rssi, txPower int, n float64) float64 {
	if rssi == 0 {
		return -1
	}
	return math.Pow(10, float64(txPower-rssi)/(10*n))
}
