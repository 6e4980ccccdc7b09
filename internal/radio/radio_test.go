package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
)

func TestQualityPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rssi int
		want int
	}{
		{-120, 0},
		{-100, 0},
		{-65, 50},
		{-30, 100},
		{-10, 100},
		{-99, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QualityPercent(tt.rssi), "rssi %d", tt.rssi)
	}
}

func TestQualityLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Excellent", QualityLabel(-50))
	assert.Equal(t, "Good", QualityLabel(-51))
	assert.Equal(t, "Good", QualityLabel(-60))
	assert.Equal(t, "Fair", QualityLabel(-70))
	assert.Equal(t, "Weak", QualityLabel(-80))
	assert.Equal(t, "Poor", QualityLabel(-81))
}

func TestEstimateDistance(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, -1.0, EstimateDistance(0, DefaultTxPower, DefaultPathLossExponent), 0)
	assert.InDelta(t, 1.0, EstimateDistance(-59, DefaultTxPower, DefaultPathLossExponent), 1e-9)
	assert.InDelta(t, 10.0, EstimateDistance(-84, DefaultTxPower, DefaultPathLossExponent), 1e-9)
}

func TestFrequencyToChannel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		freq int
		want int
	}{
		{2412, 1},
		{2437, 6},
		{2472, 13},
		{2484, 14},
		{5180, 36},
		{5500, 100},
		{5825, 165},
		{5955, 5},
		{7115, 237},
		{900, 0},
		{5900, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FrequencyToChannel(tt.freq), "freq %d", tt.freq)
	}
}

func TestParseSecurity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		caps string
		want Security
	}{
		{"[WPA3-SAE-CCMP][RSN-PSK-CCMP][ESS]", SecurityWPA3},
		{"[WPA2-EAP-CCMP][ESS]", SecurityWPA2EAP},
		{"[RSN-EAP-CCMP][ESS]", SecurityWPA2EAP},
		{"[WPA2-PSK-CCMP][ESS]", SecurityWPA2},
		{"[rsn-psk-ccmp]", SecurityWPA2},
		{"[WPA-EAP-TKIP][ESS]", SecurityWPAEAP},
		{"[WPA-PSK-TKIP][ESS]", SecurityWPA},
		{"[WEP][ESS]", SecurityWEP},
		{"[ESS]", SecurityOpen},
		{"", SecurityUnknown},
		{"[IBSS]", SecurityUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSecurity(tt.caps), "caps %q", tt.caps)
	}
}

func TestFormatManufacturerData(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "004C0215ABCD", FormatManufacturerData(0x004c, []byte{0x02, 0x15, 0xab, 0xcd}))
	assert.Equal(t, "0006", FormatManufacturerData(6, nil))
}

func TestServiceUUIDs(t *testing.T) {
	t.Parallel()

	joined := FormatServiceUUIDs([]string{"0000180F-0000-1000-8000-00805F9B34FB", " ", "0000fe9f-0000-1000-8000-00805f9b34fb"})
	assert.Equal(t, "0000180f-0000-1000-8000-00805f9b34fb,0000fe9f-0000-1000-8000-00805f9b34fb", joined)
	assert.Len(t, ParseServiceUUIDs(joined), 2)
	assert.Empty(t, FormatServiceUUIDs(nil))
	assert.Nil(t, ParseServiceUUIDs(""))
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AA:BB:CC:DD:EE:01", NormalizeAddress("aa:bb:cc:dd:ee:01"))
	assert.Equal(t, "AA:BB:CC:DD:EE:01", NormalizeAddress("aa-bb-cc-dd-ee-01"))
	assert.Equal(t, "AA:BB:CC:DD:EE:01", NormalizeAddress(" aabbccddee01 "))
	assert.Equal(t, "LTE-244-91-1234", NormalizeAddress("lte-244-91-1234"))
}

func TestHaversine(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, Haversine(60.17, 24.94, 60.17, 24.94), 1e-9)
	// One degree of latitude is roughly 111.2 km.
	assert.InDelta(t, 111195, Haversine(0, 0, 1, 0), 10)

	p := Position{Lat: 60.1699, Lon: 24.9384}
	q := Position{Lat: 59.4370, Lon: 24.7536}
	assert.InDelta(t, 82000, p.DistanceTo(q), 1500)
}

func TestDetailsApply(t *testing.T) {
	t.Parallel()

	t.Run("wifi", func(t *testing.T) {
		t.Parallel()
		var n entities.Network
		d := WifiDetails{Frequency: 5180, Capabilities: "[WPA2-PSK-CCMP][ESS]"}
		d.Apply(&n)
		assert.Equal(t, entities.KindWifi, d.Kind())
		assert.Equal(t, 36, n.Channel)
		assert.Equal(t, string(SecurityWPA2), n.Security)
	})

	t.Run("ble", func(t *testing.T) {
		t.Parallel()
		var n entities.Network
		d := BleDetails{ServiceUUIDs: []string{"180F"}, TxPower: TxPowerUnknown, IsRPA: true, ResolvedIRKID: "irk-1"}
		d.Apply(&n)
		assert.Equal(t, entities.KindBLE, d.Kind())
		assert.Equal(t, "LE", n.BluetoothType)
		assert.Equal(t, -127, n.TxPower)
		assert.True(t, n.IsRPA)
		require.NotNil(t, n.ResolvedIRKID)
		assert.Equal(t, "irk-1", *n.ResolvedIRKID)
	})

	t.Run("ble unresolved", func(t *testing.T) {
		t.Parallel()
		var n entities.Network
		BleDetails{}.Apply(&n)
		assert.Nil(t, n.ResolvedIRKID)
	})

	t.Run("classic", func(t *testing.T) {
		t.Parallel()
		var n entities.Network
		d := BluetoothDetails{DeviceClass: 0x240404}
		d.Apply(&n)
		assert.Equal(t, entities.KindBluetooth, d.Kind())
		assert.Equal(t, "CLASSIC", n.BluetoothType)
		assert.Equal(t, 0x240404, n.DeviceClass)
	})

	t.Run("cellular", func(t *testing.T) {
		t.Parallel()
		var n entities.Network
		d := CellularDetails{CellType: "lte", MCC: 244, MNC: 91, LAC: 1, CID: 99, OperatorName: "Telia"}
		d.Apply(&n)
		assert.Equal(t, entities.KindCellular, d.Kind())
		assert.Equal(t, "LTE", n.CellType)
		assert.Equal(t, int64(99), n.CID)
	})
}
