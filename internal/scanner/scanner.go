// Package scanner runs the scan orchestration loop: it drives the radio
// sub-scanners and the position source, resolves BLE private addresses and
// hands sightings to the observation aggregator through a bounded worker pool.
package scanner

import (
	"context"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/observation"
	"github.com/tphakala/rfscan-go/internal/radio"
)

// WifiResult is one access point from the last Wi-Fi scan.
type WifiResult struct {
	BSSID        string    `json:"bssid"`
	SSID         string    `json:"ssid"`
	Frequency    int       `json:"frequency"` // MHz
	Capabilities string    `json:"capabilities"`
	Level        int       `json:"level"` // dBm
	Timestamp    time.Time `json:"timestamp,omitzero"`
}

// BleAdvertisement is one received BLE advertisement.
type BleAdvertisement struct {
	Address          string    `json:"address"`
	Name             string    `json:"name"`
	RSSI             int       `json:"rssi"`
	TxPower          int       `json:"tx_power"` // radio.TxPowerUnknown when absent
	ServiceUUIDs     []string  `json:"service_uuids,omitempty"`
	ManufacturerData string    `json:"manufacturer_data,omitempty"`
	Connectable      bool      `json:"connectable"`
	Timestamp        time.Time `json:"timestamp,omitzero"`
}

// ClassicDevice is one device found by classic Bluetooth discovery.
type ClassicDevice struct {
	Address       string    `json:"address"`
	Name          string    `json:"name"`
	RSSI          int       `json:"rssi"`
	DeviceClass   int       `json:"device_class"`
	BluetoothType string    `json:"bluetooth_type,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitzero"`
}

// WifiScanner is a polled Wi-Fi scanner.
type WifiScanner interface {
	// TriggerScan starts a new scan. Results become available through
	// GetLastResults once the scan completes.
	TriggerScan(ctx context.Context) error
	GetLastResults(ctx context.Context) ([]WifiResult, error)
}

// BleScanner delivers advertisements continuously until stopped.
type BleScanner interface {
	StartContinuousScan(ctx context.Context, onAdvertisement func(BleAdvertisement)) error
	Stop() error
}

// ClassicScanner runs classic Bluetooth discovery until stopped.
type ClassicScanner interface {
	StartDiscovery(ctx context.Context, onDevice func(ClassicDevice)) error
	Stop() error
}

// PositionSource delivers position fixes until stopped.
type PositionSource interface {
	Start(ctx context.Context, onPosition func(radio.Position)) error
	Stop() error
}

// Aggregator is the part of observation.Aggregator the orchestrator uses.
type Aggregator interface {
	Upsert(ctx context.Context, s observation.Sighting) (bool, error)
	StartSession(ctx context.Context, notes string) (string, error)
	EndSession(ctx context.Context, id string, summary observation.SessionSummary) error
	RecordRoutePoint(ctx context.Context, sessionID string, pos *radio.Position) error
}

// KeyStore provides the identity keys loaded at the start of each run.
type KeyStore interface {
	List(ctx context.Context) ([]*entities.IRK, error)
	IncrementResolved(ctx context.Context, id string, n int64) error
}

// Sub-scanner names used in events, metrics and snapshot errors.
const (
	ScannerWifi     = "wifi"
	ScannerBLE      = "ble"
	ScannerClassic  = "classic"
	ScannerPosition = "position"
)
