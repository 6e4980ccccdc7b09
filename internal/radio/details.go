// Package radio holds the per-technology details of an observed emitter and
// the signal, channel and security helpers shared by scanners and exporters.
package radio

import (
	"strings"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
)

// Details is the technology-specific part of a sighting. Exactly one
// concrete type exists per entities.Kind.
type Details interface {
	Kind() entities.Kind
	// Apply copies the descriptive fields onto a network being created.
	Apply(n *entities.Network)
}

// WifiDetails describes a Wi-Fi access point.
type WifiDetails struct {
	Frequency    int // MHz
	Capabilities string
}

func (WifiDetails) Kind() entities.Kind { return entities.KindWifi }

func (d WifiDetails) Apply(n *entities.Network) {
	n.Frequency = d.Frequency
	n.Channel = FrequencyToChannel(d.Frequency)
	n.Capabilities = d.Capabilities
	n.Security = string(ParseSecurity(d.Capabilities))
}

// BluetoothDetails describes a device found by classic discovery.
type BluetoothDetails struct {
	BluetoothType string // CLASSIC, LE, DUAL
	DeviceClass   int
}

func (BluetoothDetails) Kind() entities.Kind { return entities.KindBluetooth }

func (d BluetoothDetails) Apply(n *entities.Network) {
	n.BluetoothType = d.BluetoothType
	if n.BluetoothType == "" {
		n.BluetoothType = "CLASSIC"
	}
	n.DeviceClass = d.DeviceClass
	n.IsConnectable = true
}

// BleDetails describes a BLE advertiser.
type BleDetails struct {
	ServiceUUIDs     []string
	ManufacturerData string // see FormatManufacturerData
	TxPower          int    // TxPowerUnknown when not advertised
	Connectable      bool
	IsRPA            bool
	ResolvedIRKID    string // empty when unresolved
}

func (BleDetails) Kind() entities.Kind { return entities.KindBLE }

func (d BleDetails) Apply(n *entities.Network) {
	n.BluetoothType = "LE"
	n.ServiceUUIDs = FormatServiceUUIDs(d.ServiceUUIDs)
	n.ManufacturerData = d.ManufacturerData
	n.TxPower = d.TxPower
	n.IsConnectable = d.Connectable
	n.IsRPA = d.IsRPA
	if d.ResolvedIRKID != "" {
		id := d.ResolvedIRKID
		n.ResolvedIRKID = &id
	}
}

// CellularDetails describes a cell tower.
type CellularDetails struct {
	CellType     string // GSM, CDMA, LTE, NR
	MCC          int
	MNC          int
	LAC          int
	CID          int64
	OperatorName string
}

func (CellularDetails) Kind() entities.Kind { return entities.KindCellular }

func (d CellularDetails) Apply(n *entities.Network) {
	n.CellType = strings.ToUpper(d.CellType)
	n.MCC = d.MCC
	n.MNC = d.MNC
	n.LAC = d.LAC
	n.CID = d.CID
	n.OperatorName = d.OperatorName
}
