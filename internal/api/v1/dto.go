package api

import (
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/radio"
)

// NetworkResponse is the API view of a network.
type NetworkResponse struct {
	ID            string    `json:"id"`
	Address       string    `json:"address"`
	Name          string    `json:"name,omitempty"`
	Kind          string    `json:"kind"`
	Manufacturer  string    `json:"manufacturer,omitempty"`
	BestLevel     int       `json:"best_level"`
	SignalQuality int       `json:"signal_quality"`
	SignalLabel   string    `json:"signal_label"`
	BestLat       float64   `json:"best_lat"`
	BestLon       float64   `json:"best_lon"`
	LastLat       float64   `json:"last_lat"`
	LastLon       float64   `json:"last_lon"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	TimesObserved int64     `json:"times_observed"`

	Wifi      *WifiFields      `json:"wifi,omitempty"`
	Bluetooth *BluetoothFields `json:"bluetooth,omitempty"`
	Cellular  *CellularFields  `json:"cellular,omitempty"`
}

// WifiFields are set for WIFI networks.
type WifiFields struct {
	Frequency    int    `json:"frequency"`
	Channel      int    `json:"channel"`
	Capabilities string `json:"capabilities"`
	Security     string `json:"security"`
}

// BluetoothFields are set for BLUETOOTH and BLE devices.
type BluetoothFields struct {
	Type              string  `json:"type,omitempty"`
	DeviceClass       int     `json:"device_class,omitempty"`
	ServiceUUIDs      string  `json:"service_uuids,omitempty"`
	ManufacturerData  string  `json:"manufacturer_data,omitempty"`
	TxPower           int     `json:"tx_power"`
	EstimatedDistance float64 `json:"estimated_distance,omitempty"` // meters, BLE only
	IsConnectable     bool    `json:"connectable"`
	IsRPA             bool    `json:"rpa"`
	ResolvedIRKID     *string `json:"resolved_irk_id,omitempty"`
}

// CellularFields are set for CELLULAR cells.
type CellularFields struct {
	Type     string `json:"type"`
	MCC      int    `json:"mcc"`
	MNC      int    `json:"mnc"`
	LAC      int    `json:"lac"`
	CID      int64  `json:"cid"`
	Operator string `json:"operator,omitempty"`
}

// NewNetworkResponse converts a stored network.
func NewNetworkResponse(n *entities.Network) NetworkResponse {
	r := NetworkResponse{
		ID:            n.ID,
		Address:       n.Address,
		Name:          n.Name,
		Kind:          string(n.Kind),
		Manufacturer:  n.Manufacturer,
		BestLevel:     n.BestLevel,
		SignalQuality: radio.QualityPercent(n.BestLevel),
		SignalLabel:   radio.QualityLabel(n.BestLevel),
		BestLat:       n.BestLat,
		BestLon:       n.BestLon,
		LastLat:       n.LastLat,
		LastLon:       n.LastLon,
		FirstSeen:     n.FirstSeen,
		LastSeen:      n.LastSeen,
		TimesObserved: n.TimesObserved,
	}

	switch n.Kind {
	case entities.KindWifi:
		r.Wifi = &WifiFields{
			Frequency:    n.Frequency,
			Channel:      n.Channel,
			Capabilities: n.Capabilities,
			Security:     n.Security,
		}
	case entities.KindBluetooth, entities.KindBLE:
		bt := &BluetoothFields{
			Type:             n.BluetoothType,
			DeviceClass:      n.DeviceClass,
			ServiceUUIDs:     n.ServiceUUIDs,
			ManufacturerData: n.ManufacturerData,
			TxPower:          n.TxPower,
			IsConnectable:    n.IsConnectable,
			IsRPA:            n.IsRPA,
			ResolvedIRKID:    n.ResolvedIRKID,
		}
		if n.Kind == entities.KindBLE {
			txPower := n.TxPower
			if txPower == radio.TxPowerUnknown || txPower == 0 {
				txPower = radio.DefaultTxPower
			}
			if d := radio.EstimateDistance(n.BestLevel, txPower, radio.DefaultPathLossExponent); d > 0 {
				bt.EstimatedDistance = d
			}
		}
		r.Bluetooth = bt
	case entities.KindCellular:
		r.Cellular = &CellularFields{
			Type:     n.CellType,
			MCC:      n.MCC,
			MNC:      n.MNC,
			LAC:      n.LAC,
			CID:      n.CID,
			Operator: n.OperatorName,
		}
	}
	return r
}

// SightingResponse is the API view of a sighting.
type SightingResponse struct {
	ID        string    `json:"id"`
	NetworkID string    `json:"network_id"`
	Address   string    `json:"address"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Altitude  float64   `json:"altitude"`
	Accuracy  float64   `json:"accuracy"`
	Level     int       `json:"level"`
	Timestamp time.Time `json:"timestamp"`
	SessionID *string   `json:"session_id,omitempty"`
}

func newSightingResponses(rows []*entities.Sighting) []SightingResponse {
	out := make([]SightingResponse, 0, len(rows))
	for _, s := range rows {
		out = append(out, SightingResponse{
			ID:        s.ID,
			NetworkID: s.NetworkID,
			Address:   s.Address,
			Lat:       s.Lat,
			Lon:       s.Lon,
			Altitude:  s.Altitude,
			Accuracy:  s.Accuracy,
			Level:     s.Level,
			Timestamp: s.Timestamp,
			SessionID: s.SessionID,
		})
	}
	return out
}

// SessionResponse is the API view of a session.
type SessionResponse struct {
	ID             string     `json:"id"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Active         bool       `json:"active"`
	TotalNetworks  int64      `json:"total_networks"`
	NewNetworks    int64      `json:"new_networks"`
	TotalSightings int64      `json:"total_sightings"`
	Distance       float64    `json:"distance"`
	Notes          string     `json:"notes,omitempty"`
}

func newSessionResponse(s *entities.Session) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		Active:         s.Active(),
		TotalNetworks:  s.TotalNetworks,
		NewNetworks:    s.NewNetworks,
		TotalSightings: s.TotalSightings,
		Distance:       s.Distance,
		Notes:          s.Notes,
	}
}

// RoutePointResponse is the API view of a route point.
type RoutePointResponse struct {
	SessionID string    `json:"session_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Altitude  float64   `json:"altitude"`
	Accuracy  float64   `json:"accuracy"`
	Speed     *float64  `json:"speed,omitempty"`
	Bearing   *float64  `json:"bearing,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newRouteResponses(rows []*entities.RoutePoint) []RoutePointResponse {
	out := make([]RoutePointResponse, 0, len(rows))
	for _, p := range rows {
		out = append(out, RoutePointResponse{
			SessionID: p.SessionID,
			Lat:       p.Lat,
			Lon:       p.Lon,
			Altitude:  p.Altitude,
			Accuracy:  p.Accuracy,
			Speed:     p.Speed,
			Bearing:   p.Bearing,
			Timestamp: p.Timestamp,
		})
	}
	return out
}

// IRKResponse is the API view of an identity key.
type IRKResponse struct {
	ID            string    `json:"id"`
	Key           string    `json:"key"`
	Name          string    `json:"name"`
	DeviceType    string    `json:"device_type,omitempty"`
	AddedAt       time.Time `json:"added_at"`
	TimesResolved int64     `json:"times_resolved"`
}

func newIRKResponse(k *entities.IRK) IRKResponse {
	return IRKResponse{
		ID:            k.ID,
		Key:           k.Key,
		Name:          k.Name,
		DeviceType:    k.DeviceType,
		AddedAt:       k.AddedAt,
		TimesResolved: k.TimesResolved,
	}
}
