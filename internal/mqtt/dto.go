package mqtt

import (
	"time"

	"github.com/tphakala/rfscan-go/internal/events"
	"github.com/tphakala/rfscan-go/internal/radio"
)

// ScanEventDTO is the JSON payload published for a scan event.
type ScanEventDTO struct {
	Type      events.ScanEventType `json:"type"`
	Timestamp time.Time            `json:"timestamp"`
	SessionID string               `json:"sessionId,omitempty"`
	Message   string               `json:"message"`

	Scanner string `json:"scanner,omitempty"`
	Error   string `json:"error,omitempty"`

	Address       string `json:"address,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Name          string `json:"name,omitempty"`
	Level         *int   `json:"level,omitempty"` // dBm
	SignalQuality *int   `json:"signalQuality,omitempty"`
	SignalLabel   string `json:"signalLabel,omitempty"`
	IRKID         string `json:"irkId,omitempty"`

	NewNetworks    *int64 `json:"newNetworks,omitempty"`
	TotalSightings *int64 `json:"totalSightings,omitempty"`
}

// NewScanEventDTO converts e for publishing.
func NewScanEventDTO(e *events.ScanEvent) *ScanEventDTO {
	dto := &ScanEventDTO{
		Type:      e.Type,
		Timestamp: e.Timestamp,
		SessionID: e.SessionID,
		Message:   e.Message(),
		Scanner:   e.Scanner,
		Error:     e.Error,
		Address:   e.Address,
		Kind:      e.Kind,
		Name:      e.Name,
		IRKID:     e.IRKID,
	}
	if e.Type == events.NewEntity {
		level := e.Level
		quality := radio.QualityPercent(level)
		dto.Level = &level
		dto.SignalQuality = &quality
		dto.SignalLabel = radio.QualityLabel(level)
	}
	if e.Type == events.ScanStopped {
		dto.NewNetworks = metadataInt(e.Metadata, "new_networks")
		dto.TotalSightings = metadataInt(e.Metadata, "total_sightings")
	}
	return dto
}

func metadataInt(m map[string]any, key string) *int64 {
	switch v := m[key].(type) {
	case int64:
		return &v
	case int:
		n := int64(v)
		return &n
	default:
		return nil
	}
}
