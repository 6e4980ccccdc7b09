package events

import (
	"fmt"
	"time"
)

// ScanEventType identifies what happened in the scanner.
type ScanEventType string

const (
	ScanStarted    ScanEventType = "scan_started"
	ScanStopped    ScanEventType = "scan_stopped"
	NewEntity      ScanEventType = "new_entity"
	ScannerFailed  ScanEventType = "scanner_failed"
	WriteFailed    ScanEventType = "write_failed"
	IRKResolved    ScanEventType = "irk_resolved"
	PositionFailed ScanEventType = "position_failed"
)

// ScanEvent is one scanner lifecycle or discovery event. Only the fields
// relevant to Type are set.
type ScanEvent struct {
	Type      ScanEventType  `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id,omitempty"`
	Scanner   string         `json:"scanner,omitempty"` // wifi, ble, classic or position
	Address   string         `json:"address,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Name      string         `json:"name,omitempty"`
	Level     int            `json:"level,omitempty"`
	IRKID     string         `json:"irk_id,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Message returns a one-line human readable description of the event.
func (e *ScanEvent) Message() string {
	switch e.Type {
	case ScanStarted:
		return fmt.Sprintf("Scan started (session %s)", e.SessionID)
	case ScanStopped:
		if n, ok := e.Metadata["new_networks"]; ok {
			return fmt.Sprintf("Scan stopped (session %s, %v new)", e.SessionID, n)
		}
		return fmt.Sprintf("Scan stopped (session %s)", e.SessionID)
	case NewEntity:
		name := e.Name
		if name == "" {
			name = e.Address
		}
		return fmt.Sprintf("New %s: %s at %d dBm", e.Kind, name, e.Level)
	case ScannerFailed:
		return fmt.Sprintf("%s scanner disabled: %s", e.Scanner, e.Error)
	case PositionFailed:
		return fmt.Sprintf("Position source failed: %s", e.Error)
	case WriteFailed:
		return fmt.Sprintf("Failed to store sighting of %s: %s", e.Address, e.Error)
	case IRKResolved:
		return fmt.Sprintf("Address %s resolved with key %s", e.Address, e.IRKID)
	default:
		return string(e.Type)
	}
}

// IsFailure reports whether the event describes a failure.
func (e *ScanEvent) IsFailure() bool {
	switch e.Type {
	case ScannerFailed, WriteFailed, PositionFailed:
		return true
	default:
		return false
	}
}
