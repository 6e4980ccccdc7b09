package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoutePoint is a position fix recorded while a session was active.
type RoutePoint struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	SessionID string    `gorm:"type:varchar(36);not null;index:idx_route_session_time,priority:1"`
	Lat       float64   `gorm:"not null"`
	Lon       float64   `gorm:"not null"`
	Altitude  float64
	Accuracy  float64
	Speed     *float64 // m/s
	Bearing   *float64 // degrees
	Timestamp time.Time `gorm:"not null;index:idx_route_session_time,priority:2"`
}

// TableName returns the table name for GORM.
func (RoutePoint) TableName() string {
	return "route_points"
}

// BeforeCreate assigns a UUID when the caller did not.
func (p *RoutePoint) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
