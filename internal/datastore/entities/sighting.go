package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sighting is one accepted observation of a network. Rows are never updated.
type Sighting struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	NetworkID string    `gorm:"type:varchar(36);not null;index"`
	Address   string    `gorm:"type:varchar(64);not null;index"`
	Lat       float64   `gorm:"not null"`
	Lon       float64   `gorm:"not null"`
	Altitude  float64
	Accuracy  float64
	Level     int       `gorm:"not null"`
	Timestamp time.Time `gorm:"not null;index"`
	SessionID *string   `gorm:"type:varchar(36);index"`

	Network *Network `gorm:"foreignKey:NetworkID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (Sighting) TableName() string {
	return "sightings"
}

// BeforeCreate assigns a UUID when the caller did not.
func (s *Sighting) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
