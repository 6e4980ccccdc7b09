package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is one scan run. EndTime is nil while the run is active.
type Session struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)"`
	StartTime      time.Time  `gorm:"not null;index"`
	EndTime        *time.Time
	TotalNetworks  int64
	NewNetworks    int64
	TotalSightings int64
	Distance       float64 // meters travelled along the recorded route
	Notes          string  `gorm:"type:text"`
}

// TableName returns the table name for GORM.
func (Session) TableName() string {
	return "sessions"
}

// BeforeCreate assigns a UUID when the caller did not.
func (s *Session) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Active reports whether the session has not been closed.
func (s *Session) Active() bool {
	return s.EndTime == nil
}
