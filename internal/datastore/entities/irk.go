package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IRK is a stored identity resolving key.
type IRK struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)"`
	Key           string    `gorm:"type:char(32);not null;uniqueIndex"` // 32 lower-case hex chars
	Name          string    `gorm:"type:varchar(255)"`
	DeviceType    string    `gorm:"type:varchar(64)"`
	AddedAt       time.Time `gorm:"not null;index"`
	TimesResolved int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM.
func (IRK) TableName() string {
	return "irks"
}

// BeforeCreate assigns a UUID when the caller did not.
func (k *IRK) BeforeCreate(_ *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}
