package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Kind identifies the radio technology of an emitter.
type Kind string

const (
	KindWifi      Kind = "WIFI"
	KindBluetooth Kind = "BLUETOOTH"
	KindBLE       Kind = "BLE"
	KindCellular  Kind = "CELLULAR"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindWifi, KindBluetooth, KindBLE, KindCellular:
		return true
	default:
		return false
	}
}

// DefaultBestLevel is the best-signal value of a network that has no sighting yet.
const DefaultBestLevel = -100

// Network is the deduplicated record of one physical emitter.
type Network struct {
	ID      string `gorm:"primaryKey;type:varchar(36)"`
	Address string `gorm:"type:varchar(64);not null;uniqueIndex"` // normalized upper-case colon form
	Name    string `gorm:"type:varchar(255);index"`
	Kind    Kind   `gorm:"type:varchar(16);not null;index"`

	// Wi-Fi
	Frequency    int    // MHz
	Channel      int
	Capabilities string `gorm:"type:varchar(255)"`
	Security     string `gorm:"type:varchar(32)"`

	// Bluetooth / BLE
	BluetoothType    string  `gorm:"type:varchar(16)"`
	DeviceClass      int
	ServiceUUIDs     string  `gorm:"type:text"`
	ManufacturerData string  `gorm:"type:text"`
	TxPower          int
	IsConnectable    bool
	IsRPA            bool
	ResolvedIRKID    *string `gorm:"type:varchar(36);index"`

	// Cellular
	CellType     string `gorm:"type:varchar(16)"`
	MCC          int
	MNC          int
	LAC          int
	CID          int64
	OperatorName string `gorm:"type:varchar(128)"`

	// Observation summary
	BestLevel     int       `gorm:"not null;index"`
	BestLat       float64
	BestLon       float64
	BestSeen      *time.Time // when BestLevel was first reached
	LastLat       float64
	LastLon       float64
	FirstSeen     time.Time `gorm:"not null"`
	LastSeen      time.Time `gorm:"not null;index"`
	TimesObserved int64     `gorm:"not null"`
	Manufacturer  string    `gorm:"type:varchar(128)"`
}

// TableName returns the table name for GORM.
func (Network) TableName() string {
	return "networks"
}

// BeforeCreate assigns a UUID when the caller did not.
func (n *Network) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// HasLocation reports whether the best-signal position is set.
func (n *Network) HasLocation() bool {
	return n.BestLat != 0 || n.BestLon != 0
}
