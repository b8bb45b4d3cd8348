package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Screen format identifiers, chosen per device firmware capability.
const (
	ScreenFormatPNG = "png1bit"
	ScreenFormatBMP = "bmp3"
)

// Screen source identifiers.
const (
	ScreenSourcePushed   = "pushed"
	ScreenSourcePlaylist = "playlist"
	ScreenSourceSystem   = "system"
)

// User represents an operator account.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"` // bcrypt hash, never serialized
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// BeforeCreate sets UUID if not already set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Device represents a provisioned e-ink display device.
type Device struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	MacAddress      string     `gorm:"size:255;not null;uniqueIndex" json:"mac_address"`
	FriendlyID      string     `gorm:"size:10;not null;uniqueIndex" json:"friendly_id"` // short ID like "917F0B"
	Name            string     `gorm:"size:255" json:"name,omitempty"`
	ModelName       string     `gorm:"size:100;index" json:"model_name,omitempty"`
	APIKey          string     `gorm:"size:255;not null;index" json:"api_key"`
	FirmwareVersion string     `gorm:"size:50" json:"firmware_version,omitempty"`
	BatteryVoltage  float64    `json:"battery_voltage,omitempty"`
	RSSI            int        `json:"rssi,omitempty"`
	RefreshRate     int        `gorm:"default:1800" json:"refresh_rate"` // seconds, advisory
	LastSeen        *time.Time `json:"last_seen,omitempty"`

	// Poll protocol state. CurrentScreenID is the artifact the device is
	// showing (or about to show); PlaylistCursor is the index of the next
	// playlist item an advancing poll will serve.
	CurrentScreenID *uuid.UUID `gorm:"type:uuid" json:"current_screen_id,omitempty"`
	PlaylistCursor  int        `gorm:"default:0" json:"playlist_cursor"`
	LastAdvanceAt   *time.Time `json:"last_advance_at,omitempty"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	CurrentScreen *Screen      `gorm:"foreignKey:CurrentScreenID" json:"current_screen,omitempty"`
	DeviceModel   *DeviceModel `gorm:"references:ModelName;foreignKey:ModelName" json:"device_model,omitempty"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Screen represents one rendered, encoded artifact on disk. Rows only
// change when content is re-pushed under the same filename.
type Screen struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Filename    string     `gorm:"size:255;not null;uniqueIndex" json:"filename"`
	Format      string     `gorm:"size:20;not null" json:"format"` // png1bit or bmp3
	ContentType string     `gorm:"size:20;not null" json:"content_type"`
	Source      string     `gorm:"size:20;not null;default:'pushed'" json:"source"`
	FilePath    string     `gorm:"size:1000;not null" json:"file_path"`
	SizeBytes   int64      `json:"size_bytes"`
	DeviceID    *uuid.UUID `gorm:"type:uuid;index" json:"device_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// Association. Skip constraint creation to avoid a circular reference
	// with Device.CurrentScreenID.
	Device *Device `gorm:"-:migration" json:"-"`
}

func (s *Screen) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// PlaylistItem is one entry in a device's ordered, cyclable playlist.
type PlaylistItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID   uuid.UUID `gorm:"type:uuid;not null;index" json:"device_id"`
	ScreenID   uuid.UUID `gorm:"type:uuid;not null;index" json:"screen_id"`
	OrderIndex int       `gorm:"not null" json:"order_index"`
	IsVisible  bool      `gorm:"default:true" json:"is_visible"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Associations
	Device Device  `gorm:"foreignKey:DeviceID" json:"-"`
	Screen *Screen `gorm:"foreignKey:ScreenID" json:"screen"`
}

func (pi *PlaylistItem) BeforeCreate(tx *gorm.DB) error {
	if pi.ID == uuid.Nil {
		pi.ID = uuid.New()
	}
	return nil
}

// TelemetryLog represents one telemetry report from a device, stored as-is.
type TelemetryLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"device_id"`
	Data      datatypes.JSON `gorm:"not null" json:"data"`
	Level     string         `gorm:"size:20;default:'info'" json:"level"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	CreatedAt time.Time      `json:"created_at"`

	// Association
	Device Device `gorm:"foreignKey:DeviceID" json:"-"`
}

func (tl *TelemetryLog) BeforeCreate(tx *gorm.DB) error {
	if tl.ID == uuid.Nil {
		tl.ID = uuid.New()
	}
	if tl.Timestamp.IsZero() {
		tl.Timestamp = time.Now()
	}
	return nil
}

// DeviceModel describes a device hardware variant and its panel geometry.
type DeviceModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModelName    string    `gorm:"size:100;not null;uniqueIndex" json:"model_name"`
	DisplayName  string    `gorm:"size:200;not null" json:"display_name"`
	ScreenWidth  int       `gorm:"not null" json:"screen_width"`
	ScreenHeight int       `gorm:"not null" json:"screen_height"`
	BitDepth     int       `gorm:"default:1" json:"bit_depth"`
	MinFirmware  string    `gorm:"size:50" json:"min_firmware,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (d *DeviceModel) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// GetAllModels returns all models for auto-migration
func GetAllModels() []interface{} {
	return []interface{}{
		&User{},
		&Device{},
		&Screen{},
		&PlaylistItem{},
		&TelemetryLog{},
		&DeviceModel{},
	}
}
