package database

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceService handles device-related database operations
type DeviceService struct {
	db *gorm.DB
}

// NewDeviceService creates a new device service
func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{db: db}
}

// ProvisionDevice creates a new device record for a MAC address, generating
// an API key and a short friendly ID. Called from the setup endpoint on
// first contact.
func (ds *DeviceService) ProvisionDevice(macAddress, firmwareVersion string) (*Device, error) {
	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	friendlyID, err := ds.generateFriendlyID()
	if err != nil {
		return nil, err
	}

	device := &Device{
		MacAddress:      macAddress,
		FriendlyID:      friendlyID,
		APIKey:          apiKey,
		ModelName:       DefaultModelName,
		FirmwareVersion: firmwareVersion,
		RefreshRate:     RefreshRate30Min,
		IsActive:        true,
	}

	if err := ds.db.Create(device).Error; err != nil {
		return nil, err
	}

	return device, nil
}

// GetDeviceByID returns a device by its UUID
func (ds *DeviceService) GetDeviceByID(deviceID uuid.UUID) (*Device, error) {
	var device Device
	err := ds.db.Preload("DeviceModel").Preload("CurrentScreen").Where("id = ?", deviceID).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// GetDeviceByMacAddress returns a device by its MAC address
func (ds *DeviceService) GetDeviceByMacAddress(macAddress string) (*Device, error) {
	var device Device
	err := ds.db.Preload("CurrentScreen").Where("mac_address = ?", macAddress).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// GetDeviceByFriendlyID returns a device by its friendly ID
func (ds *DeviceService) GetDeviceByFriendlyID(friendlyID string) (*Device, error) {
	var device Device
	err := ds.db.Where("friendly_id = ?", friendlyID).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// GetDeviceByAPIKey returns a device by its API key
func (ds *DeviceService) GetDeviceByAPIKey(apiKey string) (*Device, error) {
	var device Device
	err := ds.db.Preload("CurrentScreen").Where("api_key = ?", apiKey).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// GetAllDevices returns all devices
func (ds *DeviceService) GetAllDevices() ([]Device, error) {
	var devices []Device
	err := ds.db.Preload("DeviceModel").Order("created_at DESC").Find(&devices).Error
	return devices, err
}

// UpdateDevice saves a modified device record
func (ds *DeviceService) UpdateDevice(device *Device) error {
	return ds.db.Save(device).Error
}

// UpdateDeviceStatus records telemetry reported by a device on a poll:
// firmware version, battery voltage, signal strength and last-seen time.
func (ds *DeviceService) UpdateDeviceStatus(deviceID uuid.UUID, firmwareVersion string, batteryVoltage float64, rssi int) error {
	updates := map[string]interface{}{
		"last_seen": time.Now(),
	}
	if firmwareVersion != "" {
		updates["firmware_version"] = firmwareVersion
	}
	if batteryVoltage > 0 {
		updates["battery_voltage"] = batteryVoltage
	}
	if rssi != 0 {
		updates["rssi"] = rssi
	}
	return ds.db.Model(&Device{}).Where("id = ?", deviceID).Updates(updates).Error
}

// UpdateRefreshRate sets the advisory refresh rate for a device. Pure state
// update; no effect on image content.
func (ds *DeviceService) UpdateRefreshRate(deviceID uuid.UUID, refreshRate int) error {
	return ds.db.Model(&Device{}).Where("id = ?", deviceID).Update("refresh_rate", refreshRate).Error
}

// SetCurrentScreen points the device's current-screen reference at a fully
// persisted artifact. Single-column assignment; last writer wins.
func (ds *DeviceService) SetCurrentScreen(deviceID, screenID uuid.UUID) error {
	return ds.db.Model(&Device{}).Where("id = ?", deviceID).Update("current_screen_id", screenID).Error
}

// AdvancePlaylistCursor stores the index of the next playlist item to serve
// and stamps the advancement time.
func (ds *DeviceService) AdvancePlaylistCursor(deviceID uuid.UUID, cursor int) error {
	return ds.db.Model(&Device{}).Where("id = ?", deviceID).Updates(map[string]interface{}{
		"playlist_cursor": cursor,
		"last_advance_at": time.Now(),
	}).Error
}

// DeleteDevice removes a device and its playlist items
func (ds *DeviceService) DeleteDevice(deviceID uuid.UUID) error {
	return ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", deviceID).Delete(&PlaylistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("device_id = ?", deviceID).Delete(&TelemetryLog{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", deviceID).Delete(&Device{}).Error
	})
}

func generateAPIKey() (string, error) {
	bytes := make([]byte, 32) // 64 character hex string
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// generateFriendlyID generates a unique 6-character friendly ID for a device
func (ds *DeviceService) generateFriendlyID() (string, error) {
	for attempts := 0; attempts < 100; attempts++ {
		bytes := make([]byte, 3)
		if _, err := rand.Read(bytes); err != nil {
			return "", err
		}

		friendlyID := strings.ToUpper(hex.EncodeToString(bytes)[:6])

		var existing Device
		err := ds.db.Where("friendly_id = ?", friendlyID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return friendlyID, nil
		}
		if err != nil {
			return "", err
		}
		// ID already exists, try again
	}

	return "", fmt.Errorf("failed to generate unique friendly ID after 100 attempts")
}
