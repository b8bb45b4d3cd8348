package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TelemetryService is an append-only sink for device log reports. Payloads
// are stored verbatim; no derived logic lives here.
type TelemetryService struct {
	db *gorm.DB
}

// NewTelemetryService creates a new telemetry service
func NewTelemetryService(db *gorm.DB) *TelemetryService {
	return &TelemetryService{db: db}
}

// Append stores one telemetry report for a device
func (ts *TelemetryService) Append(deviceID uuid.UUID, data datatypes.JSON, level string) (*TelemetryLog, error) {
	if level == "" {
		level = "info"
	}
	entry := &TelemetryLog{
		DeviceID: deviceID,
		Data:     data,
		Level:    level,
	}
	if err := ts.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// Recent returns the newest telemetry entries for a device
func (ts *TelemetryService) Recent(deviceID uuid.UUID, limit, offset int) ([]TelemetryLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []TelemetryLog
	err := ts.db.Where("device_id = ?", deviceID).
		Order("timestamp DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	return entries, err
}

// Count returns the number of telemetry entries stored for a device
func (ts *TelemetryService) Count(deviceID uuid.UUID) (int64, error) {
	var count int64
	err := ts.db.Model(&TelemetryLog{}).Where("device_id = ?", deviceID).Count(&count).Error
	return count, err
}

// CleanupOlderThan deletes telemetry entries past the retention window and
// returns the number removed.
func (ts *TelemetryService) CleanupOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := ts.db.Where("timestamp < ?", cutoff).Delete(&TelemetryLog{})
	return result.RowsAffected, result.Error
}
