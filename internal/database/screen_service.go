package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScreenService handles persisted artifact records. A row is created only
// after its file is fully on disk; rows change afterwards only when a
// caller re-pushes content under the same filename.
type ScreenService struct {
	db *gorm.DB
}

// NewScreenService creates a new screen service
func NewScreenService(db *gorm.DB) *ScreenService {
	return &ScreenService{db: db}
}

// CreateScreen records a fully persisted artifact
func (ss *ScreenService) CreateScreen(screen *Screen) error {
	return ss.db.Create(screen).Error
}

// UpdateScreen saves changed fields on an existing screen row
func (ss *ScreenService) UpdateScreen(screen *Screen) error {
	return ss.db.Save(screen).Error
}

// GetScreenByID returns a screen by its UUID
func (ss *ScreenService) GetScreenByID(screenID uuid.UUID) (*Screen, error) {
	var screen Screen
	err := ss.db.Where("id = ?", screenID).First(&screen).Error
	if err != nil {
		return nil, err
	}
	return &screen, nil
}

// GetScreenByFilename returns a screen by its filename
func (ss *ScreenService) GetScreenByFilename(filename string) (*Screen, error) {
	var screen Screen
	err := ss.db.Where("filename = ?", filename).First(&screen).Error
	if err != nil {
		return nil, err
	}
	return &screen, nil
}

// GetLatestPushedScreen returns the most recent operator-pushed artifact for
// a device, or gorm.ErrRecordNotFound if none exists.
func (ss *ScreenService) GetLatestPushedScreen(deviceID uuid.UUID) (*Screen, error) {
	var screen Screen
	err := ss.db.Where("device_id = ? AND source = ?", deviceID, ScreenSourcePushed).
		Order("created_at DESC").First(&screen).Error
	if err != nil {
		return nil, err
	}
	return &screen, nil
}

// ListScreens returns screens newest-first, optionally filtered by device
func (ss *ScreenService) ListScreens(deviceID *uuid.UUID, limit int) ([]Screen, error) {
	q := ss.db.Order("created_at DESC")
	if deviceID != nil {
		q = q.Where("device_id = ?", deviceID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var screens []Screen
	err := q.Find(&screens).Error
	return screens, err
}

// DeleteScreen removes a screen record. Playlist items referencing it are
// removed in the same transaction.
func (ss *ScreenService) DeleteScreen(screenID uuid.UUID) error {
	return ss.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("screen_id = ?", screenID).Delete(&PlaylistItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", screenID).Delete(&Screen{}).Error
	})
}
