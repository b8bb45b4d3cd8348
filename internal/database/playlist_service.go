package database

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlaylistService manages per-device playlists: ordered, cyclable lists of
// screens a device advances through on successive polls.
type PlaylistService struct {
	db *gorm.DB
}

// NewPlaylistService creates a new playlist service
func NewPlaylistService(db *gorm.DB) *PlaylistService {
	return &PlaylistService{db: db}
}

// AddItem appends a screen to the end of a device's playlist
func (ps *PlaylistService) AddItem(deviceID, screenID uuid.UUID) (*PlaylistItem, error) {
	var maxOrder int
	err := ps.db.Model(&PlaylistItem{}).
		Where("device_id = ?", deviceID).
		Select("COALESCE(MAX(order_index), -1)").
		Scan(&maxOrder).Error
	if err != nil {
		return nil, err
	}

	item := &PlaylistItem{
		DeviceID:   deviceID,
		ScreenID:   screenID,
		OrderIndex: maxOrder + 1,
		IsVisible:  true,
	}
	if err := ps.db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// GetItems returns a device's visible playlist items in display order
func (ps *PlaylistService) GetItems(deviceID uuid.UUID) ([]PlaylistItem, error) {
	var items []PlaylistItem
	err := ps.db.Preload("Screen").
		Where("device_id = ? AND is_visible = ?", deviceID, true).
		Order("order_index ASC").
		Find(&items).Error
	return items, err
}

// GetItemByID returns a single playlist item
func (ps *PlaylistService) GetItemByID(itemID uuid.UUID) (*PlaylistItem, error) {
	var item PlaylistItem
	err := ps.db.Preload("Screen").Where("id = ?", itemID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Reorder rewrites the order of a device's playlist to match orderedItemIDs
func (ps *PlaylistService) Reorder(deviceID uuid.UUID, orderedItemIDs []uuid.UUID) error {
	return ps.db.Transaction(func(tx *gorm.DB) error {
		for i, itemID := range orderedItemIDs {
			result := tx.Model(&PlaylistItem{}).
				Where("id = ? AND device_id = ?", itemID, deviceID).
				Update("order_index", i)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("playlist item %s not found for device", itemID)
			}
		}
		return nil
	})
}

// DeleteItem removes an item and compacts the remaining order indexes
func (ps *PlaylistService) DeleteItem(itemID uuid.UUID) error {
	return ps.db.Transaction(func(tx *gorm.DB) error {
		var item PlaylistItem
		if err := tx.Where("id = ?", itemID).First(&item).Error; err != nil {
			return err
		}
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		return compactOrderInTx(tx, item.DeviceID)
	})
}

func compactOrderInTx(tx *gorm.DB, deviceID uuid.UUID) error {
	var items []PlaylistItem
	if err := tx.Where("device_id = ?", deviceID).Order("order_index ASC").Find(&items).Error; err != nil {
		return err
	}
	for i, item := range items {
		if item.OrderIndex == i {
			continue
		}
		if err := tx.Model(&PlaylistItem{}).Where("id = ?", item.ID).Update("order_index", i).Error; err != nil {
			return err
		}
	}
	return nil
}
