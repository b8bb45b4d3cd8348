package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/inkfleet/inkfleet/internal/auth"
	"github.com/inkfleet/inkfleet/internal/database"
)

// GetPlaylistHandler returns a device's playlist in display order.
// GET /api/devices/:id/playlist
func GetPlaylistHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
		return
	}

	playlistService := database.NewPlaylistService(database.GetDB())
	items, err := playlistService.GetItems(deviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch playlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddPlaylistItemHandler appends a screen to a device's playlist.
// POST /api/devices/:id/playlist
func AddPlaylistItemHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
		return
	}

	var req struct {
		ScreenID uuid.UUID `json:"screen_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErrorMessage(err)})
		return
	}

	db := database.GetDB()
	screenService := database.NewScreenService(db)
	if _, err := screenService.GetScreenByID(req.ScreenID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Screen not found"})
		return
	}

	playlistService := database.NewPlaylistService(db)
	item, err := playlistService.AddItem(deviceID, req.ScreenID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add playlist item"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// ReorderPlaylistHandler rewrites the order of a device's playlist.
// PUT /api/devices/:id/playlist/order
func ReorderPlaylistHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
		return
	}

	var req struct {
		ItemIDs []uuid.UUID `json:"item_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErrorMessage(err)})
		return
	}

	playlistService := database.NewPlaylistService(database.GetDB())
	if err := playlistService.Reorder(deviceID, req.ItemIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder playlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeletePlaylistItemHandler removes one playlist entry.
// DELETE /api/playlist-items/:id
func DeletePlaylistItemHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid playlist item ID"})
		return
	}

	playlistService := database.NewPlaylistService(database.GetDB())
	if err := playlistService.DeleteItem(itemID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete playlist item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
