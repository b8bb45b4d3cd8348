package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/inkfleet/inkfleet/internal/auth"
	"github.com/inkfleet/inkfleet/internal/database"
	"github.com/inkfleet/inkfleet/internal/imageprocessing"
	"github.com/inkfleet/inkfleet/internal/logging"
	"github.com/inkfleet/inkfleet/internal/rendering"
	"github.com/inkfleet/inkfleet/internal/screens"
	"github.com/inkfleet/inkfleet/internal/storage"
)

// Handler serves the operator-facing management API.
type Handler struct {
	pipeline *screens.Service
}

func NewHandler(pipeline *screens.Service) *Handler {
	return &Handler{pipeline: pipeline}
}

// CreateScreenHandler renders operator content into a new screen for a
// device. POST /api/screens
func (h *Handler) CreateScreenHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	var req struct {
		DeviceID    string `json:"device_id"`
		FriendlyID  string `json:"friendly_id"`
		ContentType string `json:"content_type" binding:"required"`
		Content     string `json:"content"`
		Filename    string `json:"filename"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErrorMessage(err)})
		return
	}

	device, ok := resolveDevice(c, req.DeviceID, req.FriendlyID)
	if !ok {
		return
	}

	screen, err := h.pipeline.PushScreenNamed(c.Request.Context(), device,
		rendering.ContentType(req.ContentType), req.Content, database.ScreenSourcePushed, req.Filename)
	if err != nil {
		respondPipelineError(c, device, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"screen":    screen,
		"image_url": h.pipeline.URLFor(screen),
	})
}

// ImportImageHandler accepts a base64 data URI, fits and dithers the
// image to the panel, and persists it as a screen.
// POST /api/screens/image
func (h *Handler) ImportImageHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	var req struct {
		DeviceID   string `json:"device_id"`
		FriendlyID string `json:"friendly_id"`
		Image      string `json:"image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErrorMessage(err)})
		return
	}

	device, ok := resolveDevice(c, req.DeviceID, req.FriendlyID)
	if !ok {
		return
	}

	imageData, err := decodeDataURI(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data"})
		return
	}

	screen, err := h.pipeline.ImportImage(c.Request.Context(), device, imageData)
	if err != nil {
		respondPipelineError(c, device, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"screen":    screen,
		"image_url": h.pipeline.URLFor(screen),
	})
}

// ListScreensHandler returns stored screens, newest first, optionally
// filtered by device. GET /api/screens
func (h *Handler) ListScreensHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	var deviceID *uuid.UUID
	if idStr := c.Query("device_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
			return
		}
		deviceID = &id
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	screenService := database.NewScreenService(database.GetDB())
	list, err := screenService.ListScreens(deviceID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch screens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"screens": list})
}

// GetScreenHandler returns a single screen row. GET /api/screens/:id
func (h *Handler) GetScreenHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	screenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid screen ID"})
		return
	}

	screenService := database.NewScreenService(database.GetDB())
	screen, err := screenService.GetScreenByID(screenID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Screen not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"screen":    screen,
		"image_url": h.pipeline.URLFor(screen),
	})
}

// DeleteScreenHandler removes a screen row, its playlist references,
// and its artifact. DELETE /api/screens/:id
func (h *Handler) DeleteScreenHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	screenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid screen ID"})
		return
	}

	screenService := database.NewScreenService(database.GetDB())
	screen, err := screenService.GetScreenByID(screenID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Screen not found"})
		return
	}

	if err := screenService.DeleteScreen(screenID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete screen"})
		return
	}
	if err := h.pipeline.DeleteArtifact(screen); err != nil {
		logging.WarnWithComponent(logging.ComponentScreens, "failed to remove artifact",
			"filename", screen.Filename, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// resolveDevice looks up the target device from either its UUID or its
// short pairing ID. Writes the error response itself on failure.
func resolveDevice(c *gin.Context, deviceIDStr, friendlyID string) (*database.Device, bool) {
	deviceService := database.NewDeviceService(database.GetDB())

	if deviceIDStr != "" {
		deviceID, err := uuid.Parse(deviceIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
			return nil, false
		}
		device, err := deviceService.GetDeviceByID(deviceID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
			return nil, false
		}
		return device, true
	}

	if friendlyID != "" {
		device, err := deviceService.GetDeviceByFriendlyID(strings.ToUpper(friendlyID))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
			return nil, false
		}
		return device, true
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "device_id or friendly_id is required"})
	return nil, false
}

// respondPipelineError maps pipeline failures to HTTP statuses.
func respondPipelineError(c *gin.Context, device *database.Device, err error) {
	switch {
	case errors.Is(err, rendering.ErrUnsupportedContentType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported content type"})
	case errors.Is(err, rendering.ErrRenderBackend):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Render backend failed"})
	case errors.Is(err, imageprocessing.ErrDimensionMismatch):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rendered image has wrong dimensions"})
	case errors.Is(err, storage.ErrStorage):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store screen"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create screen"})
	}
	logging.ErrorWithComponent(logging.ComponentScreens, "screen creation failed",
		"device_id", device.ID, "error", err)
}

// decodeDataURI extracts raw bytes from "data:<mime>;base64,<payload>".
// Bare base64 without the prefix is also accepted.
func decodeDataURI(s string) ([]byte, error) {
	if idx := strings.Index(s, ","); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}
