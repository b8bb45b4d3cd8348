package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/inkfleet/inkfleet/internal/auth"
	"github.com/inkfleet/inkfleet/internal/database"
	"github.com/inkfleet/inkfleet/internal/imageprocessing"
	"github.com/inkfleet/inkfleet/internal/utils"
)

// GetDevicesHandler returns all provisioned devices.
func GetDevicesHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	deviceService := database.NewDeviceService(database.GetDB())
	devices, err := deviceService.GetAllDevices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch devices"})
		return
	}

	enriched := make([]gin.H, 0, len(devices))
	for i := range devices {
		d := &devices[i]
		enriched = append(enriched, gin.H{
			"device":          d,
			"battery_percent": utils.BatteryPercentage(d.BatteryVoltage),
			"signal_quality":  utils.SignalQuality(d.RSSI),
		})
	}

	c.JSON(http.StatusOK, gin.H{"devices": enriched})
}

// GetDeviceHandler returns a single device.
func GetDeviceHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
		return
	}

	deviceService := database.NewDeviceService(database.GetDB())
	device, err := deviceService.GetDeviceByID(deviceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device":          device,
		"battery_percent": utils.BatteryPercentage(device.BatteryVoltage),
		"signal_quality":  utils.SignalQuality(device.RSSI),
	})
}

// UpdateDeviceHandler updates mutable device fields.
// PATCH /api/devices/:id
func UpdateDeviceHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
		return
	}

	var req struct {
		Name        *string `json:"name"`
		ModelName   *string `json:"model_name"`
		RefreshRate *int    `json:"refresh_rate" binding:"omitempty,min=60,max=86400"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErrorMessage(err)})
		return
	}

	deviceService := database.NewDeviceService(database.GetDB())
	device, err := deviceService.GetDeviceByID(deviceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	if req.Name != nil {
		device.Name = *req.Name
	}
	if req.ModelName != nil {
		device.ModelName = *req.ModelName
	}
	if req.RefreshRate != nil {
		device.RefreshRate = *req.RefreshRate
	}
	if req.IsActive != nil {
		device.IsActive = *req.IsActive
	}

	if err := deviceService.UpdateDevice(device); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update device"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"device": device})
}

// DeleteDeviceHandler removes a device and its dependent rows.
func DeleteDeviceHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
		return
	}

	deviceService := database.NewDeviceService(database.GetDB())
	if err := deviceService.DeleteDevice(deviceID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete device"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetDeviceImageHandler streams the bytes of the device's current
// artifact with the encoding's content type.
// GET /api/devices/:id/image
func (h *Handler) GetDeviceImageHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
		return
	}

	deviceService := database.NewDeviceService(database.GetDB())
	device, err := deviceService.GetDeviceByID(deviceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	screen, err := h.pipeline.CurrentScreen(device)
	if err != nil || screen == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device has no current screen"})
		return
	}

	data, err := h.pipeline.ArtifactBytes(screen)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read artifact"})
		return
	}

	c.Data(http.StatusOK, imageprocessing.Format(screen.Format).ContentType(), data)
}

// GetRefreshRatesHandler returns the preset polling intervals the UI
// offers. GET /api/refresh-rates
func GetRefreshRatesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"refresh_rates": database.GetRefreshRateOptions()})
}

// GetDeviceModelsHandler returns the hardware catalog.
// GET /api/device-models
func GetDeviceModelsHandler(c *gin.Context) {
	if _, ok := auth.RequireUser(c); !ok {
		return
	}

	var models []database.DeviceModel
	if err := database.GetDB().Order("model_name ASC").Find(&models).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch device models"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"models": models})
}
