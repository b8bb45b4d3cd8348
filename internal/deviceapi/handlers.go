package deviceapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/inkfleet/inkfleet/internal/database"
	"github.com/inkfleet/inkfleet/internal/logging"
	"github.com/inkfleet/inkfleet/internal/screens"
)

// imageURLTimeout is how many seconds the device should wait for the
// artifact download before giving up.
const imageURLTimeout = 30

// Handler serves the device-facing polling protocol.
type Handler struct {
	pipeline *screens.Service
}

func NewHandler(pipeline *screens.Service) *Handler {
	return &Handler{pipeline: pipeline}
}

// SetupHandler handles device provisioning requests.
// POST /api/setup with header 'ID': 'MAC_ADDRESS'
func (h *Handler) SetupHandler(c *gin.Context) {
	macAddress := c.GetHeader("ID")
	if macAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing device ID header"})
		return
	}

	db := database.GetDB()
	deviceService := database.NewDeviceService(db)

	// Re-running setup returns the existing credentials unchanged.
	if device, err := deviceService.GetDeviceByMacAddress(macAddress); err == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":      http.StatusOK,
			"api_key":     device.APIKey,
			"friendly_id": device.FriendlyID,
			"image_url":   h.currentImageURL(device),
			"message":     "Device already registered",
		})
		return
	}

	device, err := deviceService.ProvisionDevice(macAddress, c.GetHeader("FW-Version"))
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentAPISetup, "failed to provision device",
			"mac_address", macAddress, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device"})
		return
	}

	welcome, err := h.pipeline.GenerateWelcomeScreen(c.Request.Context(), device)
	if err != nil {
		// Provisioning succeeded; the device can still poll for content.
		logging.WarnWithComponent(logging.ComponentAPISetup, "failed to render welcome screen",
			"device_id", device.ID, "error", err)
	} else if err := deviceService.SetCurrentScreen(device.ID, welcome.ID); err != nil {
		logging.WarnWithComponent(logging.ComponentAPISetup, "failed to assign welcome screen",
			"device_id", device.ID, "screen_id", welcome.ID, "error", err)
	}

	logging.InfoWithComponent(logging.ComponentAPISetup, "device provisioned",
		"mac_address", macAddress, "friendly_id", device.FriendlyID)

	response := gin.H{
		"status":      http.StatusOK,
		"api_key":     device.APIKey,
		"friendly_id": device.FriendlyID,
		"message":     "Welcome to InkFleet",
	}
	if welcome != nil {
		response["image_url"] = h.pipeline.URLFor(welcome)
		response["filename"] = welcome.Filename
	}
	c.JSON(http.StatusOK, response)
}

// DisplayHandler handles the advancing poll. The device reports its
// status in headers and receives the next screen to show. Each call
// moves the device's playlist cursor or consumes a pushed screen.
// GET /api/display
func (h *Handler) DisplayHandler(c *gin.Context) {
	device, ok := h.authenticate(c)
	if !ok {
		return
	}

	db := database.GetDB()
	deviceService := database.NewDeviceService(db)

	h.recordTelemetry(c, device, deviceService)

	screen, err := h.pipeline.NextScreen(c.Request.Context(), device)
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentDisplay, "failed to resolve next screen",
			"device_id", device.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare screen"})
		return
	}

	c.JSON(http.StatusOK, h.displayResponse(device, screen))
}

// CurrentScreenHandler returns what the device is presently assigned
// without advancing any poll state. Status dashboards and device
// previews use this endpoint.
// GET /api/current_screen
func (h *Handler) CurrentScreenHandler(c *gin.Context) {
	device, ok := h.authenticate(c)
	if !ok {
		return
	}

	screen, err := h.pipeline.CurrentScreen(device)
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentDisplay, "failed to load current screen",
			"device_id", device.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load screen"})
		return
	}
	if screen == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No screen assigned"})
		return
	}

	c.JSON(http.StatusOK, h.displayResponse(device, screen))
}

// LogsHandler accepts a telemetry payload from the device and stores it
// verbatim.
// POST /api/log
func (h *Handler) LogsHandler(c *gin.Context) {
	device, ok := h.authenticate(c)
	if !ok {
		return
	}

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log data"})
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log data"})
		return
	}

	level := "info"
	if l, ok := payload["level"].(string); ok && l != "" {
		level = l
	}

	telemetryService := database.NewTelemetryService(database.GetDB())
	if _, err := telemetryService.Append(device.ID, datatypes.JSON(raw), level); err != nil {
		logging.ErrorWithComponent(logging.ComponentLogs, "failed to store device log",
			"device_id", device.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// authenticate resolves the calling device from the Access-Token header
// and verifies the ID header matches. Writes the error response itself
// when authentication fails.
func (h *Handler) authenticate(c *gin.Context) (*database.Device, bool) {
	macAddress := c.GetHeader("ID")
	accessToken := c.GetHeader("Access-Token")
	if macAddress == "" || accessToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing device ID or access token"})
		return nil, false
	}

	deviceService := database.NewDeviceService(database.GetDB())
	device, err := deviceService.GetDeviceByAPIKey(accessToken)
	if err != nil || device.MacAddress != macAddress {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid device credentials"})
		return nil, false
	}
	return device, true
}

// recordTelemetry parses the status headers of an advancing poll and
// persists them on the device row. Malformed header values are ignored
// rather than failing the poll.
func (h *Handler) recordTelemetry(c *gin.Context, device *database.Device, deviceService *database.DeviceService) {
	firmwareVersion := c.GetHeader("FW-Version")

	var batteryVoltage float64
	if bv, err := strconv.ParseFloat(c.GetHeader("Battery-Voltage"), 64); err == nil {
		batteryVoltage = bv
	}

	var rssi int
	if r, err := strconv.Atoi(c.GetHeader("RSSI")); err == nil {
		rssi = r
	}

	if err := deviceService.UpdateDeviceStatus(device.ID, firmwareVersion, batteryVoltage, rssi); err != nil {
		logging.WarnWithComponent(logging.ComponentDisplay, "failed to record device status",
			"device_id", device.ID, "error", err)
	}
	if firmwareVersion != "" {
		device.FirmwareVersion = firmwareVersion
	}

	if rr, err := strconv.Atoi(c.GetHeader("Refresh-Rate")); err == nil && rr > 0 && rr != device.RefreshRate {
		if err := deviceService.UpdateRefreshRate(device.ID, rr); err == nil {
			device.RefreshRate = rr
		}
	}
}

// displayResponse builds the protocol response the firmware expects.
func (h *Handler) displayResponse(device *database.Device, screen *database.Screen) gin.H {
	return gin.H{
		"status":            0,
		"image_url":         h.pipeline.URLFor(screen),
		"filename":          screen.Filename,
		"refresh_rate":      device.RefreshRate,
		"image_url_timeout": imageURLTimeout,
		"update_firmware":   false,
		"firmware_url":      nil,
		"reset_firmware":    false,
		"special_function":  "sleep",
	}
}

func (h *Handler) currentImageURL(device *database.Device) string {
	if device.CurrentScreen != nil {
		return h.pipeline.URLFor(device.CurrentScreen)
	}
	return ""
}
