package deviceapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkfleet/inkfleet/internal/database"
	"github.com/inkfleet/inkfleet/internal/rendering"
	"github.com/inkfleet/inkfleet/internal/screens"
	"github.com/inkfleet/inkfleet/internal/storage"
)

type testServer struct {
	router   *gin.Engine
	pipeline *screens.Service
	devices  *database.DeviceService
	screens  *database.ScreenService
	lists    *database.PlaylistService
	device   *database.Device
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(database.GetAllModels()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	devices := database.NewDeviceService(db)
	screenRows := database.NewScreenService(db)
	lists := database.NewPlaylistService(db)
	store := storage.NewArtifactStore(filepath.Join(dir, "rendered"), "/static/rendered")
	pipeline := screens.NewService(rendering.NewRasterizer(), store, devices, screenRows, lists, screens.PriorityPushed)

	device, err := devices.ProvisionDevice("AA:BB:CC:DD:EE:FF", "1.5.2")
	if err != nil {
		t.Fatalf("failed to provision device: %v", err)
	}

	h := NewHandler(pipeline)
	router := gin.New()
	router.POST("/api/setup", h.SetupHandler)
	router.GET("/api/display", h.DisplayHandler)
	router.GET("/api/current_screen", h.CurrentScreenHandler)
	router.POST("/api/log", h.LogsHandler)

	return &testServer{
		router:   router,
		pipeline: pipeline,
		devices:  devices,
		screens:  screenRows,
		lists:    lists,
		device:   device,
	}
}

func (s *testServer) request(t *testing.T, method, path string, headers map[string]string, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
		}
	}
	return w, parsed
}

func (s *testServer) deviceHeaders() map[string]string {
	return map[string]string{
		"ID":           s.device.MacAddress,
		"Access-Token": s.device.APIKey,
	}
}

func (s *testServer) addPlaylistScreen(t *testing.T, content string) *database.Screen {
	t.Helper()
	screen, err := s.pipeline.PushScreen(context.Background(), s.device, rendering.ContentTypeText, content, database.ScreenSourcePlaylist)
	if err != nil {
		t.Fatalf("failed to create playlist screen: %v", err)
	}
	if _, err := s.lists.AddItem(s.device.ID, screen.ID); err != nil {
		t.Fatalf("failed to add playlist item: %v", err)
	}
	return screen
}

func TestSetupProvisionsNewDevice(t *testing.T) {
	srv := newTestServer(t)

	w, body := srv.request(t, http.MethodPost, "/api/setup",
		map[string]string{"ID": "11:22:33:44:55:66", "FW-Version": "1.5.2"}, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	apiKey, _ := body["api_key"].(string)
	friendlyID, _ := body["friendly_id"].(string)
	if apiKey == "" {
		t.Error("response missing api_key")
	}
	if friendlyID == "" {
		t.Error("response missing friendly_id")
	}
	imageURL, _ := body["image_url"].(string)
	if imageURL == "" {
		t.Error("response missing welcome image_url")
	}

	device, err := srv.devices.GetDeviceByMacAddress("11:22:33:44:55:66")
	if err != nil {
		t.Fatalf("provisioned device not in database: %v", err)
	}
	if device.CurrentScreenID == nil {
		t.Error("welcome screen not assigned as current")
	}
}

func TestSetupIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	headers := map[string]string{"ID": srv.device.MacAddress}

	w, body := srv.request(t, http.MethodPost, "/api/setup", headers, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got, _ := body["api_key"].(string); got != srv.device.APIKey {
		t.Errorf("api_key = %q, want existing key %q", got, srv.device.APIKey)
	}
	if msg, _ := body["message"].(string); msg != "Device already registered" {
		t.Errorf("message = %q", msg)
	}
}

func TestSetupRejectsMissingIDHeader(t *testing.T) {
	srv := newTestServer(t)

	w, _ := srv.request(t, http.MethodPost, "/api/setup", nil, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDisplayRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"no headers", nil},
		{"wrong token", map[string]string{"ID": srv.device.MacAddress, "Access-Token": "bogus"}},
		{"token for another mac", map[string]string{"ID": "FF:FF:FF:FF:FF:FF", "Access-Token": srv.device.APIKey}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := srv.request(t, http.MethodGet, "/api/display", tt.headers, "")
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestDisplayServesPlaylistAndAdvances(t *testing.T) {
	srv := newTestServer(t)
	first := srv.addPlaylistScreen(t, "screen a")
	srv.addPlaylistScreen(t, "screen b")

	w, body := srv.request(t, http.MethodGet, "/api/display", srv.deviceHeaders(), "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if status, _ := body["status"].(float64); status != 0 {
		t.Errorf("status field = %v, want 0", body["status"])
	}
	if got, _ := body["filename"].(string); got != first.Filename {
		t.Errorf("filename = %q, want %q", got, first.Filename)
	}
	if url, _ := body["image_url"].(string); !strings.HasSuffix(url, first.Filename) {
		t.Errorf("image_url = %q does not reference %q", url, first.Filename)
	}
	if _, ok := body["refresh_rate"].(float64); !ok {
		t.Error("response missing refresh_rate")
	}

	device, err := srv.devices.GetDeviceByID(srv.device.ID)
	if err != nil {
		t.Fatalf("failed to reload device: %v", err)
	}
	if device.PlaylistCursor != 1 {
		t.Errorf("cursor = %d, want 1 after one advancing poll", device.PlaylistCursor)
	}
}

func TestCurrentScreenDoesNotAdvanceCursor(t *testing.T) {
	srv := newTestServer(t)
	first := srv.addPlaylistScreen(t, "screen a")
	srv.addPlaylistScreen(t, "screen b")

	if w, _ := srv.request(t, http.MethodGet, "/api/display", srv.deviceHeaders(), ""); w.Code != http.StatusOK {
		t.Fatalf("advancing poll failed: %d", w.Code)
	}

	for i := 0; i < 3; i++ {
		w, body := srv.request(t, http.MethodGet, "/api/current_screen", srv.deviceHeaders(), "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if got, _ := body["filename"].(string); got != first.Filename {
			t.Errorf("poll %d: filename = %q, want %q", i, got, first.Filename)
		}
	}

	device, err := srv.devices.GetDeviceByID(srv.device.ID)
	if err != nil {
		t.Fatalf("failed to reload device: %v", err)
	}
	if device.PlaylistCursor != 1 {
		t.Errorf("cursor = %d, want 1 after read-only polls", device.PlaylistCursor)
	}
}

func TestCurrentScreenWithoutContentIs404(t *testing.T) {
	srv := newTestServer(t)

	w, _ := srv.request(t, http.MethodGet, "/api/current_screen", srv.deviceHeaders(), "")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDisplayRecordsTelemetryHeaders(t *testing.T) {
	srv := newTestServer(t)
	srv.addPlaylistScreen(t, "screen a")

	headers := srv.deviceHeaders()
	headers["Battery-Voltage"] = "3.85"
	headers["RSSI"] = "-62"
	headers["FW-Version"] = "1.6.0"
	headers["Refresh-Rate"] = "600"

	if w, _ := srv.request(t, http.MethodGet, "/api/display", headers, ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	device, err := srv.devices.GetDeviceByID(srv.device.ID)
	if err != nil {
		t.Fatalf("failed to reload device: %v", err)
	}
	if device.BatteryVoltage != 3.85 {
		t.Errorf("battery voltage = %v, want 3.85", device.BatteryVoltage)
	}
	if device.RSSI != -62 {
		t.Errorf("rssi = %d, want -62", device.RSSI)
	}
	if device.FirmwareVersion != "1.6.0" {
		t.Errorf("firmware = %q, want 1.6.0", device.FirmwareVersion)
	}
	if device.RefreshRate != 600 {
		t.Errorf("refresh rate = %d, want 600", device.RefreshRate)
	}
}

func TestLogsStoresPayload(t *testing.T) {
	srv := newTestServer(t)

	w, _ := srv.request(t, http.MethodPost, "/api/log", srv.deviceHeaders(),
		`{"level":"error","message":"wifi dropped","retries":3}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	telemetry := database.NewTelemetryService(database.GetDB())
	entries, err := telemetry.Recent(srv.device.ID, 10, 0)
	if err != nil {
		t.Fatalf("failed to load telemetry: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Level != "error" {
		t.Errorf("level = %q, want error", entries[0].Level)
	}
	if !strings.Contains(string(entries[0].Data), "wifi dropped") {
		t.Errorf("payload not stored verbatim: %s", entries[0].Data)
	}
}

func TestLogsRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	w, _ := srv.request(t, http.MethodPost, "/api/log", srv.deviceHeaders(), "not json")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
