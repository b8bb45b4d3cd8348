package screens

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkfleet/inkfleet/internal/database"
	"github.com/inkfleet/inkfleet/internal/rendering"
	"github.com/inkfleet/inkfleet/internal/storage"
)

type testEnv struct {
	svc     *Service
	devices *database.DeviceService
	screens *database.ScreenService
	lists   *database.PlaylistService
	store   *storage.ArtifactStore
	device  *database.Device
}

func newTestEnv(t *testing.T, priority string) *testEnv {
	t.Helper()

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

	devices := database.NewDeviceService(db)
	screens := database.NewScreenService(db)
	lists := database.NewPlaylistService(db)
	store := storage.NewArtifactStore(filepath.Join(dir, "rendered"), "/static/rendered")

	svc := NewService(rendering.NewRasterizer(), store, devices, screens, lists, priority)

	device, err := devices.ProvisionDevice("AA:BB:CC:DD:EE:FF", "1.5.2")
	if err != nil {
		t.Fatalf("failed to provision device: %v", err)
	}

	return &testEnv{svc: svc, devices: devices, screens: screens, lists: lists, store: store, device: device}
}

// reload fetches the device row fresh, the way a poll handler would.
func (e *testEnv) reload(t *testing.T) *database.Device {
	t.Helper()
	device, err := e.devices.GetDeviceByID(e.device.ID)
	if err != nil {
		t.Fatalf("failed to reload device: %v", err)
	}
	return device
}

func (e *testEnv) pushPlaylistScreen(t *testing.T, content string) *database.Screen {
	t.Helper()
	screen, err := e.svc.PushScreen(context.Background(), e.device, rendering.ContentTypeText, content, database.ScreenSourcePlaylist)
	if err != nil {
		t.Fatalf("failed to create playlist screen: %v", err)
	}
	if _, err := e.lists.AddItem(e.device.ID, screen.ID); err != nil {
		t.Fatalf("failed to add playlist item: %v", err)
	}
	return screen
}

func TestPushScreenPersists(t *testing.T) {
	env := newTestEnv(t, PriorityPushed)

	screen, err := env.svc.PushScreen(context.Background(), env.device, rendering.ContentTypeText, "hello", database.ScreenSourcePushed)
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}

	if screen.Format != database.ScreenFormatPNG {
		t.Errorf("format = %q, want %q for firmware 1.5.2", screen.Format, database.ScreenFormatPNG)
	}
	if _, err := os.Stat(screen.FilePath); err != nil {
		t.Errorf("artifact missing on disk: %v", err)
	}
	if screen.SizeBytes == 0 {
		t.Error("size not recorded")
	}

	stored, err := env.screens.GetScreenByID(screen.ID)
	if err != nil {
		t.Fatalf("screen row not found: %v", err)
	}
	if stored.Filename != screen.Filename {
		t.Errorf("stored filename %q != %q", stored.Filename, screen.Filename)
	}
}

func TestPushScreenOldFirmwareGetsBitmap(t *testing.T) {
	env := newTestEnv(t, PriorityPushed)
	env.device.FirmwareVersion = "1.4.9"

	screen, err := env.svc.PushScreen(context.Background(), env.device, rendering.ContentTypeText, "hello", database.ScreenSourcePushed)
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if screen.Format != database.ScreenFormatBMP {
		t.Errorf("format = %q, want %q", screen.Format, database.ScreenFormatBMP)
	}
	if filepath.Ext(screen.Filename) != ".bmp" {
		t.Errorf("filename %q missing .bmp extension", screen.Filename)
	}
}

func TestPlaylistItemsCarryScreenAssociation(t *testing.T) {
	env := newTestEnv(t, PriorityPushed)
	screen := env.pushPlaylistScreen(t, "screen a")

	items, err := env.lists.GetItems(env.device.ID)
	if err != nil {
		t.Fatalf("failed to load playlist: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Screen == nil {
		t.Fatal("playlist item missing screen association")
	}
	if items[0].Screen.ID != screen.ID {
		t.Errorf("associated screen = %s, want %s", items[0].Screen.ID, screen.ID)
	}
}

func TestNamedPushOverwritesArtifact(t *testing.T) {
	env := newTestEnv(t, PriorityPushed)

	first, err := env.svc.PushScreenNamed(context.Background(), env.device, rendering.ContentTypeText, "morning", database.ScreenSourcePushed, "daily")
	if err != nil {
		t.Fatalf("first push failed: %v", err)
	}
	if first.Filename != "daily.png" {
		t.Errorf("filename = %q, want %q", first.Filename, "daily.png")
	}
	firstBytes, err := env.svc.ArtifactBytes(first)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}

	second, err := env.svc.PushScreenNamed(context.Background(), env.device, rendering.ContentTypeText, "evening", database.ScreenSourcePushed, "daily")
	if err != nil {
		t.Fatalf("second push failed: %v", err)
	}
	if second.ID != first.ID {
		t.Error("re-push under the same name created a new screen row")
	}

	rows, err := env.screens.ListScreens(&env.device.ID, 0)
	if err != nil {
		t.Fatalf("failed to list screens: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("screen rows = %d, want 1", len(rows))
	}

	secondBytes, err := env.svc.ArtifactBytes(second)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if bytes.Equal(firstBytes, secondBytes) {
		t.Error("artifact bytes unchanged after overwrite")
	}
}

func TestPlaylistCycling(t *testing.T) {
	env := newTestEnv(t, PriorityPushed)

	a := env.pushPlaylistScreen(t, "screen a")
	b := env.pushPlaylistScreen(t, "screen b")
	c := env.pushPlaylistScreen(t, "screen c")
	want := []string{a.Filename, b.Filename, c.Filename, a.Filename, b.Filename}

	for i, expected := range want {
		device := env.reload(t)
		screen, err := env.svc.NextScreen(context.Background(), device)
		if err != nil {
			t.Fatalf("poll %d failed: %v", i, err)
		}
		if screen.Filename != expected {
			t.Fatalf("poll %d served %q, want %q", i, screen.Filename, expected)
		}
	}

	device := env.reload(t)
	if device.PlaylistCursor != 2 {
		t.Errorf("cursor = %d after five polls over three items, want 2", device.PlaylistCursor)
	}
}

func TestCurrentScreenDoesNotAdvance(t *testing.T) {
	env := newTestEnv(t, PriorityPushed)
	env.pushPlaylistScreen(t, "screen a")
	env.pushPlaylistScreen(t, "screen b")

	device := env.reload(t)
	served, err := env.svc.NextScreen(context.Background(), device)
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		device = env.reload(t)
		current, err := env.svc.CurrentScreen(device)
		if err != nil {
			t.Fatalf("current screen read %d failed: %v", i, err)
		}
		if current == nil || current.ID != served.ID {
			t.Fatalf("current screen changed on read %d", i)
		}
	}

	device = env.reload(t)
	if device.PlaylistCursor != 1 {
		t.Errorf("cursor = %d, non-advancing reads must not move it", device.PlaylistCursor)
	}
}

func TestPushedScreenPreemptsPlaylist(t *testing.T) {
	env := newTestEnv(t, PriorityPushed)
	a := env.pushPlaylistScreen(t, "screen a")

	pushed, err := env.svc.PushScreen(context.Background(), env.device, rendering.ContentTypeBigText, "urgent", database.ScreenSourcePushed)
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}

	device := env.reload(t)
	screen, err := env.svc.NextScreen(context.Background(), device)
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if screen.ID != pushed.ID {
		t.Fatalf("poll served %q, want pushed screen", screen.Filename)
	}

	// The pushed screen is consumed; the next poll resumes the playlist.
	device = env.reload(t)
	screen, err = env.svc.NextScreen(context.Background(), device)
	if err != nil {
		t.Fatalf("second poll failed: %v", err)
	}
	if screen.ID != a.ID {
		t.Fatalf("second poll served %q, want playlist screen %q", screen.Filename, a.Filename)
	}
}

func TestPlaylistPriorityIgnoresPush(t *testing.T) {
	env := newTestEnv(t, PriorityPlaylist)
	a := env.pushPlaylistScreen(t, "screen a")

	if _, err := env.svc.PushScreen(context.Background(), env.device, rendering.ContentTypeText, "urgent", database.ScreenSourcePushed); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	device := env.reload(t)
	screen, err := env.svc.NextScreen(context.Background(), device)
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if screen.ID != a.ID {
		t.Fatalf("playlist priority served %q, want %q", screen.Filename, a.Filename)
	}
}

func TestEmptyDeviceGetsStatusScreen(t *testing.T) {
	env := newTestEnv(t, PriorityPushed)

	device := env.reload(t)
	screen, err := env.svc.NextScreen(context.Background(), device)
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if screen.Source != database.ScreenSourceSystem {
		t.Errorf("source = %q, want system fallback", screen.Source)
	}

	device = env.reload(t)
	if device.CurrentScreenID == nil || *device.CurrentScreenID != screen.ID {
		t.Error("fallback screen not recorded as current")
	}
}

func TestFailedPushLeavesCurrentScreenIntact(t *testing.T) {
	env := newTestEnv(t, PriorityPushed)

	// Serve screen A so the device has a current screen.
	a, err := env.svc.PushScreen(context.Background(), env.device, rendering.ContentTypeText, "screen a", database.ScreenSourcePushed)
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}
	device := env.reload(t)
	if _, err := env.svc.NextScreen(context.Background(), device); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	// A second pipeline sharing the same database writes through a path
	// blocked by a regular file, so every store fails.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create blocker: %v", err)
	}
	brokenStore := storage.NewArtifactStore(filepath.Join(blocked, "rendered"), "/static/rendered")
	broken := NewService(rendering.NewRasterizer(), brokenStore, env.devices, env.screens, env.lists, PriorityPushed)

	device = env.reload(t)
	_, err = broken.PushScreen(context.Background(), device, rendering.ContentTypeText, "screen b", database.ScreenSourcePushed)
	if !errors.Is(err, storage.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	// No row was recorded for the failed push and the device still points
	// at screen A.
	list, err := env.screens.ListScreens(&env.device.ID, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, s := range list {
		if s.ContentType == "text" && s.ID != a.ID && s.Source == database.ScreenSourcePushed {
			t.Fatalf("failed push left a screen row: %+v", s)
		}
	}

	device = env.reload(t)
	if device.CurrentScreenID == nil || *device.CurrentScreenID != a.ID {
		t.Fatal("current screen reference moved after failed push")
	}
}
