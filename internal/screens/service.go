package screens

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/inkfleet/inkfleet/internal/database"
	"github.com/inkfleet/inkfleet/internal/imageprocessing"
	"github.com/inkfleet/inkfleet/internal/logging"
	"github.com/inkfleet/inkfleet/internal/rendering"
	"github.com/inkfleet/inkfleet/internal/storage"
)

// Priority policies for advancing polls when both a fresh pushed screen
// and playlist content exist.
const (
	PriorityPushed   = "pushed"
	PriorityPlaylist = "playlist"
)

// Service drives the full screen pipeline: rasterize content, encode it
// for the device firmware, persist the artifact, and record it.
type Service struct {
	rasterizer *rendering.Rasterizer
	store      *storage.ArtifactStore
	devices    *database.DeviceService
	screens    *database.ScreenService
	playlists  *database.PlaylistService
	priority   string
}

// NewService wires the pipeline together. priority selects what an
// advancing poll prefers when both pushed and playlist content are
// available; see PriorityPushed and PriorityPlaylist.
func NewService(rasterizer *rendering.Rasterizer, store *storage.ArtifactStore, devices *database.DeviceService, screens *database.ScreenService, playlists *database.PlaylistService, priority string) *Service {
	if priority != PriorityPlaylist {
		priority = PriorityPushed
	}
	return &Service{
		rasterizer: rasterizer,
		store:      store,
		devices:    devices,
		screens:    screens,
		playlists:  playlists,
		priority:   priority,
	}
}

// PushScreen renders operator content into a persisted screen artifact
// for the device. A failed push leaves no screen row behind and never
// disturbs what the device is currently showing.
func (s *Service) PushScreen(ctx context.Context, device *database.Device, contentType rendering.ContentType, content, source string) (*database.Screen, error) {
	return s.PushScreenNamed(ctx, device, contentType, content, source, "")
}

// PushScreenNamed is PushScreen with a caller-chosen artifact filename.
// No uniqueness is enforced on the name: pushing the same name again
// overwrites the stored artifact and reuses its screen row. An empty
// name falls back to a generated one.
func (s *Service) PushScreenNamed(ctx context.Context, device *database.Device, contentType rendering.ContentType, content, source, filename string) (*database.Screen, error) {
	canvas, err := s.rasterizer.Render(ctx, contentType, content, imageprocessing.PanelWidth, imageprocessing.PanelHeight)
	if err != nil {
		return nil, err
	}
	return s.persistCanvas(device, canvas, string(contentType), source, filename)
}

// ImportImage decodes an operator-supplied raster image, fits it to the
// panel, dithers it to monochrome, and persists it as a screen.
func (s *Service) ImportImage(ctx context.Context, device *database.Device, imageData []byte) (*database.Screen, error) {
	img, err := rendering.DecodeImage(imageData)
	if err != nil {
		return nil, err
	}
	fitted := imageprocessing.ResizeToFit(img, imageprocessing.PanelWidth, imageprocessing.PanelHeight)
	dithered := imageprocessing.DitherFloydSteinberg(fitted)
	return s.persistCanvas(device, dithered, "image", database.ScreenSourcePushed, "")
}

// GenerateWelcomeScreen produces the screen served to a freshly
// provisioned device, showing its short pairing identifier.
func (s *Service) GenerateWelcomeScreen(ctx context.Context, device *database.Device) (*database.Screen, error) {
	content := fmt.Sprintf("Welcome\n\nDevice %s is ready.\nUse this ID to claim it.", device.FriendlyID)
	return s.PushScreen(ctx, device, rendering.ContentTypeText, content, database.ScreenSourceSystem)
}

// GenerateStatusScreen produces a fallback screen for devices with no
// content queued.
func (s *Service) GenerateStatusScreen(ctx context.Context, device *database.Device, message string) (*database.Screen, error) {
	if strings.TrimSpace(message) == "" {
		message = "No content scheduled"
	}
	return s.PushScreen(ctx, device, rendering.ContentTypeBigText, message, database.ScreenSourceSystem)
}

// NextScreen resolves what an advancing poll should show and moves the
// device's poll state forward. Resolution order depends on the priority
// policy: fresh pushed screens normally preempt the playlist, and a
// pushed screen is consumed by the poll that serves it. With an empty
// playlist and no fresh push the current screen is re-served, and a
// device with nothing at all gets a generated status screen.
func (s *Service) NextScreen(ctx context.Context, device *database.Device) (*database.Screen, error) {
	pushed := s.freshPushedScreen(device)

	if pushed != nil && s.priority == PriorityPushed {
		return pushed, s.serveScreen(device, pushed, device.PlaylistCursor)
	}

	items, err := s.playlists.GetItems(device.ID)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		idx := device.PlaylistCursor % len(items)
		item := items[idx]
		screen := item.Screen
		if screen == nil {
			screen, err = s.screens.GetScreenByID(item.ScreenID)
			if err != nil {
				return nil, err
			}
		}
		return screen, s.serveScreen(device, screen, idx+1)
	}

	// Playlist-priority policy still falls back to pushed content when
	// the playlist is empty.
	if pushed != nil {
		return pushed, s.serveScreen(device, pushed, device.PlaylistCursor)
	}

	if device.CurrentScreenID != nil {
		current, err := s.screens.GetScreenByID(*device.CurrentScreenID)
		if err == nil {
			return current, nil
		}
		logging.WarnWithComponent(logging.ComponentScreens, "current screen row missing, regenerating",
			"device_id", device.ID, "screen_id", *device.CurrentScreenID)
	}

	status, err := s.GenerateStatusScreen(ctx, device, "")
	if err != nil {
		return nil, err
	}
	return status, s.serveScreen(device, status, device.PlaylistCursor)
}

// CurrentScreen returns the screen the device is presently assigned
// without touching any poll state.
func (s *Service) CurrentScreen(device *database.Device) (*database.Screen, error) {
	if device.CurrentScreenID == nil {
		return nil, nil
	}
	return s.screens.GetScreenByID(*device.CurrentScreenID)
}

// freshPushedScreen returns the newest pushed screen the device has not
// yet been served, or nil.
func (s *Service) freshPushedScreen(device *database.Device) *database.Screen {
	pushed, err := s.screens.GetLatestPushedScreen(device.ID)
	if err != nil || pushed == nil {
		return nil
	}
	if device.LastAdvanceAt != nil && !pushed.CreatedAt.After(*device.LastAdvanceAt) {
		return nil
	}
	return pushed
}

// serveScreen commits the outcome of an advancing poll: the current
// screen reference and the cursor plus advance timestamp.
func (s *Service) serveScreen(device *database.Device, screen *database.Screen, nextCursor int) error {
	if err := s.devices.SetCurrentScreen(device.ID, screen.ID); err != nil {
		return err
	}
	return s.devices.AdvancePlaylistCursor(device.ID, nextCursor)
}

// persistCanvas runs the back half of the pipeline: quantize and encode
// for the device firmware, write the artifact atomically, then record
// the screen row. Ordering matters: the row is only created once the
// artifact is fully on disk, so readers never see a half persisted
// screen. A caller-supplied filename reuses any existing row under that
// name; otherwise a fresh name is generated.
func (s *Service) persistCanvas(device *database.Device, canvas image.Image, contentType, source, filename string) (*database.Screen, error) {
	format, data, err := imageprocessing.EncodeForFirmware(canvas, device.FirmwareVersion)
	if err != nil {
		return nil, err
	}

	if filename != "" {
		filename = storage.SanitizeFilename(filename, format.Extension())
	}
	if filename == "" {
		filename = storage.GenerateFilename(data, format.Extension())
	}
	filePath, err := s.store.Store(filename, data)
	if err != nil {
		return nil, err
	}

	if existing, lookupErr := s.screens.GetScreenByFilename(filename); lookupErr == nil {
		existing.Format = string(format)
		existing.ContentType = contentType
		existing.Source = source
		existing.FilePath = filePath
		existing.SizeBytes = int64(len(data))
		existing.DeviceID = &device.ID
		existing.CreatedAt = time.Now()
		if err := s.screens.UpdateScreen(existing); err != nil {
			return nil, err
		}
		logging.InfoWithComponent(logging.ComponentScreens, "screen overwritten",
			"device_id", device.ID, "filename", filename, "format", format, "source", source)
		return existing, nil
	}

	screen := &database.Screen{
		Filename:    filename,
		Format:      string(format),
		ContentType: contentType,
		Source:      source,
		FilePath:    filePath,
		SizeBytes:   int64(len(data)),
		DeviceID:    &device.ID,
	}
	if err := s.screens.CreateScreen(screen); err != nil {
		if rmErr := s.store.Delete(filename); rmErr != nil {
			logging.WarnWithComponent(logging.ComponentScreens, "failed to remove orphaned artifact",
				"filename", filename, "error", rmErr)
		}
		return nil, err
	}

	logging.InfoWithComponent(logging.ComponentScreens, "screen persisted",
		"device_id", device.ID, "filename", filename, "format", format, "source", source)
	return screen, nil
}

// URLFor maps a screen to the URL its artifact is served from.
func (s *Service) URLFor(screen *database.Screen) string {
	return s.store.URLFor(screen.Filename)
}

// ArtifactBytes reads a screen's encoded bytes back from storage.
func (s *Service) ArtifactBytes(screen *database.Screen) ([]byte, error) {
	return s.store.Read(screen.Filename)
}

// DeleteArtifact removes a screen's encoded file from storage.
func (s *Service) DeleteArtifact(screen *database.Screen) error {
	return s.store.Delete(screen.Filename)
}
