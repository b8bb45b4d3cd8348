package imageprocessing

import (
	"errors"
	"fmt"
	"image"
)

// Panel geometry every encoder assumes. The device class has fixed screen
// hardware; arbitrary sizes are rejected rather than resampled here.
const (
	PanelWidth  = 800
	PanelHeight = 480
)

// ErrDimensionMismatch is returned when a canvas does not match the panel
// geometry exactly.
var ErrDimensionMismatch = errors.New("canvas dimensions do not match panel geometry")

// EncodeForFirmware quantizes a canvas to strict black/white and serializes
// it in the format the reported firmware can decode. The canvas must be
// exactly PanelWidth x PanelHeight.
func EncodeForFirmware(canvas image.Image, firmwareVersion string) (Format, []byte, error) {
	if canvas == nil {
		return "", nil, fmt.Errorf("canvas is nil")
	}

	bounds := canvas.Bounds()
	if bounds.Dx() != PanelWidth || bounds.Dy() != PanelHeight {
		return "", nil, fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrDimensionMismatch, bounds.Dx(), bounds.Dy(), PanelWidth, PanelHeight)
	}

	paletted := QuantizeMono(canvas)
	format := SelectFormat(firmwareVersion)

	var data []byte
	var err error
	switch format {
	case FormatPNG1Bit:
		data, err = EncodePNG1Bit(paletted)
	case FormatBMP3:
		data, err = EncodeBMP3(paletted)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}

	return format, data, nil
}
