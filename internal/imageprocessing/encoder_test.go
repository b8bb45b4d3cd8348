package imageprocessing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// gradientCanvas builds a full-size canvas with a horizontal gray ramp,
// so quantization produces both black and white regions.
func gradientCanvas() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, PanelWidth, PanelHeight))
	for y := 0; y < PanelHeight; y++ {
		for x := 0; x < PanelWidth; x++ {
			v := uint8(x * 255 / (PanelWidth - 1))
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestEncodeForFirmwareRejectsWrongDimensions(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 400, 240))
	_, _, err := EncodeForFirmware(small, "1.5.2")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestEncodeForFirmwarePNG(t *testing.T) {
	format, data, err := EncodeForFirmware(gradientCanvas(), "1.5.2")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if format != FormatPNG1Bit {
		t.Fatalf("expected png1bit, got %v", format)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not decodable PNG: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != PanelWidth || bounds.Dy() != PanelHeight {
		t.Errorf("decoded size = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), PanelWidth, PanelHeight)
	}

	// Every pixel must be pure black or pure white.
	for _, pt := range []image.Point{{0, 0}, {PanelWidth - 1, 0}, {PanelWidth / 2, PanelHeight / 2}} {
		gray := color.GrayModel.Convert(decoded.At(pt.X, pt.Y)).(color.Gray)
		if gray.Y != 0 && gray.Y != 255 {
			t.Errorf("pixel at %v is %d, want 0 or 255", pt, gray.Y)
		}
	}

	// Left edge of the ramp is dark, right edge is light.
	left := color.GrayModel.Convert(decoded.At(0, 0)).(color.Gray)
	right := color.GrayModel.Convert(decoded.At(PanelWidth-1, 0)).(color.Gray)
	if left.Y != 0 {
		t.Errorf("left edge = %d, want 0", left.Y)
	}
	if right.Y != 255 {
		t.Errorf("right edge = %d, want 255", right.Y)
	}
}

func TestEncodeForFirmwareBMP(t *testing.T) {
	format, data, err := EncodeForFirmware(gradientCanvas(), "1.5.1")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if format != FormatBMP3 {
		t.Fatalf("expected bmp3, got %v", format)
	}

	if len(data) < 62 || data[0] != 'B' || data[1] != 'M' {
		t.Fatal("output missing BM signature")
	}
	fileSize := binary.LittleEndian.Uint32(data[2:6])
	if int(fileSize) != len(data) {
		t.Errorf("header file size = %d, actual = %d", fileSize, len(data))
	}

	width := int32(binary.LittleEndian.Uint32(data[18:22]))
	height := int32(binary.LittleEndian.Uint32(data[22:26]))
	bitCount := binary.LittleEndian.Uint16(data[28:30])
	if width != PanelWidth || height != PanelHeight {
		t.Errorf("header size = %dx%d, want %dx%d", width, height, PanelWidth, PanelHeight)
	}
	if bitCount != 1 {
		t.Errorf("bit count = %d, want 1", bitCount)
	}

	// Pixel data: bottom-up rows, 4-byte aligned. The gradient canvas is
	// dark on the left and light on the right of every row.
	rowSize := ((PanelWidth + 31) / 32) * 4
	offset := int(binary.LittleEndian.Uint32(data[10:14]))
	if offset+rowSize*PanelHeight != len(data) {
		t.Fatalf("pixel array size mismatch: offset %d, rows %d, total %d", offset, rowSize, len(data))
	}
	bottomRow := data[offset : offset+rowSize]
	if bottomRow[0]&0x80 != 0 {
		t.Error("leftmost pixel should be black (bit 0)")
	}
	lastByte := bottomRow[(PanelWidth-1)/8]
	if lastByte&(0x80>>uint((PanelWidth-1)%8)) == 0 {
		t.Error("rightmost pixel should be white (bit 1)")
	}
}

func TestQuantizeMonoIdempotent(t *testing.T) {
	first := QuantizeMono(gradientCanvas())
	second := QuantizeMono(first)

	if !bytes.Equal(first.Pix, second.Pix) {
		t.Fatal("re-quantizing an already monochrome image changed pixels")
	}

	// Encoding the quantized output twice yields identical bytes.
	_, a, err := EncodeForFirmware(first, "2.0.0")
	if err != nil {
		t.Fatalf("first encode failed: %v", err)
	}
	_, b, err := EncodeForFirmware(second, "2.0.0")
	if err != nil {
		t.Fatalf("second encode failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("encoding a quantized image is not stable")
	}
}

func TestQuantizeMonoThreshold(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, PanelWidth, PanelHeight))
	for y := 0; y < PanelHeight; y++ {
		for x := 0; x < PanelWidth; x++ {
			img.Set(x, y, color.Gray{Y: 127})
		}
	}
	q := QuantizeMono(img)
	if got := q.ColorIndexAt(0, 0); got != 0 {
		t.Errorf("luminance 127 mapped to index %d, want 0 (black)", got)
	}

	for y := 0; y < PanelHeight; y++ {
		for x := 0; x < PanelWidth; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	q = QuantizeMono(img)
	if got := q.ColorIndexAt(0, 0); got != 1 {
		t.Errorf("luminance 128 mapped to index %d, want 1 (white)", got)
	}
}
