package imageprocessing

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
)

const (
	bmpFileHeaderSize = 14
	bmpInfoHeaderSize = 40 // BITMAPINFOHEADER, the "version 3" header
	bmpPaletteSize    = 8  // two BGRA entries
	bmpPixelOffset    = bmpFileHeaderSize + bmpInfoHeaderSize + bmpPaletteSize
)

// EncodeBMP3 serializes a black/white paletted image as an uncompressed
// 1 bpp BMP with a BITMAPINFOHEADER, the format legacy firmware expects.
// Rows are stored bottom-up and padded to 4-byte boundaries.
func EncodeBMP3(paletted *image.Paletted) ([]byte, error) {
	if paletted == nil {
		return nil, fmt.Errorf("image is nil")
	}
	if len(paletted.Palette) != 2 {
		return nil, fmt.Errorf("expected 2-color palette, got %d entries", len(paletted.Palette))
	}

	bounds := paletted.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	rowSize := ((width + 31) / 32) * 4 // 1 bpp rows padded to 4 bytes
	imageSize := rowSize * height
	fileSize := bmpPixelOffset + imageSize

	var buf bytes.Buffer
	buf.Grow(fileSize)

	// BITMAPFILEHEADER
	buf.WriteString("BM")
	binary.Write(&buf, binary.LittleEndian, uint32(fileSize))
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // reserved
	binary.Write(&buf, binary.LittleEndian, uint32(bmpPixelOffset))

	// BITMAPINFOHEADER
	binary.Write(&buf, binary.LittleEndian, uint32(bmpInfoHeaderSize))
	binary.Write(&buf, binary.LittleEndian, int32(width))
	binary.Write(&buf, binary.LittleEndian, int32(height)) // positive: bottom-up
	binary.Write(&buf, binary.LittleEndian, uint16(1))     // planes
	binary.Write(&buf, binary.LittleEndian, uint16(1))     // bits per pixel
	binary.Write(&buf, binary.LittleEndian, uint32(0))     // BI_RGB, no compression
	binary.Write(&buf, binary.LittleEndian, uint32(imageSize))
	binary.Write(&buf, binary.LittleEndian, int32(2835)) // ~72 DPI horizontal
	binary.Write(&buf, binary.LittleEndian, int32(2835)) // ~72 DPI vertical
	binary.Write(&buf, binary.LittleEndian, uint32(2))   // colors used
	binary.Write(&buf, binary.LittleEndian, uint32(2))   // important colors

	// Palette, BGRA order: index 0 black, index 1 white
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00})
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0x00})

	// Pixel rows, bottom-up, MSB first within each byte
	row := make([]byte, rowSize)
	for y := height - 1; y >= 0; y-- {
		for i := range row {
			row[i] = 0
		}
		for x := 0; x < width; x++ {
			if paletted.ColorIndexAt(bounds.Min.X+x, bounds.Min.Y+y) != 0 {
				row[x/8] |= 0x80 >> (x % 8)
			}
		}
		buf.Write(row)
	}

	return buf.Bytes(), nil
}
