package imageprocessing

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
)

// EncodePNG1Bit serializes a black/white paletted image as a 1-bit indexed
// PNG: color type 3 with a two-entry PLTE. The explicit chunk framing keeps
// output byte-stable across Go releases, which matters because artifacts
// are compared and cached by content.
func EncodePNG1Bit(paletted *image.Paletted) ([]byte, error) {
	if paletted == nil {
		return nil, fmt.Errorf("image is nil")
	}
	if len(paletted.Palette) != 2 {
		return nil, fmt.Errorf("expected 2-color palette, got %d entries", len(paletted.Palette))
	}

	bounds := paletted.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var buf bytes.Buffer

	// PNG signature
	buf.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})

	writeChunk(&buf, "IHDR", func(data *bytes.Buffer) {
		binary.Write(data, binary.BigEndian, uint32(width))
		binary.Write(data, binary.BigEndian, uint32(height))
		data.WriteByte(1) // Bit depth: 1
		data.WriteByte(3) // Color type: indexed
		data.WriteByte(0) // Compression method
		data.WriteByte(0) // Filter method
		data.WriteByte(0) // Interlace method
	})

	writeChunk(&buf, "PLTE", func(data *bytes.Buffer) {
		data.Write([]byte{0x00, 0x00, 0x00}) // index 0: black
		data.Write([]byte{0xFF, 0xFF, 0xFF}) // index 1: white
	})

	compressed, err := zlibCompress(packScanlines(paletted))
	if err != nil {
		return nil, fmt.Errorf("failed to compress image data: %w", err)
	}
	writeChunk(&buf, "IDAT", func(data *bytes.Buffer) {
		data.Write(compressed)
	})

	writeChunk(&buf, "IEND", func(data *bytes.Buffer) {})

	return buf.Bytes(), nil
}

// packScanlines packs palette indexes 8 pixels per byte, MSB first, with a
// None filter byte leading each row.
func packScanlines(paletted *image.Paletted) []byte {
	bounds := paletted.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	bytesPerRow := (width + 7) / 8
	data := make([]byte, height*(bytesPerRow+1))

	for y := 0; y < height; y++ {
		rowStart := y * (bytesPerRow + 1)
		data[rowStart] = 0 // Filter type: None

		for x := 0; x < width; x++ {
			idx := paletted.ColorIndexAt(bounds.Min.X+x, bounds.Min.Y+y)
			if idx != 0 {
				data[rowStart+1+x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return data
}

// writeChunk writes a PNG chunk with proper CRC
func writeChunk(buf *bytes.Buffer, chunkType string, dataWriter func(*bytes.Buffer)) {
	var chunkData bytes.Buffer
	dataWriter(&chunkData)
	data := chunkData.Bytes()

	binary.Write(buf, binary.BigEndian, uint32(len(data)))
	buf.WriteString(chunkType)
	buf.Write(data)

	crc := crc32.NewIEEE()
	crc.Write([]byte(chunkType))
	crc.Write(data)
	binary.Write(buf, binary.BigEndian, crc.Sum32())
}

func zlibCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zlib writer: %w", err)
	}

	return buf.Bytes(), nil
}
