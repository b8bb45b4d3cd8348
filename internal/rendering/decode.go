package rendering

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoder for imported images
)

// DecodeImage decodes operator-supplied raster bytes. PNG, JPEG, and
// GIF are accepted.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
