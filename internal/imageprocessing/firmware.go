package imageprocessing

import (
	"strconv"
	"strings"
)

// Format identifies an on-disk artifact encoding.
type Format string

const (
	// FormatPNG1Bit is a 1-bit indexed PNG, decodable by firmware 1.5.2+.
	FormatPNG1Bit Format = "png1bit"
	// FormatBMP3 is an uncompressed 1 bpp BMP (version 3 header) for older
	// firmware that cannot decode PNG.
	FormatBMP3 Format = "bmp3"
)

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	if f == FormatBMP3 {
		return "bmp"
	}
	return "png"
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatBMP3 {
		return "image/bmp"
	}
	return "image/png"
}

// FirmwareVersion is a parsed dotted firmware version.
type FirmwareVersion struct {
	Major, Minor, Patch int
}

// minPNGFirmware is the first firmware release with a PNG decoder.
var minPNGFirmware = FirmwareVersion{Major: 1, Minor: 5, Patch: 2}

// ParseFirmwareVersion parses a dotted numeric version like "1.5.2".
// Missing trailing components default to zero ("1.5" parses as 1.5.0).
// The second return value reports whether the string was parsable.
func ParseFirmwareVersion(s string) (FirmwareVersion, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "v"))
	if s == "" {
		return FirmwareVersion{}, false
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return FirmwareVersion{}, false
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return FirmwareVersion{}, false
		}
		nums[i] = n
	}

	return FirmwareVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, true
}

// AtLeast reports whether v is greater than or equal to other, comparing
// major.minor.patch semantically.
func (v FirmwareVersion) AtLeast(other FirmwareVersion) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Patch >= other.Patch
}

// SelectFormat picks the artifact encoding for a reported firmware version.
// Firmware 1.5.2 and above decodes indexed PNG; anything older, missing, or
// unparsable falls back to the legacy bitmap. Never fails.
func SelectFormat(firmwareVersion string) Format {
	v, ok := ParseFirmwareVersion(firmwareVersion)
	if !ok {
		return FormatBMP3
	}
	if v.AtLeast(minPNGFirmware) {
		return FormatPNG1Bit
	}
	return FormatBMP3
}
