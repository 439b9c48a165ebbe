package icon

import "bytes"

// ImageFormat is an icon image encoding recognised by its leading bytes.
type ImageFormat int

const (
	FormatUnknown ImageFormat = iota
	FormatPNG
	FormatJPEG
	FormatGIF
	FormatWebP
	FormatBMP
	FormatICO
)

var formatNames = [...]string{"Unknown", "PNG", "JPEG", "GIF", "WebP", "BMP", "ICO"}

// String returns the name of the format.
func (f ImageFormat) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "Unknown"
}

// MediaType returns the MIME type of the format, or "" when unknown.
func (f ImageFormat) MediaType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	case FormatBMP:
		return "image/bmp"
	case FormatICO:
		return "image/x-icon"
	}
	return ""
}

var (
	magicPNG  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicGIF  = []byte("GIF8")
	magicBMP  = []byte("BM")
	magicICO  = []byte{0x00, 0x00, 0x01, 0x00}
	magicRIFF = []byte("RIFF")
	magicWEBP = []byte("WEBP") // at offset 8
)

// DetectFormat identifies the image format from magic bytes only; file
// extensions and Content-Type headers are not consulted.
func DetectFormat(data []byte) ImageFormat {
	switch {
	case len(data) < 2:
		return FormatUnknown
	case bytes.HasPrefix(data, magicPNG):
		return FormatPNG
	case bytes.HasPrefix(data, magicJPEG):
		return FormatJPEG
	case bytes.HasPrefix(data, magicGIF):
		return FormatGIF
	case len(data) >= 12 && bytes.HasPrefix(data, magicRIFF) && bytes.Equal(data[8:12], magicWEBP):
		return FormatWebP
	case bytes.HasPrefix(data, magicICO):
		return FormatICO
	case bytes.HasPrefix(data, magicBMP):
		return FormatBMP
	}
	return FormatUnknown
}
