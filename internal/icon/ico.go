package icon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// ErrInvalidICO is wrapped by every ICO parse failure.
var ErrInvalidICO = errors.New("invalid ICO file")

const (
	icoHeaderSize = 6
	icoEntrySize  = 16

	// maxICOFrameSize is the largest width or height an ICO frame can carry.
	maxICOFrameSize = 256
)

// icoEntry is one 16-byte ICONDIRENTRY.
type icoEntry struct {
	Width      uint8 // 0 means 256
	Height     uint8 // 0 means 256
	ColorCount uint8
	BitCount   uint16
	Size       uint32
	Offset     uint32
}

func (e icoEntry) width() int {
	if e.Width == 0 {
		return 256
	}
	return int(e.Width)
}

func (e icoEntry) height() int {
	if e.Height == 0 {
		return 256
	}
	return int(e.Height)
}

func (e icoEntry) area() int {
	return e.width() * e.height()
}

// parseICODirectory validates the header and returns every entry whose
// data range lies inside the file.
func parseICODirectory(data []byte) ([]icoEntry, error) {
	if len(data) < icoHeaderSize {
		return nil, fmt.Errorf("%w: too short for header", ErrInvalidICO)
	}

	reserved := binary.LittleEndian.Uint16(data[0:2])
	typ := binary.LittleEndian.Uint16(data[2:4])
	count := int(binary.LittleEndian.Uint16(data[4:6]))

	if reserved != 0 {
		return nil, fmt.Errorf("%w: reserved field must be 0, got %d", ErrInvalidICO, reserved)
	}
	if typ != 1 {
		return nil, fmt.Errorf("%w: type must be 1, got %d", ErrInvalidICO, typ)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no images", ErrInvalidICO)
	}
	if len(data) < icoHeaderSize+count*icoEntrySize {
		return nil, fmt.Errorf("%w: too short for %d directory entries", ErrInvalidICO, count)
	}

	entries := make([]icoEntry, 0, count)
	for i := 0; i < count; i++ {
		raw := data[icoHeaderSize+i*icoEntrySize:]
		e := icoEntry{
			Width:      raw[0],
			Height:     raw[1],
			ColorCount: raw[2],
			BitCount:   binary.LittleEndian.Uint16(raw[6:8]),
			Size:       binary.LittleEndian.Uint32(raw[8:12]),
			Offset:     binary.LittleEndian.Uint32(raw[12:16]),
		}
		if e.Offset == 0 || e.Size == 0 || uint64(e.Offset)+uint64(e.Size) > uint64(len(data)) {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no valid image entries", ErrInvalidICO)
	}
	return entries, nil
}

// DecodeICO returns the frame with the largest area. Ties go to the
// earliest entry.
func DecodeICO(data []byte) (image.Image, error) {
	entries, err := parseICODirectory(data)
	if err != nil {
		return nil, err
	}

	best := entries[0]
	for _, e := range entries[1:] {
		if e.area() > best.area() {
			best = e
		}
	}
	return decodeICOFrame(data[best.Offset:best.Offset+best.Size], best)
}

// DecodeICOFrames decodes every frame of an ICO file in directory order.
// Frames that fail to decode are skipped; an error is returned only when
// none decode.
func DecodeICOFrames(data []byte) ([]image.Image, error) {
	entries, err := parseICODirectory(data)
	if err != nil {
		return nil, err
	}

	var (
		frames  []image.Image
		lastErr error
	)
	for _, e := range entries {
		img, err := decodeICOFrame(data[e.Offset:e.Offset+e.Size], e)
		if err != nil {
			lastErr = err
			continue
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return nil, lastErr
	}
	return frames, nil
}

// decodeICOFrame decodes one embedded image, either PNG or a headerless DIB.
func decodeICOFrame(data []byte, e icoEntry) (image.Image, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: frame too short", ErrInvalidICO)
	}
	if bytes.HasPrefix(data, magicPNG) {
		cfg, err := png.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode PNG frame: %w", err)
		}
		if cfg.Width > maxICOFrameSize || cfg.Height > maxICOFrameSize {
			return nil, fmt.Errorf("%w: PNG frame is %dx%d", ErrInvalidICO, cfg.Width, cfg.Height)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode PNG frame: %w", err)
		}
		return img, nil
	}
	return decodeDIB(data, e)
}

// decodeDIB decodes a BMP stored without its BITMAPFILEHEADER, starting at
// BITMAPINFOHEADER. The stored height covers both the XOR and AND masks.
func decodeDIB(data []byte, e icoEntry) (image.Image, error) {
	if len(data) < 40 {
		return nil, fmt.Errorf("%w: DIB too short for header", ErrInvalidICO)
	}

	headerSize := int(binary.LittleEndian.Uint32(data[0:4]))
	if headerSize < 40 || headerSize > len(data) {
		return nil, fmt.Errorf("%w: unsupported DIB header size %d", ErrInvalidICO, headerSize)
	}

	width := int(int32(binary.LittleEndian.Uint32(data[4:8])))
	height := int(int32(binary.LittleEndian.Uint32(data[8:12]))) / 2
	bitCount := binary.LittleEndian.Uint16(data[14:16])
	compression := binary.LittleEndian.Uint32(data[16:20])

	if width <= 0 {
		width = e.width()
	}
	if height <= 0 {
		height = e.height()
	}
	if width > maxICOFrameSize || height > maxICOFrameSize {
		return nil, fmt.Errorf("%w: DIB is %dx%d", ErrInvalidICO, width, height)
	}
	if compression != 0 {
		return nil, fmt.Errorf("%w: compressed DIB not supported (compression=%d)", ErrInvalidICO, compression)
	}
	switch bitCount {
	case 1, 4, 8, 24, 32:
	default:
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidICO, bitCount)
	}

	offset := headerSize
	var palette []color.RGBA
	if bitCount <= 8 {
		n := 1 << bitCount
		if e.ColorCount > 0 && int(e.ColorCount) < n {
			n = int(e.ColorCount)
		}
		if len(data) < offset+n*4 {
			return nil, fmt.Errorf("%w: DIB too short for palette", ErrInvalidICO)
		}
		palette = make([]color.RGBA, n)
		for i := range palette {
			p := data[offset+i*4:]
			palette[i] = color.RGBA{R: p[2], G: p[1], B: p[0], A: 0xFF}
		}
		offset += n * 4
	}

	pixels := data[offset:]
	if need := rowStride(width, int(bitCount)) * height; len(pixels) < need {
		return nil, fmt.Errorf("%w: DIB has %d bytes of pixel data, need %d", ErrInvalidICO, len(pixels), need)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	switch bitCount {
	case 1, 4, 8:
		decodeIndexedRows(img, pixels, int(bitCount), palette)
	case 24:
		decodeTrueColorRows(img, pixels, 3)
	case 32:
		decodeTrueColorRows(img, pixels, 4)
	}

	return img, nil
}

// rowStride returns the 4-byte aligned row size for the given depth.
func rowStride(width, bits int) int {
	return ((width*bits + 31) / 32) * 4
}

// decodeIndexedRows handles 1, 4 and 8 bit palette images. Rows are stored
// bottom-up.
func decodeIndexedRows(img *image.RGBA, data []byte, bits int, palette []color.RGBA) {
	width, height := img.Rect.Dx(), img.Rect.Dy()
	stride := rowStride(width, bits)
	perByte := 8 / bits
	mask := byte(1<<bits - 1)

	for y := 0; y < height; y++ {
		row := (height - 1 - y) * stride
		if row+stride > len(data) {
			break
		}
		for x := 0; x < width; x++ {
			b := data[row+x/perByte]
			shift := uint(8 - bits - (x%perByte)*bits)
			idx := int((b >> shift) & mask)
			if idx < len(palette) {
				img.SetRGBA(x, y, palette[idx])
			}
		}
	}
}

// decodeTrueColorRows handles BGR (3 bytes) and BGRA (4 bytes) pixels.
func decodeTrueColorRows(img *image.RGBA, data []byte, bpp int) {
	width, height := img.Rect.Dx(), img.Rect.Dy()
	stride := rowStride(width, bpp*8)

	for y := 0; y < height; y++ {
		row := (height - 1 - y) * stride
		if row+width*bpp > len(data) {
			break
		}
		for x := 0; x < width; x++ {
			p := data[row+x*bpp:]
			c := color.RGBA{B: p[0], G: p[1], R: p[2], A: 0xFF}
			if bpp == 4 {
				c.A = p[3]
			}
			img.SetRGBA(x, y, c)
		}
	}
}
