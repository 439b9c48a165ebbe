package icon

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// coloredRectangle returns a solid image and its PNG encoding.
func coloredRectangle(t testing.TB, width, height int, c color.Color) (image.Image, []byte) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return img, buf.Bytes()
}

// buildICO packs the given frames into an ICO container. Each frame is
// described by its directory width/height and raw payload.
func buildICO(frames []icoFrame) []byte {
	header := icoHeaderSize + len(frames)*icoEntrySize
	total := header
	for _, f := range frames {
		total += len(f.payload)
	}

	data := make([]byte, total)
	binary.LittleEndian.PutUint16(data[0:2], 0)
	binary.LittleEndian.PutUint16(data[2:4], 1)
	binary.LittleEndian.PutUint16(data[4:6], uint16(len(frames)))

	offset := uint32(header)
	for i, f := range frames {
		e := data[icoHeaderSize+i*icoEntrySize:]
		e[0] = uint8(f.size) // 256 wraps to 0
		e[1] = uint8(f.size)
		binary.LittleEndian.PutUint16(e[4:6], 1)
		binary.LittleEndian.PutUint16(e[6:8], 32)
		binary.LittleEndian.PutUint32(e[8:12], uint32(len(f.payload)))
		binary.LittleEndian.PutUint32(e[12:16], offset)
		copy(data[offset:], f.payload)
		offset += uint32(len(f.payload))
	}
	return data
}

type icoFrame struct {
	size    int
	payload []byte
}

// pngICO builds an ICO with one PNG frame per size.
func pngICO(t testing.TB, sizes ...int) []byte {
	t.Helper()
	frames := make([]icoFrame, len(sizes))
	for i, s := range sizes {
		_, data := coloredRectangle(t, s, s, color.RGBA{R: uint8(s), A: 0xFF})
		frames[i] = icoFrame{size: s, payload: data}
	}
	return buildICO(frames)
}

// dib32 builds a headerless 32-bit DIB of a solid color as stored in ICO.
func dib32(size int, c color.RGBA) []byte {
	pixels := size * size * 4
	mask := rowStride(size, 1) * size
	data := make([]byte, 40+pixels+mask)
	binary.LittleEndian.PutUint32(data[0:4], 40)
	binary.LittleEndian.PutUint32(data[4:8], uint32(size))
	binary.LittleEndian.PutUint32(data[8:12], uint32(size*2))
	binary.LittleEndian.PutUint16(data[12:14], 1)
	binary.LittleEndian.PutUint16(data[14:16], 32)
	for i := 0; i < size*size; i++ {
		p := data[40+i*4:]
		p[0], p[1], p[2], p[3] = c.B, c.G, c.R, c.A
	}
	return data
}
