package icon

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"

	"webappinfo/internal/webapp"
)

// MaxDimension is the largest width or height Decode accepts.
const MaxDimension = 4096

var (
	// ErrUnknownFormat is returned for data whose magic bytes match no
	// supported image format.
	ErrUnknownFormat = errors.New("unknown image format")

	// ErrTooManyPixels is returned when an image header declares a width or
	// height above MaxDimension.
	ErrTooManyPixels = errors.New("image dimensions too large")
)

type codec struct {
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
}

var codecs = map[ImageFormat]codec{
	FormatPNG:  {png.Decode, png.DecodeConfig},
	FormatJPEG: {jpeg.Decode, jpeg.DecodeConfig},
	FormatGIF:  {gif.Decode, gif.DecodeConfig},
	FormatWebP: {webp.Decode, webp.DecodeConfig},
	FormatBMP:  {bmp.Decode, bmp.DecodeConfig},
}

// Decode decodes icon bytes of any supported format. For ICO files the
// largest frame is returned. The header is checked against MaxDimension
// before any pixel buffer is allocated.
func Decode(data []byte) (image.Image, ImageFormat, error) {
	format := DetectFormat(data)
	if format == FormatUnknown {
		return nil, FormatUnknown, ErrUnknownFormat
	}

	if format == FormatICO {
		img, err := DecodeICO(data)
		if err != nil {
			return nil, format, fmt.Errorf("decode %s: %w", format, err)
		}
		return img, format, nil
	}

	c := codecs[format]
	cfg, err := c.config(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("decode %s: %w", format, err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, format, fmt.Errorf("decode %s: %w: %dx%d", format, ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	img, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("decode %s: %w", format, err)
	}
	return img, format, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

var pngEncoder = png.Encoder{CompressionLevel: png.BestCompression}

// Fill decodes the icon's Data, records the decoded dimensions in Width and
// Height, and replaces Data with a PNG encoding of the image.
func Fill(info *webapp.IconInfo) error {
	if !info.HasData() {
		return fmt.Errorf("icon %s: no data", info.URL)
	}

	img, format, err := Decode(info.Data)
	if err != nil {
		return fmt.Errorf("icon %s: %w", info.URL, err)
	}

	b := img.Bounds()
	info.Width, info.Height = b.Dx(), b.Dy()

	if format == FormatPNG {
		return nil
	}
	data, err := EncodePNG(img)
	if err != nil {
		return fmt.Errorf("icon %s: %w", info.URL, err)
	}
	info.Data = data
	return nil
}

// Frames expands an ICO icon into one IconInfo per frame, each PNG encoded
// with its own dimensions. Non-ICO icons are returned unchanged.
func Frames(info webapp.IconInfo) ([]webapp.IconInfo, error) {
	if DetectFormat(info.Data) != FormatICO {
		return []webapp.IconInfo{info}, nil
	}

	frames, err := DecodeICOFrames(info.Data)
	if err != nil {
		return nil, fmt.Errorf("icon %s: %w", info.URL, err)
	}

	out := make([]webapp.IconInfo, 0, len(frames))
	for _, img := range frames {
		data, err := EncodePNG(img)
		if err != nil {
			return nil, fmt.Errorf("icon %s: %w", info.URL, err)
		}
		b := img.Bounds()
		out = append(out, webapp.IconInfo{URL: info.URL, Width: b.Dx(), Height: b.Dy(), Data: data})
	}
	return out, nil
}
