// Package imaging turns decoded frames into compressed image bytes.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/fiapx/fiapx-frame-sampler/internal/domain/port"
)

const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"

	maxQuality = 100
)

// pngBestAbove switches PNG to best compression for high quality requests.
// PNG is lossless either way; quality only trades CPU for size.
const pngBestAbove = 90

type JPEGEncoder struct{}

func NewJPEGEncoder() *JPEGEncoder {
	return &JPEGEncoder{}
}

func (JPEGEncoder) Extension() string { return "jpg" }

func (e *JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if err := checkImage(img); err != nil {
		return nil, fmt.Errorf("encoder(jpeg): %w", err)
	}
	if quality <= 0 || quality > maxQuality {
		quality = maxQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoder(jpeg): encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

type PNGEncoder struct{}

func NewPNGEncoder() *PNGEncoder {
	return &PNGEncoder{}
}

func (PNGEncoder) Extension() string { return "png" }

func (e *PNGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if err := checkImage(img); err != nil {
		return nil, fmt.Errorf("encoder(png): %w", err)
	}

	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if quality <= 0 || quality >= pngBestAbove {
		enc.CompressionLevel = png.BestCompression
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoder(png): encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// New returns the encoder for a configured format name.
func New(format string) (port.ImageEncoder, error) {
	switch strings.ToLower(format) {
	case FormatJPEG, "jpg":
		return NewJPEGEncoder(), nil
	case FormatPNG:
		return NewPNGEncoder(), nil
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
}

func checkImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("nil frame")
	}
	if img.Bounds().Empty() {
		return fmt.Errorf("empty frame %v", img.Bounds())
	}
	return nil
}
