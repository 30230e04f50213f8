package compress

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp" // webp decoding

	"imgpress/internal/models"
)

// Engine re-encodes raster images at a reduced quality. It is stateless;
// all knobs come from the config so tests can inject small caps.
type Engine struct {
	cfg models.CompressionConfig
}

func NewEngine(cfg models.CompressionConfig) *Engine {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 8000
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 60
	}
	return &Engine{cfg: cfg}
}

// Compress decodes data, downscales it if either dimension exceeds the
// configured cap, and re-encodes in the same format. quality applies to
// jpeg only (clamped to 1..100; values <= 0 fall back to the configured
// default); png and webp are encoded losslessly.
func (e *Engine) Compress(data []byte, contentType string, quality int) ([]byte, error) {
	const op = "compress.Engine.Compress"

	format := strings.ToLower(contentType)
	decodeOpts := []imaging.DecodeOption{}
	if format == "image/png" {
		decodeOpts = append(decodeOpts, imaging.AutoOrientation(true))
	}

	img, err := imaging.Decode(bytes.NewReader(data), decodeOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrDecode, err)
	}

	img = e.capDimensions(img)

	var buf bytes.Buffer
	switch format {
	case "image/jpeg", "image/jpg":
		q := quality
		if q <= 0 {
			q = e.cfg.JPEGQuality
		}
		if q > 100 {
			q = 100
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q))
	case "image/png":
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case "image/webp":
		err = webp.Encode(&buf, img, &webp.Options{Lossless: true})
	default:
		return nil, fmt.Errorf("%s: %w: %q", op, models.ErrUnsupportedFormat, contentType)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	log.Printf("%s: %s %d -> %d bytes", op, format, len(data), buf.Len())
	return buf.Bytes(), nil
}

// capDimensions downscales img so the larger dimension equals the
// configured cap, preserving aspect ratio. Dimensions are floored, so
// the larger side lands exactly on the cap.
func (e *Engine) capDimensions(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	limit := e.cfg.MaxDimension
	if width <= limit && height <= limit {
		return img
	}

	largest := width
	if height > largest {
		largest = height
	}
	scale := float64(limit) / float64(largest)
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	return imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
}
