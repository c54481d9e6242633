// Package imagesource decodes image files into pixel data for hashing.
package imagesource

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder

	"shield-go/internal/phash"
	"shield-go/internal/shield"
)

const (
	// DefaultMaxBytes bounds the encoded size of a single image.
	DefaultMaxBytes = 64 << 20

	// DefaultMaxPixels bounds the decoded size of a single image.
	DefaultMaxPixels = 64 << 20
)

// Decoder decodes any registered image format. Inputs larger than MaxBytes,
// or whose header reports more than MaxPixels pixels, are rejected before
// pixel data is decoded.
type Decoder struct {
	MaxBytes  int64
	MaxPixels int
}

// NewDecoder creates a Decoder with the default limits.
func NewDecoder() *Decoder {
	return &Decoder{MaxBytes: DefaultMaxBytes, MaxPixels: DefaultMaxPixels}
}

// Decode reads one image from r. Every failure is an *phash.ImageDecodeError.
func (d *Decoder) Decode(r io.Reader) (image.Image, error) {
	limit := d.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, &phash.ImageDecodeError{Err: err}
	}
	if len(data) == 0 {
		return nil, &phash.ImageDecodeError{Err: errors.New("empty input")}
	}
	if int64(len(data)) > limit {
		return nil, &phash.ImageDecodeError{Err: fmt.Errorf("image larger than %d bytes", limit)}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &phash.ImageDecodeError{Err: err}
	}
	if d.MaxPixels > 0 && cfg.Width*cfg.Height > d.MaxPixels {
		return nil, &phash.ImageDecodeError{Err: fmt.Errorf("%s image too large: %dx%d", format, cfg.Width, cfg.Height)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &phash.ImageDecodeError{Err: err}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &phash.ImageDecodeError{Err: errors.New("image has no pixels")}
	}
	return img, nil
}

// Compile-time check that Decoder implements shield.ImageDecoder interface
var _ shield.ImageDecoder = (*Decoder)(nil)
