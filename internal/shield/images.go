package shield

import (
	"image"
	"io"
)

// ImageDecoder turns encoded image bytes into pixel data.
// Failures must be reported as *phash.ImageDecodeError.
type ImageDecoder interface {
	Decode(r io.Reader) (image.Image, error)
}
