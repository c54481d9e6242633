package imagesource

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"shield-go/internal/phash"
)

func sample(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 5), 90, 255})
		}
	}
	return img
}

func TestDecoder_Formats(t *testing.T) {
	src := sample(20, 10)

	tests := []struct {
		name   string
		encode func(w io.Writer, img image.Image) error
	}{
		{"png", png.Encode},
		{"jpeg", func(w io.Writer, img image.Image) error { return jpeg.Encode(w, img, nil) }},
		{"gif", func(w io.Writer, img image.Image) error { return gif.Encode(w, img, nil) }},
		{"bmp", bmp.Encode},
		{"tiff", func(w io.Writer, img image.Image) error { return tiff.Encode(w, img, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, src); err != nil {
				t.Fatalf("encode error = %v", err)
			}

			img, err := NewDecoder().Decode(&buf)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
				t.Errorf("bounds = %v, want 20x10", b)
			}
		})
	}
}

func TestDecoder_Errors(t *testing.T) {
	var big bytes.Buffer
	if err := png.Encode(&big, sample(40, 40)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		decoder *Decoder
		input   io.Reader
	}{
		{"empty input", NewDecoder(), strings.NewReader("")},
		{"not an image", NewDecoder(), strings.NewReader("definitely not pixels")},
		{"truncated png", NewDecoder(), bytes.NewReader(big.Bytes()[:40])},
		{"too many pixels", &Decoder{MaxPixels: 100}, bytes.NewReader(big.Bytes())},
		{"too many bytes", &Decoder{MaxBytes: 16}, bytes.NewReader(big.Bytes())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.decoder.Decode(tt.input)
			var decodeErr *phash.ImageDecodeError
			if !errors.As(err, &decodeErr) {
				t.Errorf("Decode() error = %v, want *ImageDecodeError", err)
			}
		})
	}
}
