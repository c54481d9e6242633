package phash

import (
	"errors"
	"image"
	"image/color"
	"math/bits"
	"testing"
	"time"

	"shield-go/internal/model"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func uniformImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// patternImage has enough structure for every algorithm to produce a mix of bits.
func patternImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*7 + y*13 + (x*y)%17) % 256)
			img.Set(x, y, color.RGBA{R: v, G: uint8(255 - int(v)), B: uint8(x * 4 % 256), A: 255})
		}
	}
	return img
}

func TestCompute_UniformImageAverageHashIsZero(t *testing.T) {
	for _, c := range []color.Color{color.White, color.Black, color.RGBA{R: 120, G: 30, B: 200, A: 255}} {
		h, err := Compute(uniformImage(8, 8, c), model.AHash)
		if err != nil {
			t.Fatalf("Compute() error = %v", err)
		}
		if h.String() != "0000000000000000" {
			t.Errorf("aHash of uniform %v = %s, want 0000000000000000", c, h)
		}
	}
}

func TestCompute_UniformImageDifferenceHashIsZero(t *testing.T) {
	h, err := Compute(uniformImage(9, 8, color.Gray{Y: 90}), model.DHash)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if h.Value != 0 {
		t.Errorf("dHash of uniform image = %s, want 0000000000000000", h)
	}
}

func TestCompute_AverageHashHalfSplit(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x < 4 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	h, err := Compute(img, model.AHash)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got, want := h.String(), "0F0F0F0F0F0F0F0F"; got != want {
		t.Errorf("aHash = %s, want %s", got, want)
	}
}

func TestCompute_DifferenceHashDescendingRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 9, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 9; x++ {
			v := uint8(240 - x*25)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	h, err := Compute(img, model.DHash)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got, want := h.String(), "FFFFFFFFFFFFFFFF"; got != want {
		t.Errorf("dHash = %s, want %s", got, want)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	img := patternImage(97, 61)
	for _, algo := range model.Algorithms() {
		t.Run(string(algo), func(t *testing.T) {
			first, err := Compute(img, algo)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			for i := 0; i < 5; i++ {
				again, err := Compute(img, algo)
				if err != nil {
					t.Fatalf("Compute() error = %v", err)
				}
				if again != first {
					t.Fatalf("Compute() call %d = %s, want %s", i, again, first)
				}
			}
		})
	}
}

func TestCompute_PerceptualHashShape(t *testing.T) {
	h, err := Compute(patternImage(128, 128), model.PHash)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if h.Value&1 != 0 {
		t.Errorf("pHash %s: padding bit is set", h)
	}
	// At most half of the 63 coefficients can be strictly above their median.
	if n := bits.OnesCount64(h.Value); n > 32 {
		t.Errorf("pHash %s has %d bits set, want <= 32", h, n)
	}
}

func TestCompute_Errors(t *testing.T) {
	t.Run("nil image", func(t *testing.T) {
		_, err := Compute(nil, model.PHash)
		var decodeErr *ImageDecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("Compute(nil) error = %v, want ImageDecodeError", err)
		}
	})

	t.Run("empty image", func(t *testing.T) {
		_, err := Compute(image.NewRGBA(image.Rect(0, 0, 0, 0)), model.AHash)
		var decodeErr *ImageDecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("Compute(empty) error = %v, want ImageDecodeError", err)
		}
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := Compute(patternImage(8, 8), model.Algorithm("wHash"))
		if !errors.Is(err, ErrUnknownAlgorithm) {
			t.Fatalf("Compute() error = %v, want ErrUnknownAlgorithm", err)
		}
	})
}

func TestEngine_HashAll(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(fixedClock{t: ts})

	fp, err := e.HashAll(patternImage(40, 30))
	if err != nil {
		t.Fatalf("HashAll() error = %v", err)
	}
	if err := fp.Validate(); err != nil {
		t.Fatalf("fingerprint invalid: %v", err)
	}

	for _, algo := range model.Algorithms() {
		r := fp.Get(algo)
		if r.Algorithm != algo {
			t.Errorf("%s slot holds %s", algo, r.Algorithm)
		}
		if r.Size != model.HashSize {
			t.Errorf("%s Size = %q, want %q", algo, r.Size, model.HashSize)
		}
		if !r.Timestamp.Equal(ts) {
			t.Errorf("%s Timestamp = %v, want %v", algo, r.Timestamp, ts)
		}
		single, err := e.Hash(patternImage(40, 30), algo)
		if err != nil {
			t.Fatalf("Hash(%s) error = %v", algo, err)
		}
		if single.Hash != r.Hash {
			t.Errorf("Hash(%s) = %s, HashAll gave %s", algo, single.Hash, r.Hash)
		}
	}
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{name: "landscape", w: 400, h: 200, wantW: 128, wantH: 64},
		{name: "portrait", w: 100, h: 300, wantW: 42, wantH: 128},
		{name: "already small", w: 50, h: 20, wantW: 50, wantH: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Thumbnail(patternImage(tt.w, tt.h), 128).Bounds()
			if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
				t.Errorf("Thumbnail() size = %dx%d, want %dx%d", got.Dx(), got.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}
