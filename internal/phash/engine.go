package phash

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"time"

	"shield-go/internal/model"
)

// Clock supplies the timestamp stamped on each HashResult.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Engine renders perceptual hashes as model.HashResult values.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	clock Clock
}

// NewEngine creates an Engine. A nil clock uses the system time.
func NewEngine(clock Clock) *Engine {
	if clock == nil {
		clock = systemClock{}
	}
	return &Engine{clock: clock}
}

// Hash computes a single algorithm over img.
func (e *Engine) Hash(img image.Image, algo model.Algorithm) (model.HashResult, error) {
	h, err := Compute(img, algo)
	if err != nil {
		return model.HashResult{}, err
	}
	return h.Result(e.clock.Now()), nil
}

// HashAll computes aHash, dHash and pHash over img with a shared timestamp.
func (e *Engine) HashAll(img image.Image) (model.Fingerprint, error) {
	ts := e.clock.Now()
	results := make([]model.HashResult, 0, 3)
	for _, algo := range model.Algorithms() {
		h, err := Compute(img, algo)
		if err != nil {
			return model.Fingerprint{}, err
		}
		results = append(results, h.Result(ts))
	}
	return model.NewFingerprint(results...)
}

// Compute derives the 64-bit hash of img with the given algorithm.
// The result depends only on pixel data.
func Compute(img image.Image, algo model.Algorithm) (Hash, error) {
	if img == nil {
		return Hash{}, &ImageDecodeError{Err: errors.New("no pixel data")}
	}
	if img.Bounds().Empty() {
		return Hash{}, &ImageDecodeError{Err: fmt.Errorf("empty bounds %v", img.Bounds())}
	}

	var v uint64
	switch algo {
	case model.AHash:
		v = averageHash(img)
	case model.DHash:
		v = differenceHash(img)
	case model.PHash:
		v = perceptualHash(img)
	default:
		return Hash{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
	return Hash{Value: v, Algorithm: algo}, nil
}

// averageHash sets bit i iff sample i is strictly above the mean of the 8×8 grid.
func averageHash(img image.Image) uint64 {
	px := grayscale(img, 8, 8)

	sum := 0
	for _, p := range px {
		sum += p
	}
	mean := float64(sum) / float64(len(px))

	var h uint64
	for _, p := range px {
		h <<= 1
		if float64(p) > mean {
			h |= 1
		}
	}
	return h
}

// differenceHash compares horizontally adjacent samples of a 9×8 grid.
func differenceHash(img image.Image) uint64 {
	const w, rows = 9, 8
	px := grayscale(img, w, rows)

	var h uint64
	for y := 0; y < rows; y++ {
		for x := 0; x < w-1; x++ {
			h <<= 1
			if px[y*w+x] > px[y*w+x+1] {
				h |= 1
			}
		}
	}
	return h
}

const (
	dctSize  = 32
	dctBlock = 8
)

// dctCos[u][x] = cos((2x+1)uπ/64)
var dctCos = func() [dctBlock][dctSize]float64 {
	var t [dctBlock][dctSize]float64
	for u := 0; u < dctBlock; u++ {
		for x := 0; x < dctSize; x++ {
			t[u][x] = math.Cos(float64(2*x+1) * float64(u) * math.Pi / float64(2*dctSize))
		}
	}
	return t
}()

// perceptualHash thresholds the 63 non-DC coefficients of the 8×8
// low-frequency DCT block against their median. The 64th bit is always 0.
func perceptualHash(img image.Image) uint64 {
	px := grayscale(img, dctSize, dctSize)

	// Separable transform: rows first, then columns.
	var rows [dctSize][dctBlock]float64
	for y := 0; y < dctSize; y++ {
		for u := 0; u < dctBlock; u++ {
			var s float64
			for x := 0; x < dctSize; x++ {
				s += float64(px[y*dctSize+x]) * dctCos[u][x]
			}
			rows[y][u] = s
		}
	}

	coeffs := make([]float64, 0, dctBlock*dctBlock-1)
	for v := 0; v < dctBlock; v++ {
		for u := 0; u < dctBlock; u++ {
			if u == 0 && v == 0 {
				continue
			}
			var s float64
			for y := 0; y < dctSize; y++ {
				s += rows[y][u] * dctCos[v][y]
			}
			coeffs = append(coeffs, s)
		}
	}

	sorted := append([]float64(nil), coeffs...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]

	var h uint64
	for _, c := range coeffs {
		h <<= 1
		if c > median {
			h |= 1
		}
	}
	return h << 1
}
