// Package phash derives 64-bit perceptual hashes from raster images and
// compares them by Hamming distance.
package phash

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"shield-go/internal/model"
)

var (
	// ErrInvalidHash is returned when a hash string is not exactly 16 hex digits.
	ErrInvalidHash = errors.New("invalid hash")

	// ErrAlgorithmMismatch is returned when hashes of different algorithms are compared.
	ErrAlgorithmMismatch = errors.New("hash algorithm mismatch")

	// ErrUnknownAlgorithm is returned for algorithms outside aHash, dHash, pHash.
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")
)

// ImageDecodeError reports that a source could not be turned into pixel data.
type ImageDecodeError struct {
	Source string
	Err    error
}

func (e *ImageDecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("decoding image: %v", e.Err)
	}
	return fmt.Sprintf("decoding image %s: %v", e.Source, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// Hash is a 64-bit perceptual hash tagged with the algorithm that produced it.
type Hash struct {
	Value     uint64
	Algorithm model.Algorithm
}

// String renders the hash as 16 uppercase hex digits.
func (h Hash) String() string {
	return fmt.Sprintf("%016X", h.Value)
}

// Result converts h to its rendered form, stamped with ts.
func (h Hash) Result(ts time.Time) model.HashResult {
	return model.HashResult{
		Hash:      h.String(),
		Algorithm: h.Algorithm,
		Size:      model.HashSize,
		Timestamp: ts,
	}
}

// ParseHex parses a 16-digit hex string produced by any of the algorithms.
func ParseHex(s string, algo model.Algorithm) (Hash, error) {
	if !algo.Valid() {
		return Hash{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
	if len(s) != 16 {
		return Hash{}, fmt.Errorf("%w: %q is %d characters, want 16", ErrInvalidHash, s, len(s))
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %q is not hexadecimal", ErrInvalidHash, s)
	}
	return Hash{Value: v, Algorithm: algo}, nil
}

// FromResult parses a stored HashResult.
func FromResult(r model.HashResult) (Hash, error) {
	return ParseHex(r.Hash, r.Algorithm)
}
