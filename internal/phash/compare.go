package phash

import (
	"fmt"
	"math"
	"math/bits"

	"shield-go/internal/model"
)

// Bits is the width of every hash produced by this package.
const Bits = 64

// Comparison is the outcome of comparing two hashes under a threshold.
type Comparison struct {
	Distance   int  `json:"distance"`
	Similarity int  `json:"similarity"`
	IsMatch    bool `json:"isMatch"`
}

// HammingDistance counts the differing bits of a and b.
// Both hashes must come from the same algorithm.
func HammingDistance(a, b Hash) (int, error) {
	if a.Algorithm != b.Algorithm {
		return 0, fmt.Errorf("%w: %s vs %s", ErrAlgorithmMismatch, a.Algorithm, b.Algorithm)
	}
	return bits.OnesCount64(a.Value ^ b.Value), nil
}

// Similarity maps a distance in [0,64] to a percentage in [0,100].
func Similarity(distance int) int {
	return int(math.Round((1 - float64(distance)/Bits) * 100))
}

// Compare reports distance, similarity and whether distance <= threshold.
func Compare(a, b Hash, threshold int) (Comparison, error) {
	d, err := HammingDistance(a, b)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{
		Distance:   d,
		Similarity: Similarity(d),
		IsMatch:    d <= threshold,
	}, nil
}

// CompareHex parses two hex hashes of the same algorithm and compares them.
func CompareHex(a, b string, algo model.Algorithm, threshold int) (Comparison, error) {
	ha, err := ParseHex(a, algo)
	if err != nil {
		return Comparison{}, err
	}
	hb, err := ParseHex(b, algo)
	if err != nil {
		return Comparison{}, err
	}
	return Compare(ha, hb, threshold)
}

// Thresholds holds the maximum match distance for each algorithm.
type Thresholds struct {
	AHash int
	DHash int
	PHash int
}

// DefaultThresholds returns the recommended policy: aHash is coarse and gets
// a tight threshold, dHash and pHash tolerate more perturbation.
func DefaultThresholds() Thresholds {
	return Thresholds{AHash: 5, DHash: 10, PHash: 10}
}

// For returns the threshold configured for algo.
func (t Thresholds) For(algo model.Algorithm) int {
	switch algo {
	case model.AHash:
		return t.AHash
	case model.DHash:
		return t.DHash
	default:
		return t.PHash
	}
}
