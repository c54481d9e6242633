package phash

import (
	"errors"
	"testing"

	"shield-go/internal/model"
)

func mustParse(t *testing.T, s string, algo model.Algorithm) Hash {
	t.Helper()
	h, err := ParseHex(s, algo)
	if err != nil {
		t.Fatalf("ParseHex(%q) error = %v", s, err)
	}
	return h
}

func TestCompareHex_OppositeHashes(t *testing.T) {
	for threshold := 0; threshold < 64; threshold++ {
		got, err := CompareHex("0000000000000000", "FFFFFFFFFFFFFFFF", model.PHash, threshold)
		if err != nil {
			t.Fatalf("CompareHex() error = %v", err)
		}
		if got.Distance != 64 || got.Similarity != 0 || got.IsMatch {
			t.Fatalf("threshold %d: got %+v, want distance 64, similarity 0, no match", threshold, got)
		}
	}
}

func TestCompareHex_IdenticalHashes(t *testing.T) {
	for _, x := range []string{"0000000000000000", "FFFFFFFFFFFFFFFF", "8F3A00C1D2E4B567", "0123456789abcdef"} {
		got, err := CompareHex(x, x, model.AHash, 0)
		if err != nil {
			t.Fatalf("CompareHex(%s) error = %v", x, err)
		}
		if got.Distance != 0 || got.Similarity != 100 || !got.IsMatch {
			t.Errorf("CompareHex(%s, %s) = %+v, want distance 0, similarity 100, match", x, x, got)
		}
	}
}

func TestHammingDistance_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"0000000000000000", "0000000000000001"},
		{"F0F0F0F0F0F0F0F0", "0F0F0F0F0F0F0F0F"},
		{"8F3A00C1D2E4B567", "8F3A00C1D2E4B566"},
		{"123456789ABCDEF0", "FEDCBA9876543210"},
	}
	for _, p := range pairs {
		a := mustParse(t, p[0], model.DHash)
		b := mustParse(t, p[1], model.DHash)
		ab, err := HammingDistance(a, b)
		if err != nil {
			t.Fatalf("HammingDistance() error = %v", err)
		}
		ba, _ := HammingDistance(b, a)
		if ab != ba {
			t.Errorf("HammingDistance(%s,%s) = %d but reversed = %d", p[0], p[1], ab, ba)
		}
		self, _ := HammingDistance(a, a)
		if self != 0 {
			t.Errorf("HammingDistance(%s,%s) = %d, want 0", p[0], p[0], self)
		}
	}
}

func TestCompare_ThresholdBoundary(t *testing.T) {
	a := mustParse(t, "00000000000000FF", model.PHash) // 8 bits away from zero
	b := mustParse(t, "0000000000000000", model.PHash)

	tests := []struct {
		threshold int
		want      bool
	}{
		{threshold: 0, want: false},
		{threshold: 7, want: false},
		{threshold: 8, want: true},
		{threshold: 10, want: true},
	}
	for _, tt := range tests {
		got, err := Compare(a, b, tt.threshold)
		if err != nil {
			t.Fatalf("Compare() error = %v", err)
		}
		if got.IsMatch != tt.want {
			t.Errorf("Compare(threshold=%d).IsMatch = %v, want %v", tt.threshold, got.IsMatch, tt.want)
		}
		if got.Similarity != 88 {
			t.Errorf("Similarity = %d, want 88", got.Similarity)
		}
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	prev := 101
	for d := 0; d <= 64; d++ {
		s := Similarity(d)
		if s < 0 || s > 100 {
			t.Fatalf("Similarity(%d) = %d, out of [0,100]", d, s)
		}
		if s > prev {
			t.Fatalf("Similarity(%d) = %d increased from %d", d, s, prev)
		}
		if (s == 100) != (d == 0) {
			t.Errorf("Similarity(%d) = %d: 100 must only occur at distance 0", d, s)
		}
		if (s == 0) != (d == 64) {
			t.Errorf("Similarity(%d) = %d: 0 must only occur at distance 64", d, s)
		}
		prev = s
	}
}

func TestCompare_Errors(t *testing.T) {
	t.Run("algorithm mismatch", func(t *testing.T) {
		a := mustParse(t, "0000000000000000", model.AHash)
		b := mustParse(t, "0000000000000000", model.PHash)
		if _, err := Compare(a, b, 10); !errors.Is(err, ErrAlgorithmMismatch) {
			t.Errorf("Compare() error = %v, want ErrAlgorithmMismatch", err)
		}
	})

	invalid := []string{"", "123", "00000000000000000", "GGGGGGGGGGGGGGGG", "0x00000000000000"}
	for _, s := range invalid {
		t.Run("invalid "+s, func(t *testing.T) {
			if _, err := CompareHex(s, "0000000000000000", model.PHash, 10); !errors.Is(err, ErrInvalidHash) {
				t.Errorf("CompareHex(%q) error = %v, want ErrInvalidHash", s, err)
			}
		})
	}
}

func TestHash_StringRoundTrip(t *testing.T) {
	h := Hash{Value: 0xAB, Algorithm: model.AHash}
	if got := h.String(); got != "00000000000000AB" {
		t.Errorf("String() = %q, want zero-padded uppercase", got)
	}
	parsed, err := FromResult(h.Result(fixedClock{}.Now()))
	if err != nil {
		t.Fatalf("FromResult() error = %v", err)
	}
	if parsed != h {
		t.Errorf("FromResult() = %+v, want %+v", parsed, h)
	}
}

func TestThresholds_For(t *testing.T) {
	th := DefaultThresholds()
	if th.For(model.AHash) != 5 || th.For(model.DHash) != 10 || th.For(model.PHash) != 10 {
		t.Errorf("DefaultThresholds() = %+v", th)
	}
}
