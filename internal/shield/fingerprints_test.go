package shield_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"shield-go/internal/model"
	"shield-go/internal/phash"
	"shield-go/internal/shield"
	"shield-go/internal/testutil"
)

var day0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustHash(t *testing.T, hex string) phash.Hash {
	t.Helper()
	h, err := phash.ParseHex(hex, model.PHash)
	if err != nil {
		t.Fatalf("ParseHex(%q) error = %v", hex, err)
	}
	return h
}

func TestFingerprintVault_Store(t *testing.T) {
	t.Run("stores and returns asset", func(t *testing.T) {
		v := testutil.NewTestFingerprintVault()
		asset := testutil.NewAsset("a1", "00000000000000FF", day0)

		if err := v.Store(asset); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		got, err := v.Get("a1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got == nil {
			t.Fatal("Get() returned nil")
		}
		if got.Hashes.PHash.Hash != "00000000000000FF" {
			t.Errorf("PHash = %q, want %q", got.Hashes.PHash.Hash, "00000000000000FF")
		}
	})

	t.Run("is an upsert by id", func(t *testing.T) {
		v := testutil.NewTestFingerprintVault()
		asset := testutil.NewAsset("a1", "0000000000000000", day0)
		if err := v.Store(asset); err != nil {
			t.Fatalf("first Store() error = %v", err)
		}
		asset.Filename = "renamed.png"
		if err := v.Store(asset); err != nil {
			t.Fatalf("second Store() error = %v", err)
		}

		all, err := v.All()
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("len(All()) = %d, want 1", len(all))
		}
		if all[0].Filename != "renamed.png" {
			t.Errorf("Filename = %q, want %q", all[0].Filename, "renamed.png")
		}
	})

	tests := []struct {
		name   string
		mutate func(a *model.ProtectedAsset)
	}{
		{"missing id", func(a *model.ProtectedAsset) { a.ID = "" }},
		{"missing dHash", func(a *model.ProtectedAsset) { a.Hashes.DHash = model.HashResult{} }},
		{"wrong algorithm in slot", func(a *model.ProtectedAsset) { a.Hashes.AHash.Algorithm = model.PHash }},
		{"malformed hash", func(a *model.ProtectedAsset) { a.Hashes.PHash.Hash = "XYZ" }},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			v := testutil.NewTestFingerprintVault()
			asset := testutil.NewAsset("a1", "0000000000000000", day0)
			tt.mutate(asset)

			if err := v.Store(asset); err == nil {
				t.Fatal("Store() expected error")
			}
			all, _ := v.All()
			if len(all) != 0 {
				t.Errorf("len(All()) = %d, want 0", len(all))
			}
		})
	}
}

func TestFingerprintVault_All_Order(t *testing.T) {
	v := testutil.NewTestFingerprintVault()
	for _, a := range []*model.ProtectedAsset{
		testutil.NewAsset("c", "0000000000000000", day0.Add(time.Hour)),
		testutil.NewAsset("b", "0000000000000000", day0),
		testutil.NewAsset("a", "0000000000000000", day0),
	} {
		if err := v.Store(a); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}

	all, err := v.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	var ids []string
	for _, a := range all {
		ids = append(ids, a.ID)
	}
	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids = %v, want %v", ids, want)
			break
		}
	}
}

func TestFingerprintVault_SearchMatches(t *testing.T) {
	t.Run("empty vault returns empty slice", func(t *testing.T) {
		v := testutil.NewTestFingerprintVault()
		matches, err := v.SearchMatches(mustHash(t, "0000000000000000"), 10)
		if err != nil {
			t.Fatalf("SearchMatches() error = %v", err)
		}
		if matches == nil || len(matches) != 0 {
			t.Errorf("SearchMatches() = %#v, want empty non-nil slice", matches)
		}
	})

	t.Run("filters by threshold and orders by similarity", func(t *testing.T) {
		v := testutil.NewTestFingerprintVault()
		for _, a := range []*model.ProtectedAsset{
			testutil.NewAsset("far", "FFFFFFFFFFFFFFFF", day0),
			testutil.NewAsset("near", "000000000000000F", day0),
			testutil.NewAsset("exact-b", "0000000000000000", day0),
			testutil.NewAsset("exact-a", "0000000000000000", day0),
		} {
			if err := v.Store(a); err != nil {
				t.Fatalf("Store() error = %v", err)
			}
		}

		matches, err := v.SearchMatches(mustHash(t, "0000000000000000"), 10)
		if err != nil {
			t.Fatalf("SearchMatches() error = %v", err)
		}

		want := []model.VaultMatch{
			{AssetID: "exact-a", Similarity: 100, Distance: 0},
			{AssetID: "exact-b", Similarity: 100, Distance: 0},
			{AssetID: "near", Similarity: 94, Distance: 4},
		}
		if len(matches) != len(want) {
			t.Fatalf("len(matches) = %d, want %d: %+v", len(matches), len(want), matches)
		}
		for i, w := range want {
			got := matches[i]
			if got.AssetID != w.AssetID || got.Similarity != w.Similarity || got.Distance != w.Distance {
				t.Errorf("matches[%d] = %+v, want %+v", i, got, w)
			}
			if !got.StoredAt.Equal(day0) {
				t.Errorf("matches[%d].StoredAt = %v, want %v", i, got.StoredAt, day0)
			}
		}
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		v := testutil.NewTestFingerprintVault()
		if err := v.Store(testutil.NewAsset("a", "000000000000000F", day0)); err != nil {
			t.Fatalf("Store() error = %v", err)
		}

		for _, tc := range []struct {
			threshold int
			want      int
		}{{3, 0}, {4, 1}} {
			matches, err := v.SearchMatches(mustHash(t, "0000000000000000"), tc.threshold)
			if err != nil {
				t.Fatalf("SearchMatches() error = %v", err)
			}
			if len(matches) != tc.want {
				t.Errorf("threshold %d: len(matches) = %d, want %d", tc.threshold, len(matches), tc.want)
			}
		}
	})
}

func TestFingerprintVault_Update(t *testing.T) {
	v := testutil.NewTestFingerprintVault()
	if err := v.Store(testutil.NewAsset("a1", "0000000000000000", day0)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	updated, err := v.Update("a1", func(a *model.ProtectedAsset) { a.MatchCount += 2 })
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.MatchCount != 2 {
		t.Errorf("MatchCount = %d, want 2", updated.MatchCount)
	}

	got, _ := v.Get("a1")
	if got.MatchCount != 2 {
		t.Errorf("stored MatchCount = %d, want 2", got.MatchCount)
	}

	if _, err := v.Update("missing", func(*model.ProtectedAsset) {}); !errors.Is(err, shield.ErrAssetNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrAssetNotFound", err)
	}
}

func TestFingerprintVault_Delete(t *testing.T) {
	t.Run("removes record and thumbnail", func(t *testing.T) {
		v := testutil.NewTestFingerprintVault()
		asset := testutil.NewAsset("a1", "0000000000000000", day0)
		asset.Thumbnail = "a1.png.age"
		if err := v.PutThumbnail(asset.Thumbnail, bytes.NewReader([]byte("sealed")), 6); err != nil {
			t.Fatalf("PutThumbnail() error = %v", err)
		}
		if err := v.Store(asset); err != nil {
			t.Fatalf("Store() error = %v", err)
		}

		if err := v.Delete("a1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		got, err := v.Get("a1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != nil {
			t.Error("asset still present after Delete()")
		}
		var buf bytes.Buffer
		if err := v.GetThumbnail("a1.png.age", &buf); err == nil {
			t.Error("thumbnail still present after Delete()")
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		v := testutil.NewTestFingerprintVault()
		if err := v.Delete("missing"); !errors.Is(err, shield.ErrAssetNotFound) {
			t.Errorf("Delete() error = %v, want ErrAssetNotFound", err)
		}
	})
}
