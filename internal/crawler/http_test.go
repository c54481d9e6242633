package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"shield-go/internal/imagesource"
	"shield-go/internal/model"
	"shield-go/internal/phash"
	"shield-go/internal/shield"
	"shield-go/internal/testutil"
)

type fakeSite struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
	files map[string][]byte
}

func newFakeSite(t *testing.T) (*fakeSite, *httptest.Server) {
	t.Helper()
	site := &fakeSite{
		hits:  make(map[string]int),
		pages: make(map[string]string),
		files: make(map[string][]byte),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		page, isPage := site.pages[r.URL.Path]
		file, isFile := site.files[r.URL.Path]
		site.mu.Unlock()

		switch {
		case r.URL.Path == "/down":
			w.WriteHeader(http.StatusInternalServerError)
		case isPage:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, page)
		case isFile:
			w.Header().Set("Content-Type", "image/png")
			w.Write(file)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return site, server
}

func (s *fakeSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newTestCrawler(opts Options) *HTTPCrawler {
	opts.Threshold = 10
	return NewHTTPCrawler(nil, imagesource.NewDecoder(), shield.NewNopLogger(), opts)
}

// protectedAsset fingerprints the gradient image served as /img/match.png.
func protectedAsset(t *testing.T) model.ProtectedAsset {
	t.Helper()
	fp, err := phash.NewEngine(nil).HashAll(testutil.GradientImage(64, 64, 0))
	if err != nil {
		t.Fatalf("HashAll() error = %v", err)
	}
	return model.ProtectedAsset{ID: "asset-1", Filename: "cat.png", Hashes: fp, MonitoringEnabled: true}
}

func target(name, pageURL string) model.MonitoringTarget {
	return model.MonitoringTarget{ID: "t-" + name, Name: name, URL: pageURL, Enabled: true}
}

func TestHTTPCrawler_Crawl(t *testing.T) {
	site, server := newFakeSite(t)
	site.files["/img/match.png"] = testutil.EncodePNG(t, testutil.GradientImage(64, 64, 0))
	site.files["/img/other.png"] = testutil.EncodePNG(t, testutil.CheckerImage(64, 64, 8))
	site.files["/img/broken.png"] = []byte("not an image")
	site.pages["/latest"] = `<html><body>
		<img src="/img/broken.png">
		<img src="/img/missing.png">
		<img src="img/other.png">
		<img src="/img/match.png" alt="cat">
	</body></html>`
	site.pages["/clean"] = `<html><body><img src="/img/other.png"></body></html>`
	site.pages["/empty"] = "<html><body><p>nothing here</p></body></html>"
	site.pages["/single"] = `<html><body><img src="/img/match.png"></body></html>`

	t.Run("reports the matching image", func(t *testing.T) {
		c := newTestCrawler(Options{})
		result, err := c.Crawl(context.Background(), target("forum", server.URL+"/latest"), protectedAsset(t))
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}
		if !result.Found {
			t.Fatal("Found = false, want true")
		}
		if result.Similarity != 100 {
			t.Errorf("Similarity = %d, want 100", result.Similarity)
		}
		if result.URL != server.URL+"/img/match.png" {
			t.Errorf("URL = %q, want %q", result.URL, server.URL+"/img/match.png")
		}
	})

	t.Run("no match beyond threshold", func(t *testing.T) {
		c := newTestCrawler(Options{})
		asset := protectedAsset(t)
		h, _ := phash.FromResult(asset.Hashes.PHash)
		asset.Hashes.PHash.Hash = phash.Hash{Value: ^h.Value, Algorithm: model.PHash}.String()

		result, err := c.Crawl(context.Background(), target("forum", server.URL+"/single"), asset)
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}
		if result.Found {
			t.Errorf("Found = true, want false: %+v", result)
		}
	})

	t.Run("caches remote hashes", func(t *testing.T) {
		c := newTestCrawler(Options{})
		before := site.hitCount("/img/match.png")
		for i := 0; i < 3; i++ {
			if _, err := c.Crawl(context.Background(), target("forum", server.URL+"/latest"), protectedAsset(t)); err != nil {
				t.Fatalf("Crawl() error = %v", err)
			}
		}
		if got := site.hitCount("/img/match.png") - before; got != 1 {
			t.Errorf("image fetched %d times, want 1", got)
		}
	})

	t.Run("limits images per page", func(t *testing.T) {
		c := newTestCrawler(Options{MaxImages: 1})
		before := site.hitCount("/img/match.png")
		result, err := c.Crawl(context.Background(), target("forum", server.URL+"/latest"), protectedAsset(t))
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}
		if result.Found {
			t.Error("Found = true, but the matching image is past the limit")
		}
		if site.hitCount("/img/match.png") != before {
			t.Error("image past the limit was fetched")
		}
	})

	t.Run("page without images", func(t *testing.T) {
		c := newTestCrawler(Options{})
		result, err := c.Crawl(context.Background(), target("forum", server.URL+"/empty"), protectedAsset(t))
		if err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}
		if result.Found {
			t.Error("Found = true, want false")
		}
	})

	t.Run("page fetch failure is an error", func(t *testing.T) {
		c := newTestCrawler(Options{})
		_, err := c.Crawl(context.Background(), target("forum", server.URL+"/down"), protectedAsset(t))
		if !errors.Is(err, errStatus) {
			t.Errorf("Crawl() error = %v, want status error", err)
		}
	})

	t.Run("target without url", func(t *testing.T) {
		c := newTestCrawler(Options{})
		if _, err := c.Crawl(context.Background(), target("forum", ""), protectedAsset(t)); err == nil {
			t.Error("Crawl() expected error")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := newTestCrawler(Options{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.Crawl(ctx, target("forum", server.URL+"/clean"), protectedAsset(t)); !errors.Is(err, context.Canceled) {
			t.Errorf("Crawl() error = %v, want context.Canceled", err)
		}
	})

	t.Run("sends user agent", func(t *testing.T) {
		var got string
		ua := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("User-Agent")
			fmt.Fprint(w, "<html></html>")
		}))
		defer ua.Close()

		c := newTestCrawler(Options{UserAgent: "shield-test/0.1"})
		if _, err := c.Crawl(context.Background(), target("ua", ua.URL), protectedAsset(t)); err != nil {
			t.Fatalf("Crawl() error = %v", err)
		}
		if got != "shield-test/0.1" {
			t.Errorf("User-Agent = %q, want %q", got, "shield-test/0.1")
		}
	})
}

func TestExtractImageURLs(t *testing.T) {
	base, _ := url.Parse("https://forum.example/threads/42")
	page := `<html><head>
		<meta property="og:image" content="https://cdn.example/og.jpg">
		<meta name="twitter:image" content="/tw.png">
		<meta name="description" content="/not-an-image">
	</head><body>
		<img src="a.png">
		<img src="/b.png#frag">
		<img src="a.png">
		<img src="data:image/png;base64,AAAA">
		<img src="javascript:alert(1)">
		<img srcset="/c-1x.png 1x, /c-2x.png 2x">
		<IMG SRC="https://other.example/d.gif"/>
	</body></html>`

	got := extractImageURLs(strings.NewReader(page), base)
	want := []string{
		"https://cdn.example/og.jpg",
		"https://forum.example/tw.png",
		"https://forum.example/threads/a.png",
		"https://forum.example/b.png",
		"https://forum.example/c-1x.png",
		"https://other.example/d.gif",
	}
	if len(got) != len(want) {
		t.Fatalf("extractImageURLs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	t.Run("base element", func(t *testing.T) {
		page := `<html><head><base href="https://static.example/assets/"></head><body><img src="e.png"></body></html>`
		got := extractImageURLs(strings.NewReader(page), base)
		if len(got) != 1 || got[0] != "https://static.example/assets/e.png" {
			t.Errorf("extractImageURLs() = %v", got)
		}
	})
}
