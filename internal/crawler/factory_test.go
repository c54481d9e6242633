package crawler

import (
	"context"
	"errors"
	"testing"

	"shield-go/internal/config"
	"shield-go/internal/imagesource"
	"shield-go/internal/model"
	"shield-go/internal/shield"
)

func TestNewCrawlerFromConfig(t *testing.T) {
	decoder := imagesource.NewDecoder()
	logger := shield.NewNopLogger()

	t.Run("http", func(t *testing.T) {
		c, err := NewCrawlerFromConfig(config.CrawlerConfig{Type: "http", TimeoutSeconds: 5, MaxImages: 3}, decoder, 10, logger)
		if err != nil {
			t.Fatalf("NewCrawlerFromConfig() error = %v", err)
		}
		hc, ok := c.(*HTTPCrawler)
		if !ok {
			t.Fatalf("crawler type = %T, want *HTTPCrawler", c)
		}
		if hc.opts.MaxImages != 3 || hc.opts.Threshold != 10 {
			t.Errorf("opts = %+v", hc.opts)
		}
		if hc.opts.CacheSize != DefaultCacheSize || hc.opts.UserAgent != DefaultUserAgent {
			t.Errorf("defaults not applied: %+v", hc.opts)
		}
	})

	t.Run("none", func(t *testing.T) {
		c, err := NewCrawlerFromConfig(config.CrawlerConfig{Type: "none"}, decoder, 10, logger)
		if err != nil {
			t.Fatalf("NewCrawlerFromConfig() error = %v", err)
		}
		_, err = c.Crawl(context.Background(), model.MonitoringTarget{}, model.ProtectedAsset{})
		if !errors.Is(err, ErrCrawlingDisabled) {
			t.Errorf("Crawl() error = %v, want ErrCrawlingDisabled", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := NewCrawlerFromConfig(config.CrawlerConfig{Type: "ftp"}, decoder, 10, logger); err == nil {
			t.Error("NewCrawlerFromConfig() expected error")
		}
	})
}
