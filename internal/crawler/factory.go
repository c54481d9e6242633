package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shield-go/internal/config"
	"shield-go/internal/model"
	"shield-go/internal/shield"
)

// ErrCrawlingDisabled is returned by the crawler used when [crawler] type is "none".
var ErrCrawlingDisabled = errors.New("crawling disabled")

// NewCrawlerFromConfig creates a Crawler from configuration.
func NewCrawlerFromConfig(cfg config.CrawlerConfig, decoder shield.ImageDecoder, threshold int, logger shield.Logger) (shield.Crawler, error) {
	switch cfg.Type {
	case "http", "":
		return NewHTTPCrawler(nil, decoder, logger, Options{
			UserAgent:     cfg.UserAgent,
			Timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxImages:     cfg.MaxImages,
			MaxImageBytes: cfg.MaxImageBytes,
			CacheSize:     cfg.CacheSize,
			CacheTTL:      time.Duration(cfg.CacheTTLSeconds) * time.Second,
			Threshold:     threshold,
		}), nil
	case "none":
		return shield.CrawlerFunc(func(context.Context, model.MonitoringTarget, model.ProtectedAsset) (model.CrawlResult, error) {
			return model.CrawlResult{}, ErrCrawlingDisabled
		}), nil
	default:
		return nil, fmt.Errorf("unknown crawler type: %s", cfg.Type)
	}
}
