package shield

import (
	"context"

	"shield-go/internal/model"
)

// Crawler checks one monitoring target for re-uploads of one asset.
// Implementations must honour ctx cancellation.
type Crawler interface {
	Crawl(ctx context.Context, target model.MonitoringTarget, asset model.ProtectedAsset) (model.CrawlResult, error)
}

// CrawlerFunc adapts a plain function to the Crawler interface.
type CrawlerFunc func(ctx context.Context, target model.MonitoringTarget, asset model.ProtectedAsset) (model.CrawlResult, error)

func (f CrawlerFunc) Crawl(ctx context.Context, target model.MonitoringTarget, asset model.ProtectedAsset) (model.CrawlResult, error) {
	return f(ctx, target, asset)
}
