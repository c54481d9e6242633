package testutil

import (
	"context"
	"fmt"
	"sync"

	"shield-go/internal/model"
	"shield-go/internal/shield"
)

// CrawlCall records one invocation of StaticCrawler.
type CrawlCall struct {
	Target string
	Asset  string
}

// StaticCrawler returns preconfigured results keyed by (target name, asset id).
// Pairs without a configured result report no match. Safe for concurrent use.
type StaticCrawler struct {
	mu      sync.Mutex
	results map[CrawlCall]model.CrawlResult
	errs    map[CrawlCall]error
	calls   []CrawlCall

	// OnCrawl, if set, runs before each result is returned.
	OnCrawl func(call CrawlCall)
}

// NewStaticCrawler creates a crawler that finds nothing until configured.
func NewStaticCrawler() *StaticCrawler {
	return &StaticCrawler{
		results: make(map[CrawlCall]model.CrawlResult),
		errs:    make(map[CrawlCall]error),
	}
}

// Match makes the pair (target, asset) report a re-upload.
func (c *StaticCrawler) Match(target, assetID string, similarity int) *StaticCrawler {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[CrawlCall{target, assetID}] = model.CrawlResult{
		Found:      true,
		Similarity: similarity,
		URL:        fmt.Sprintf("https://%s.example/%s.jpg", target, assetID),
	}
	return c
}

// Fail makes the pair (target, asset) return err.
func (c *StaticCrawler) Fail(target, assetID string, err error) *StaticCrawler {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[CrawlCall{target, assetID}] = err
	return c
}

// Calls returns the pairs crawled so far, in order.
func (c *StaticCrawler) Calls() []CrawlCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CrawlCall(nil), c.calls...)
}

func (c *StaticCrawler) Crawl(ctx context.Context, target model.MonitoringTarget, asset model.ProtectedAsset) (model.CrawlResult, error) {
	call := CrawlCall{Target: target.Name, Asset: asset.ID}

	c.mu.Lock()
	c.calls = append(c.calls, call)
	result, err := c.results[call], c.errs[call]
	hook := c.OnCrawl
	c.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err := ctx.Err(); err != nil {
		return model.CrawlResult{}, err
	}
	if err != nil {
		return model.CrawlResult{}, err
	}
	return result, nil
}

// Compile-time check that StaticCrawler implements shield.Crawler interface
var _ shield.Crawler = (*StaticCrawler)(nil)
