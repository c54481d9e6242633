// Package crawler provides the adapters that look for re-uploads of
// protected assets on monitoring targets.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"shield-go/internal/model"
	"shield-go/internal/phash"
	"shield-go/internal/shield"
)

// Defaults for HTTPCrawler options left at zero.
const (
	DefaultUserAgent     = "shield-crawler/1.0"
	DefaultTimeout       = 20 * time.Second
	DefaultMaxImages     = 25
	DefaultMaxPageBytes  = 2 << 20
	DefaultMaxImageBytes = 10 << 20
	DefaultCacheSize     = 2048
	DefaultCacheTTL      = 6 * time.Hour
)

var (
	remoteHashCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_crawler_hash_cache_total",
			Help: "Remote image hash cache lookups, by result (hit, miss).",
		},
		[]string{"result"},
	)

	remoteImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shield_crawler_images_total",
			Help: "Remote images fetched by the crawler, by outcome (hashed, failed).",
		},
		[]string{"outcome"},
	)
)

// Options tunes an HTTPCrawler.
type Options struct {
	UserAgent     string
	Timeout       time.Duration // per request
	MaxImages     int           // images inspected per target page
	MaxPageBytes  int64
	MaxImageBytes int64
	CacheSize     int
	CacheTTL      time.Duration
	Threshold     int // maximum pHash distance that counts as a match
}

// HTTPCrawler fetches a target's page, hashes the images it references and
// compares them with the asset's pHash. Remote hashes are cached by URL.
type HTTPCrawler struct {
	client  *http.Client
	decoder shield.ImageDecoder
	logger  shield.Logger
	opts    Options
	cache   *expirable.LRU[string, phash.Hash]
}

// NewHTTPCrawler creates an HTTPCrawler. A nil client uses a client with opts.Timeout.
func NewHTTPCrawler(client *http.Client, decoder shield.ImageDecoder, logger shield.Logger, opts Options) *HTTPCrawler {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = DefaultMaxImages
	}
	if opts.MaxPageBytes <= 0 {
		opts.MaxPageBytes = DefaultMaxPageBytes
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPCrawler{
		client:  client,
		decoder: decoder,
		logger:  logger,
		opts:    opts,
		cache:   expirable.NewLRU[string, phash.Hash](opts.CacheSize, nil, opts.CacheTTL),
	}
}

// Crawl reports the most similar image on the target page whose pHash lies
// within the threshold of the asset's pHash. Images that cannot be fetched
// or decoded are skipped; failing to fetch the page itself is an error.
func (c *HTTPCrawler) Crawl(ctx context.Context, target model.MonitoringTarget, asset model.ProtectedAsset) (model.CrawlResult, error) {
	if target.URL == "" {
		return model.CrawlResult{}, fmt.Errorf("target %s has no url", target.Name)
	}
	want, err := phash.FromResult(asset.Hashes.PHash)
	if err != nil {
		return model.CrawlResult{}, fmt.Errorf("asset %s: %w", asset.ID, err)
	}

	images, err := c.pageImages(ctx, target.URL)
	if err != nil {
		return model.CrawlResult{}, err
	}

	var best model.CrawlResult
	for _, imageURL := range images {
		if err := ctx.Err(); err != nil {
			return model.CrawlResult{}, err
		}
		got, err := c.remoteHash(ctx, imageURL)
		if err != nil {
			if ctx.Err() != nil {
				return model.CrawlResult{}, ctx.Err()
			}
			c.logger.Debug("skipping remote image", "target", target.Name, "url", imageURL, "error", err)
			continue
		}
		cmp, err := phash.Compare(want, got, c.opts.Threshold)
		if err != nil {
			return model.CrawlResult{}, err
		}
		if cmp.IsMatch && cmp.Similarity > best.Similarity {
			best = model.CrawlResult{Found: true, Similarity: cmp.Similarity, URL: imageURL}
		}
	}
	return best, nil
}

// pageImages fetches pageURL and returns up to MaxImages image URLs from it.
func (c *HTTPCrawler) pageImages(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing target url: %w", err)
	}

	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	urls := extractImageURLs(io.LimitReader(body, c.opts.MaxPageBytes), base)
	if len(urls) > c.opts.MaxImages {
		urls = urls[:c.opts.MaxImages]
	}
	return urls, nil
}

// remoteHash returns the pHash of the image at imageURL, from cache when possible.
func (c *HTTPCrawler) remoteHash(ctx context.Context, imageURL string) (phash.Hash, error) {
	if h, ok := c.cache.Get(imageURL); ok {
		remoteHashCacheTotal.WithLabelValues("hit").Inc()
		return h, nil
	}
	remoteHashCacheTotal.WithLabelValues("miss").Inc()

	body, err := c.get(ctx, imageURL)
	if err != nil {
		remoteImagesTotal.WithLabelValues("failed").Inc()
		return phash.Hash{}, err
	}
	defer body.Close()

	img, err := c.decoder.Decode(io.LimitReader(body, c.opts.MaxImageBytes))
	if err != nil {
		remoteImagesTotal.WithLabelValues("failed").Inc()
		return phash.Hash{}, err
	}
	h, err := phash.Compute(img, model.PHash)
	if err != nil {
		remoteImagesTotal.WithLabelValues("failed").Inc()
		return phash.Hash{}, err
	}

	remoteImagesTotal.WithLabelValues("hashed").Inc()
	c.cache.Add(imageURL, h)
	return h, nil
}

// errStatus reports a non-2xx response.
var errStatus = errors.New("unexpected http status")

func (c *HTTPCrawler) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: %w %d", rawURL, errStatus, resp.StatusCode)
	}
	return resp.Body, nil
}

// Compile-time check that HTTPCrawler implements shield.Crawler interface
var _ shield.Crawler = (*HTTPCrawler)(nil)
