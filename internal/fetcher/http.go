package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// HTTPFetcher uses Colly for plain HTTP page fetching.
type HTTPFetcher struct {
	collector  *colly.Collector
	headers    []string
	retry      int
	retryDelay time.Duration
}

// NewHTTPFetcher creates a new Colly-based HTTP fetcher.
func NewHTTPFetcher(cfg Config) (*HTTPFetcher, error) {
	opts := []colly.CollectorOption{
		colly.Async(false), // concurrency is controlled by the crawler
		colly.AllowURLRevisit(),
	}
	if cfg.AllowedDomain != "" {
		opts = append(opts, colly.AllowedDomains(cfg.AllowedDomain, "www."+cfg.AllowedDomain))
	}

	c := colly.NewCollector(opts...)

	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}

	if cfg.RateLimit > 0 {
		if err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: cfg.Parallelism,
			Delay:       cfg.RateLimit,
		}); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	c.IgnoreRobotsTxt = !cfg.RespectRobots

	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}

	if cfg.Proxy != "" {
		if err := c.SetProxy(cfg.Proxy); err != nil {
			return nil, fmt.Errorf("proxy: %w", err)
		}
	}

	if cfg.MaxBodySize > 0 {
		c.MaxBodySize = cfg.MaxBodySize
	}

	return &HTTPFetcher{
		collector:  c,
		headers:    cfg.Headers,
		retry:      cfg.Retry,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (f *HTTPFetcher) Name() string { return ModeHTTP }

// Fetch retrieves targetURL, retrying transient failures up to the
// configured count. Non-2xx responses are reported as *plugin.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (*plugin.PageData, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retry; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &plugin.FetchError{URL: targetURL, Err: ctx.Err()}
			case <-time.After(f.retryDelay * time.Duration(attempt)):
			}
		}

		page, err := f.fetchOnce(ctx, targetURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, targetURL string) (*plugin.PageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, &plugin.FetchError{URL: targetURL, Err: err}
	}

	start := time.Now()
	page := &plugin.PageData{
		URL:         targetURL,
		FinalURL:    targetURL,
		FetcherUsed: ModeHTTP,
		FetchedAt:   start,
	}

	// Clone the collector for this individual fetch so we get clean callbacks
	c := f.collector.Clone()
	c.Context = ctx

	if len(f.headers) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for _, h := range f.headers {
				parts := strings.SplitN(h, ":", 2)
				if len(parts) == 2 {
					r.Headers.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
				}
			}
		})
	}

	c.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.RawHTML = string(r.Body)
		page.FinalURL = r.Request.URL.String()
		page.ContentType = r.Headers.Get("Content-Type")
	})

	var fetchErr *plugin.FetchError
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = &plugin.FetchError{URL: targetURL, Err: err}
		if r != nil {
			fetchErr.StatusCode = r.StatusCode
		}
	})

	err := c.Visit(targetURL)
	c.Wait()
	page.FetchDuration = time.Since(start)

	if fetchErr != nil {
		return nil, fetchErr
	}
	if err != nil {
		return nil, &plugin.FetchError{URL: targetURL, Err: err}
	}
	if page.StatusCode < http.StatusOK || page.StatusCode >= http.StatusMultipleChoices {
		return nil, &plugin.FetchError{URL: targetURL, StatusCode: page.StatusCode, Err: errors.New(http.StatusText(page.StatusCode))}
	}
	return page, nil
}

func (f *HTTPFetcher) Close() error {
	return nil
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *plugin.FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		return fe.StatusCode == http.StatusTooManyRequests || fe.StatusCode >= http.StatusInternalServerError
	}
	if errors.Is(err, colly.ErrForbiddenDomain) || errors.Is(err, colly.ErrRobotsTxtBlocked) ||
		errors.Is(err, colly.ErrMissingURL) {
		return false
	}
	return true
}
