package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// BrowserFetcher uses Rod (headless Chrome) for pages whose markup is
// only complete after scripts run.
type BrowserFetcher struct {
	browser     *rod.Browser
	timeout     time.Duration
	pageTimeout time.Duration
	userAgent   string
}

// NewBrowserFetcher launches a headless browser and connects to it.
func NewBrowserFetcher(cfg Config) (*BrowserFetcher, error) {
	u, err := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pageTimeout := cfg.PageTimeout
	if pageTimeout == 0 {
		pageTimeout = 15 * time.Second
	}

	return &BrowserFetcher{
		browser:     browser,
		timeout:     timeout,
		pageTimeout: pageTimeout,
		userAgent:   cfg.UserAgent,
	}, nil
}

func (f *BrowserFetcher) Name() string { return ModeBrowser }

func (f *BrowserFetcher) Fetch(ctx context.Context, targetURL string) (*plugin.PageData, error) {
	start := time.Now()

	page := &plugin.PageData{
		URL:         targetURL,
		FinalURL:    targetURL,
		FetcherUsed: ModeBrowser,
		FetchedAt:   start,
	}

	rodPage, err := f.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, &plugin.FetchError{URL: targetURL, Err: err}
	}
	defer rodPage.Close()

	rodPage = rodPage.Context(ctx).Timeout(f.timeout)

	if err := setUserAgent(rodPage, targetURL, f.userAgent); err != nil {
		return nil, err
	}

	if err := rodPage.Navigate(targetURL); err != nil {
		return nil, &plugin.FetchError{URL: targetURL, Err: err}
	}

	// A page that never fully settles still has usable markup.
	_ = rodPage.WaitStable(f.pageTimeout)

	if info, err := rodPage.Info(); err == nil {
		page.FinalURL = info.URL
	}

	html, err := rodPage.HTML()
	if err != nil {
		return nil, &plugin.FetchError{URL: targetURL, Err: err}
	}
	page.RawHTML = html
	page.StatusCode = 200
	page.ContentType = "text/html"
	page.FetchDuration = time.Since(start)
	return page, nil
}

// userAgentSetter is the part of *rod.Page that overrides the user agent.
type userAgentSetter interface {
	SetUserAgent(req *proto.NetworkSetUserAgentOverride) error
}

// setUserAgent applies ua to the page. An empty ua keeps the browser's own.
func setUserAgent(p userAgentSetter, targetURL, ua string) error {
	if ua == "" {
		return nil
	}
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		return &plugin.FetchError{URL: targetURL, Err: fmt.Errorf("set user agent: %w", err)}
	}
	return nil
}

func (f *BrowserFetcher) Close() error {
	if f.browser != nil {
		return f.browser.Close()
	}
	return nil
}
