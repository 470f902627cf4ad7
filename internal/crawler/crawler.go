// Package crawler walks the site from the home page through the type
// categories to every entity page and hands the extracted records to the
// output writer.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ramkansal/dexscrape/internal/extractor"
	"github.com/ramkansal/dexscrape/internal/logger"
	"github.com/ramkansal/dexscrape/pkg/plugin"
)

var (
	// ErrRootUnavailable means the home page could not be fetched or parsed,
	// so the walk never started.
	ErrRootUnavailable = errors.New("home page unavailable")
	// ErrFailureBudgetExceeded cancels the walk once MaxFailures is passed.
	ErrFailureBudgetExceeded = errors.New("failure budget exceeded")
	// ErrStopped is the cancellation cause set by Stop.
	ErrStopped = errors.New("crawl stopped")
)

// Crawler is the traversal controller. A Crawler runs one walk.
type Crawler struct {
	config  *CrawlConfig
	fetcher plugin.Fetcher
	ext     *extractor.Extractor
	writer  plugin.OutputWriter
	log     logger.Logger
	events  chan plugin.CrawlEvent

	// task stream bookkeeping
	sem     chan struct{}
	tasks   sync.WaitGroup
	records chan emitted

	// Stats
	stats     plugin.CrawlStats
	failures  []plugin.Failure
	statsMu   sync.Mutex
	startTime time.Time

	// Control
	cancel  context.CancelCauseFunc
	stopped bool
	stopMu  sync.Mutex
}

// emitted is a finished record on its way to the sink.
type emitted struct {
	ref    plugin.PageRef
	record *plugin.EntityRecord
}

// New creates a Crawler. The fetcher and writer are used as given; the
// crawler never closes them.
func New(
	config *CrawlConfig,
	fetcher plugin.Fetcher,
	ext *extractor.Extractor,
	writer plugin.OutputWriter,
	log logger.Logger,
) *Crawler {
	if log == nil {
		log = logger.NewNop()
	}
	parallelism := max(config.Parallelism, 1)
	return &Crawler{
		config:  config,
		fetcher: fetcher,
		ext:     ext,
		writer:  writer,
		log:     log,
		events:  make(chan plugin.CrawlEvent, max(config.EventBuffer, 1)),
		sem:     make(chan struct{}, parallelism),
		records: make(chan emitted, max(config.RecordBuffer, 1)),
		stats: plugin.CrawlStats{
			FailedByRole: make(map[string]int),
		},
	}
}

// Events returns the event channel. It is closed when Run returns.
func (c *Crawler) Events() <-chan plugin.CrawlEvent {
	return c.events
}

// Run walks home -> categories -> entities and blocks until every task has
// finished or the walk is cancelled. Page failures are recorded in the
// summary and never stop sibling tasks. The returned error is non-nil only
// when the home page is unusable or the walk was cancelled.
func (c *Crawler) Run(ctx context.Context) (*plugin.CrawlSummary, error) {
	defer close(c.events)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	c.setCancel(cancel)

	runID := uuid.NewString()
	c.log = c.log.With(logger.String("run_id", runID))
	c.statsMu.Lock()
	c.startTime = time.Now()
	c.statsMu.Unlock()

	c.log.Info("crawl started",
		logger.String("start_url", c.config.StartURL),
		logger.Int("parallelism", cap(c.sem)),
		logger.String("fetcher", c.fetcher.Name()),
		logger.String("writer", c.writer.Name()),
	)
	c.emit(plugin.CrawlEvent{
		Type:    plugin.EventCrawlStarted,
		URL:     c.config.StartURL,
		Role:    plugin.RoleHome,
		Message: fmt.Sprintf("Starting crawl of %s", c.config.StartURL),
	})

	sinkDone := make(chan struct{})
	go c.drain(ctx, sinkDone)

	rootErr := c.walkHome(ctx)

	c.tasks.Wait()
	close(c.records)
	<-sinkDone

	summary := c.buildSummary(ctx, runID)
	if err := c.writer.Finalize(context.WithoutCancel(ctx), summary); err != nil {
		c.log.Error("finalize output failed", logger.String("writer", c.writer.Name()), logger.Error(err))
	}

	c.log.Info("crawl finished",
		logger.Int("pages_fetched", summary.Stats.PagesFetched),
		logger.Int("pages_failed", summary.Stats.PagesFailed),
		logger.Int("records", summary.Stats.RecordsEmitted),
		logger.Bool("cancelled", summary.Cancelled),
		logger.Duration("elapsed", summary.Duration),
		logger.Any("failed_by_role", summary.Stats.FailedByRole),
	)
	c.emit(plugin.CrawlEvent{
		Type:    plugin.EventCrawlFinished,
		Stats:   &summary.Stats,
		Message: fmt.Sprintf("Crawl complete. %d pages, %d records.", summary.Stats.PagesFetched, summary.Stats.RecordsEmitted),
	})

	if rootErr != nil {
		return summary, rootErr
	}
	if summary.Cancelled {
		return summary, context.Cause(ctx)
	}
	return summary, nil
}

// Stop cancels the walk. In-flight fetches are abandoned and their results
// discarded; records extracted before the stop are still written.
func (c *Crawler) Stop() {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	c.stopped = true
	if c.cancel != nil {
		c.cancel(ErrStopped)
	}
}

func (c *Crawler) setCancel(cancel context.CancelCauseFunc) {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	c.cancel = cancel
	if c.stopped {
		cancel(ErrStopped)
	}
}

// walkHome handles the AtHome state. Any failure here is fatal to the walk.
func (c *Crawler) walkHome(ctx context.Context) error {
	home := plugin.PageRef{URL: c.config.StartURL, Role: plugin.RoleHome}
	c.queued(home)

	page, err := c.fetch(ctx, home)
	if err == nil {
		var links []string
		links, err = c.ext.Discover(page.Markup(), plugin.RoleCategory)
		if err == nil {
			c.pageDone(home, fmt.Sprintf("%d categories", len(links)))
			c.spawn(ctx, page, links, plugin.RoleCategory)
			return nil
		}
	}

	c.fail(home, err)
	return fmt.Errorf("%w: %w", ErrRootUnavailable, err)
}

// spawn starts one task per discovered link.
func (c *Crawler) spawn(ctx context.Context, parent *plugin.PageData, hrefs []string, role plugin.Role) {
	base, baseErr := url.Parse(parent.BaseURL())
	for _, href := range hrefs {
		ref := plugin.PageRef{URL: href, Role: role, Parent: parent.URL}
		if baseErr != nil {
			c.fail(ref, fmt.Errorf("parse base URL: %w", baseErr))
			continue
		}
		resolved, err := resolveURL(base, href)
		if err != nil {
			c.fail(ref, err)
			continue
		}
		ref.URL = resolved

		c.queued(ref)
		c.tasks.Add(1)
		go func() {
			defer c.tasks.Done()
			c.process(ctx, ref)
		}()
	}
}

// process handles the AtCategory and AtEntity states for one page.
func (c *Crawler) process(ctx context.Context, ref plugin.PageRef) {
	if ctx.Err() != nil {
		return
	}

	page, err := c.fetch(ctx, ref)
	if ctx.Err() != nil && page == nil {
		// cancelled while waiting: whatever came back is discarded
		return
	}
	if err != nil {
		c.fail(ref, err)
		return
	}

	switch ref.Role {
	case plugin.RoleCategory:
		links, err := c.ext.Discover(page.Markup(), plugin.RoleEntity)
		if err != nil {
			c.fail(ref, err)
			return
		}
		c.pageDone(ref, fmt.Sprintf("%d entities", len(links)))
		c.spawn(ctx, page, links, plugin.RoleEntity)

	case plugin.RoleEntity:
		res, err := c.ext.ExtractPage(page)
		if err != nil {
			c.fail(ref, err)
			return
		}
		c.skippedRows(ref, res.Skipped)

		rec := res.Record
		c.pageDone(ref, fmt.Sprintf("#%d %s", rec.Number, rec.Name))

		// drain consumes until the stream is closed, so this never blocks
		// past the end of the walk
		c.records <- emitted{ref: ref, record: rec}

	default:
		c.fail(ref, fmt.Errorf("%w: %s", extractor.ErrUnsupportedRole, ref.Role))
	}
}

type fetchResult struct {
	page *plugin.PageData
	err  error
}

// fetch acquires a fetch slot and calls the fetcher. It returns as soon as
// ctx is cancelled without waiting for the fetcher; the slot is released
// when the fetcher actually returns.
func (c *Crawler) fetch(ctx context.Context, ref plugin.PageRef) (*plugin.PageData, error) {
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}

	c.emit(plugin.CrawlEvent{Type: plugin.EventPageStarted, URL: ref.URL, Role: ref.Role})

	done := make(chan fetchResult, 1)
	go func() {
		defer func() { <-c.sem }()
		page, err := c.fetcher.Fetch(ctx, ref.URL)
		done <- fetchResult{page: page, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}

	if res.err != nil {
		var fetchErr *plugin.FetchError
		if !errors.As(res.err, &fetchErr) {
			res.err = &plugin.FetchError{URL: ref.URL, Err: res.err}
		}
		return nil, res.err
	}
	if res.page == nil {
		return nil, &plugin.FetchError{URL: ref.URL, Err: errors.New("fetcher returned no page")}
	}

	c.statsMu.Lock()
	c.stats.PagesFetched++
	c.statsMu.Unlock()
	return res.page, nil
}

// drain is the single consumer of the record stream. Every record that
// reached the stream is written, even after the walk is cancelled.
func (c *Crawler) drain(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ctx = context.WithoutCancel(ctx)
	for item := range c.records {
		if err := c.writer.WriteRecord(ctx, item.record); err != nil {
			c.fail(item.ref, fmt.Errorf("write record: %w", err))
			continue
		}

		c.statsMu.Lock()
		c.stats.RecordsEmitted++
		c.statsMu.Unlock()

		c.emit(plugin.CrawlEvent{
			Type:   plugin.EventRecordEmitted,
			URL:    item.ref.URL,
			Role:   plugin.RoleEntity,
			Record: item.record,
		})
	}
}

func (c *Crawler) queued(ref plugin.PageRef) {
	c.statsMu.Lock()
	c.stats.PagesQueued++
	c.statsMu.Unlock()

	c.emit(plugin.CrawlEvent{Type: plugin.EventPageQueued, URL: ref.URL, Role: ref.Role})
}

func (c *Crawler) pageDone(ref plugin.PageRef, msg string) {
	c.log.Debug("page done",
		logger.String("url", ref.URL),
		logger.String("role", ref.Role.String()),
		logger.String("result", msg),
	)
	c.emit(plugin.CrawlEvent{
		Type:    plugin.EventPageDone,
		URL:     ref.URL,
		Role:    ref.Role,
		Message: msg,
		Stats:   c.getStats(),
	})
}

// fail records a failed task and cancels the walk once the failure budget
// is spent.
func (c *Crawler) fail(ref plugin.PageRef, err error) {
	c.statsMu.Lock()
	c.stats.PagesFailed++
	c.stats.FailedByRole[ref.Role.String()]++
	c.failures = append(c.failures, plugin.Failure{URL: ref.URL, Role: ref.Role.String(), Error: err.Error()})
	failed := c.stats.PagesFailed
	c.statsMu.Unlock()

	c.log.Warn("page failed",
		logger.String("url", ref.URL),
		logger.String("role", ref.Role.String()),
		logger.String("parent", ref.Parent),
		logger.Error(err),
	)
	c.emit(plugin.CrawlEvent{
		Type:    plugin.EventPageError,
		URL:     ref.URL,
		Role:    ref.Role,
		Error:   err,
		Message: fmt.Sprintf("Error on %s page %s: %v", ref.Role, ref.URL, err),
	})

	if c.config.MaxFailures > 0 && failed > c.config.MaxFailures {
		c.stopMu.Lock()
		if c.cancel != nil {
			c.cancel(ErrFailureBudgetExceeded)
		}
		c.stopMu.Unlock()
	}
}

// skippedRows surfaces move rows the extractor dropped.
func (c *Crawler) skippedRows(ref plugin.PageRef, issues []extractor.RowIssue) {
	if len(issues) == 0 {
		return
	}
	c.statsMu.Lock()
	c.stats.MovesSkipped += len(issues)
	c.statsMu.Unlock()

	for _, issue := range issues {
		c.log.Warn("move row skipped",
			logger.String("url", ref.URL),
			logger.Int("row", issue.Row),
			logger.Error(issue.Err),
		)
	}
}

// emit sends an event to the event channel (non-blocking).
func (c *Crawler) emit(event plugin.CrawlEvent) {
	select {
	case c.events <- event:
	default:
		// consumer is too slow; the crawl must not block on it
	}
}

// getStats returns a copy of the current stats.
func (c *Crawler) getStats() *plugin.CrawlStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	statsCopy := c.stats
	byRole := make(map[string]int, len(c.stats.FailedByRole))
	for k, v := range c.stats.FailedByRole {
		byRole[k] = v
	}
	statsCopy.FailedByRole = byRole

	if !c.startTime.IsZero() {
		statsCopy.Elapsed = time.Since(c.startTime)
		if secs := statsCopy.Elapsed.Seconds(); secs > 0 {
			statsCopy.PagesPerSec = float64(statsCopy.PagesFetched) / secs
		}
	}
	return &statsCopy
}

// Stats returns a snapshot of the crawl statistics.
func (c *Crawler) Stats() plugin.CrawlStats {
	return *c.getStats()
}

func (c *Crawler) buildSummary(ctx context.Context, runID string) *plugin.CrawlSummary {
	stats := c.getStats()

	c.statsMu.Lock()
	failures := append([]plugin.Failure(nil), c.failures...)
	c.statsMu.Unlock()

	finished := time.Now()
	summary := &plugin.CrawlSummary{
		RunID:      runID,
		StartURL:   c.config.StartURL,
		StartedAt:  c.startTime,
		FinishedAt: finished,
		Duration:   finished.Sub(c.startTime),
		Stats:      *stats,
		Failures:   failures,
	}
	if ctx.Err() != nil {
		summary.Cancelled = true
		summary.CancelCause = context.Cause(ctx).Error()
	}
	return summary
}

// resolveURL resolves a possibly relative href against the page it was found on.
func resolveURL(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", href, err)
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("link %q: unsupported scheme %q", href, resolved.Scheme)
	}
	resolved.Fragment = ""
	return resolved.String(), nil
}
