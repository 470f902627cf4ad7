package main

import (
	"context"
	"errors"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramkansal/dexscrape/internal/config"
	"github.com/ramkansal/dexscrape/internal/crawler"
	"github.com/ramkansal/dexscrape/internal/extractor"
	"github.com/ramkansal/dexscrape/internal/fetcher"
	"github.com/ramkansal/dexscrape/internal/logger"
	"github.com/ramkansal/dexscrape/internal/output"
)

// crawlFlags override the matching configuration keys when set.
type crawlFlags struct {
	// Crawl
	concurrency int
	maxFailures int

	// Request
	fetcher   string
	userAgent string
	timeout   time.Duration
	retry     int
	proxy     string
	headers   []string
	rateLimit time.Duration
	noRobots  bool
	domain    string

	// Extraction
	missingMoves string
	badMoveRow   string

	// Output
	jsonl  string
	sqlite string
	redis  string
	text   string
}

func newCrawlCmd(opts *rootOptions) *cobra.Command {
	f := &crawlFlags{}

	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawl from the home page down to every entity page",
		Example: `  dexscrape crawl
  dexscrape crawl https://pokemondb.net/ -c 10 --sqlite dex.db
  dexscrape crawl --jsonl out.jsonl --text report.txt --max-failures 20`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Crawl.StartURL = normalizeURL(args[0])
				cfg.Fetcher.AllowedDomain = siteDomain(cfg.Crawl.StartURL)
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runCrawl(cmd, opts, cfg)
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&f.concurrency, "concurrency", "c", 0, "number of concurrent fetches")
	fl.IntVar(&f.maxFailures, "max-failures", 0, "stop after this many failed pages (0 = never)")
	fl.StringVarP(&f.fetcher, "fetcher", "f", "", "fetcher mode: http, browser")
	fl.StringVar(&f.userAgent, "user-agent", "", "custom user-agent string")
	fl.DurationVarP(&f.timeout, "timeout", "t", 0, "request timeout")
	fl.IntVar(&f.retry, "retry", 0, "number of times to retry a failed request")
	fl.StringVar(&f.proxy, "proxy", "", "http/socks5 proxy to use")
	fl.StringArrayVarP(&f.headers, "header", "H", nil, `custom header in "Key: Value" format (repeatable)`)
	fl.DurationVar(&f.rateLimit, "rate-limit", 0, "delay between requests")
	fl.BoolVar(&f.noRobots, "no-robots", false, "ignore robots.txt restrictions")
	fl.StringVar(&f.domain, "allowed-domain", "", `only fetch pages on this domain (default is the start URL's host, "" allows any)`)
	fl.StringVar(&f.missingMoves, "missing-moves", "", "pages without a move table: fail, empty")
	fl.StringVar(&f.badMoveRow, "bad-move-row", "", "unparseable move rows: skip, fail")
	fl.StringVarP(&f.jsonl, "jsonl", "o", "", `write JSON lines to this file ("-" for stdout)`)
	fl.StringVar(&f.sqlite, "sqlite", "", "write records to this SQLite database")
	fl.StringVar(&f.redis, "redis", "", "write records to the Redis server at this address")
	fl.StringVar(&f.text, "text", "", "write a plain-text report to this file")

	return cmd
}

// apply copies every flag the user actually set onto cfg.
func (f *crawlFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("concurrency") {
		cfg.Crawl.Parallelism = f.concurrency
		cfg.Fetcher.Parallelism = f.concurrency
	}
	if changed("max-failures") {
		cfg.Crawl.MaxFailures = f.maxFailures
	}
	if changed("fetcher") {
		cfg.Fetcher.Mode = strings.ToLower(f.fetcher)
	}
	if changed("user-agent") {
		cfg.Fetcher.UserAgent = f.userAgent
	}
	if changed("timeout") {
		cfg.Fetcher.Timeout = f.timeout
	}
	if changed("retry") {
		cfg.Fetcher.Retry = f.retry
	}
	if changed("proxy") {
		cfg.Fetcher.Proxy = f.proxy
	}
	if changed("header") {
		cfg.Fetcher.Headers = append(cfg.Fetcher.Headers, f.headers...)
	}
	if changed("rate-limit") {
		cfg.Fetcher.RateLimit = f.rateLimit
	}
	if changed("no-robots") {
		cfg.Fetcher.RespectRobots = !f.noRobots
	}
	if changed("allowed-domain") {
		cfg.Fetcher.AllowedDomain = f.domain
	}
	if changed("missing-moves") {
		cfg.Extractor.MissingMoves = f.missingMoves
	}
	if changed("bad-move-row") {
		cfg.Extractor.BadMoveRow = f.badMoveRow
	}

	// an explicit sink replaces the default stdout stream
	explicitSink := changed("sqlite") || changed("redis") || changed("text")
	if explicitSink && !changed("jsonl") && cfg.Output.JSONL == output.DefaultConfig().JSONL {
		cfg.Output.JSONL = ""
	}
	if changed("jsonl") {
		cfg.Output.JSONL = f.jsonl
	}
	if changed("sqlite") {
		cfg.Output.SQLite = f.sqlite
	}
	if changed("redis") {
		cfg.Output.Redis.Addr = f.redis
	}
	if changed("text") {
		cfg.Output.Text = f.text
	}
}

func runCrawl(cmd *cobra.Command, opts *rootOptions, cfg *config.Config) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	extOpts, err := cfg.Extractor.Options()
	if err != nil {
		return err
	}

	fetch, err := fetcher.New(cfg.Fetcher)
	if err != nil {
		return err
	}
	defer fetch.Close()

	sink, err := output.Open(ctx, cfg.Output)
	if err != nil {
		return err
	}
	defer sink.Close()

	c := crawler.New(&cfg.Crawl, fetch, extractor.New(extOpts), sink, log)
	ui := newUI(cmd.ErrOrStderr(), opts)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	notifyShutdown(sig)
	defer signal.Stop(sig)
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-sig:
			ui.interrupted(c.Stats())
			c.Stop()
		case <-finished:
		}
	}()

	ui.header(cfg, sink.Name())

	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		for event := range c.Events() {
			ui.handleEvent(event)
		}
	}()

	summary, err := c.Run(ctx)
	<-eventsDone
	ui.footer(summary, cfg.Output)

	if errors.Is(err, crawler.ErrStopped) {
		return nil
	}
	return err
}

// siteDomain is the host of rawURL without a leading "www.".
func siteDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// normalizeURL adds a scheme to bare host names.
func normalizeURL(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}
