package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ramkansal/dexscrape/internal/config"
	"github.com/ramkansal/dexscrape/internal/output"
	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// ui prints crawl progress. Records go to the sinks, so everything here is
// written to stderr.
type ui struct {
	w      io.Writer
	color  bool
	silent bool
}

func newUI(w io.Writer, opts *rootOptions) *ui {
	return &ui{
		w:      w,
		color:  !opts.noColor && enableANSI(),
		silent: opts.silent,
	}
}

func (u *ui) printf(format string, args ...any) {
	if u.silent {
		return
	}
	fmt.Fprintf(u.w, format, args...)
}

func (u *ui) header(cfg *config.Config, sinks string) {
	u.printf("\n  %s  %s\n", u.clr("cyan", "DEXSCRAPE"), u.clr("dim", "v"+version))
	u.printf("  %s\n", u.clr("dim", strings.Repeat("─", 58)))
	u.printf("\n  %s %s\n", u.clr("cyan", "Target:"), cfg.Crawl.StartURL)
	u.printf("  %s %d  %s %s  %s %s\n\n",
		u.clr("dim", "Threads:"), cfg.Crawl.Parallelism,
		u.clr("dim", "Fetcher:"), cfg.Fetcher.Mode,
		u.clr("dim", "Output:"), sinks,
	)
}

func (u *ui) handleEvent(event plugin.CrawlEvent) {
	switch event.Type {
	case plugin.EventPageDone:
		marker := u.clr("green", "●")
		if event.Role != plugin.RoleEntity {
			marker = u.clr("cyan", "◆")
		}
		u.printf("  %s [%s] %s %s\n",
			marker,
			event.Role,
			event.URL,
			u.clr("dim", "("+event.Message+")"),
		)

	case plugin.EventPageError:
		u.printf("  %s %s\n", u.clr("red", "✗"), event.Message)

	case plugin.EventCrawlStarted, plugin.EventCrawlFinished:
		// header and footer are printed around Run
	}
}

func (u *ui) interrupted(s plugin.CrawlStats) {
	u.printf("\n\n  %s Interrupt received after %d pages and %d records, stopping...\n",
		u.clr("yellow", "!"), s.PagesFetched, s.RecordsEmitted)
}

// errorf prints a fatal error. Unlike progress output it ignores --silent.
func (u *ui) errorf(err error) {
	fmt.Fprintf(u.w, "\n  %s %v\n\n", u.clr("red", "ERROR:"), err)
}

func (u *ui) footer(summary *plugin.CrawlSummary, out output.Config) {
	if summary == nil {
		return
	}
	s := summary.Stats

	u.printf("\n  %s\n", strings.Repeat("─", 50))
	if summary.Cancelled {
		u.printf("  %s Crawl cancelled: %s\n", u.clr("yellow", "!"), summary.CancelCause)
	} else {
		u.printf("  %s Crawl complete\n", u.clr("green", "✓"))
	}
	u.printf("    Pages:   %s fetched, %s errors\n",
		u.clr("cyan", fmt.Sprintf("%d", s.PagesFetched)),
		u.clr("red", fmt.Sprintf("%d", s.PagesFailed)),
	)
	u.printf("    Records: %s in %s (%.1f pages/sec)\n",
		u.clr("yellow", fmt.Sprintf("%d", s.RecordsEmitted)),
		fmtDur(summary.Duration),
		s.PagesPerSec,
	)
	if s.MovesSkipped > 0 {
		u.printf("    Skipped: %d move rows\n", s.MovesSkipped)
	}
	if len(s.FailedByRole) > 0 {
		roles := make([]string, 0, len(s.FailedByRole))
		for role := range s.FailedByRole {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		parts := make([]string, 0, len(roles))
		for _, role := range roles {
			parts = append(parts, fmt.Sprintf("%s:%s", u.clr("dim", role), u.clr("red", fmt.Sprintf("%d", s.FailedByRole[role]))))
		}
		u.printf("    Failed:  %s\n", strings.Join(parts, ", "))
	}
	for _, path := range []string{out.JSONL, out.SQLite, out.Text} {
		if path != "" && path != "-" {
			u.printf("    Output:  %s\n", u.clr("green", path))
		}
	}
	u.printf("\n")
}

// ---------- Utilities ----------

func fmtDur(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}

var colorCodes = map[string]string{
	"red":    "\033[31m",
	"green":  "\033[32m",
	"yellow": "\033[33m",
	"cyan":   "\033[36m",
	"dim":    "\033[2m",
	"reset":  "\033[0m",
}

func (u *ui) clr(color, text string) string {
	c, ok := colorCodes[color]
	if !ok || !u.color {
		return text
	}
	return c + text + colorCodes["reset"]
}
