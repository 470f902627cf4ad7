package output

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// TextWriter writes a human-readable crawl report to a plain text file
// once the crawl has finished.
type TextWriter struct {
	path  string
	lines []string
	mu    sync.Mutex
}

// NewTextWriter creates a new plain-text output writer.
func NewTextWriter(path string) *TextWriter {
	return &TextWriter{path: path}
}

func (w *TextWriter) Name() string { return "text" }

func (w *TextWriter) WriteRecord(_ context.Context, rec *plugin.EntityRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lines = append(w.lines, fmt.Sprintf("  [#%04d] %s (%d stats, %d moves) %s",
		rec.Number, rec.Name, len(rec.Attributes), len(rec.Moves), rec.SourceURL))
	return nil
}

func (w *TextWriter) Finalize(_ context.Context, summary *plugin.CrawlSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var b strings.Builder

	// Banner
	b.WriteString("\n  DEXSCRAPE\n")
	b.WriteString("  " + strings.Repeat("-", 58) + "\n\n")

	// Target info
	b.WriteString(fmt.Sprintf("  Target:  %s\n", summary.StartURL))
	b.WriteString(fmt.Sprintf("  Run:     %s\n", summary.RunID))
	b.WriteString(fmt.Sprintf("  Started: %s\n\n", summary.StartedAt.Format(time.RFC1123)))

	// Records
	for _, line := range w.lines {
		b.WriteString(line + "\n")
	}

	// Failures
	if len(summary.Failures) > 0 {
		b.WriteString("\n  Failures\n")
		for _, f := range summary.Failures {
			b.WriteString(fmt.Sprintf("  [%s] %s\n      +-- %s\n", f.Role, f.URL, f.Error))
		}
	}

	// Summary
	st := summary.Stats
	b.WriteString("\n  " + strings.Repeat("-", 50) + "\n")
	if summary.Cancelled {
		b.WriteString(fmt.Sprintf("  Crawl cancelled: %s\n", summary.CancelCause))
	} else {
		b.WriteString("  Crawl complete\n")
	}
	b.WriteString(fmt.Sprintf("    Pages:   %d fetched, %d errors\n", st.PagesFetched, st.PagesFailed))
	b.WriteString(fmt.Sprintf("    Records: %d in %s\n", st.RecordsEmitted, fmtDur(summary.Duration)))
	if st.MovesSkipped > 0 {
		b.WriteString(fmt.Sprintf("    Skipped: %d move rows\n", st.MovesSkipped))
	}
	if by := failedByRole(st.FailedByRole); by != "" {
		b.WriteString("    Failed:  " + by + "\n")
	}
	b.WriteString("\n")

	return os.WriteFile(w.path, []byte(b.String()), 0644)
}

func (w *TextWriter) Close() error { return nil }

// ---------- helpers ----------

func failedByRole(counts map[string]int) string {
	roles := make([]string, 0, len(counts))
	for role, n := range counts {
		if n > 0 {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)

	parts := make([]string, 0, len(roles))
	for _, role := range roles {
		parts = append(parts, fmt.Sprintf("%s:%d", role, counts[role]))
	}
	return strings.Join(parts, ", ")
}

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
