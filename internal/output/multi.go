package output

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// MultiWriter fans every call out to all of its writers. Each writer is
// always attempted; the first error is returned.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter combines writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Name() string {
	names := make([]string, 0, len(m.writers))
	for _, w := range m.writers {
		names = append(names, w.Name())
	}
	return strings.Join(names, "+")
}

func (m *MultiWriter) WriteRecord(ctx context.Context, rec *plugin.EntityRecord) error {
	var g errgroup.Group
	for _, w := range m.writers {
		g.Go(func() error {
			return w.WriteRecord(ctx, rec)
		})
	}
	return g.Wait()
}

func (m *MultiWriter) Finalize(ctx context.Context, summary *plugin.CrawlSummary) error {
	var g errgroup.Group
	for _, w := range m.writers {
		g.Go(func() error {
			return w.Finalize(ctx, summary)
		})
	}
	return g.Wait()
}

// Close closes every writer and joins their errors.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
