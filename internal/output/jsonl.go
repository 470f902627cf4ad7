package output

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// JSONLWriter writes one JSON object per record, one per line.
type JSONLWriter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONLWriter writes to w. The caller keeps ownership of w.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{enc: json.NewEncoder(w)}
}

// OpenJSONL creates (or truncates) the file at path. "-" selects stdout.
func OpenJSONL(path string) (*JSONLWriter, error) {
	if path == "-" {
		return NewJSONLWriter(os.Stdout), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := NewJSONLWriter(f)
	w.closer = f
	return w, nil
}

func (w *JSONLWriter) Name() string { return "jsonl" }

func (w *JSONLWriter) WriteRecord(_ context.Context, rec *plugin.EntityRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(rec)
}

// Finalize is a no-op; records are written as they arrive.
func (w *JSONLWriter) Finalize(context.Context, *plugin.CrawlSummary) error { return nil }

func (w *JSONLWriter) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
