// Package plugin defines the public types and interfaces of dexscrape.
// External tools can import this package to write custom fetchers or
// output writers without forking the project.
package plugin

import (
	"context"
	"fmt"
	"time"
)

// ---------- Navigation ----------

// Role tags a page with its position in the site topology.
type Role int

const (
	RoleHome Role = iota
	RoleCategory
	RoleEntity
)

func (r Role) String() string {
	switch r {
	case RoleHome:
		return "home"
	case RoleCategory:
		return "category"
	case RoleEntity:
		return "entity"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// PageRef is a discovered URL plus the role of the page it points to.
type PageRef struct {
	URL    string `json:"url"`
	Role   Role   `json:"role"`
	Parent string `json:"parent,omitempty"` // page that linked here
}

// PageData is a fetched page as returned by a Fetcher.
type PageData struct {
	URL           string        `json:"url"`
	FinalURL      string        `json:"final_url"`
	StatusCode    int           `json:"status_code"`
	RawHTML       string        `json:"-"`
	ContentType   string        `json:"content_type"`
	FetchedAt     time.Time     `json:"fetched_at"`
	FetchDuration time.Duration `json:"fetch_duration"`
	FetcherUsed   string        `json:"fetcher_used"`
}

// Markup returns the raw page markup.
func (p *PageData) Markup() []byte {
	return []byte(p.RawHTML)
}

// BaseURL is the URL relative links on the page resolve against.
func (p *PageData) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// FetchError reports a page that could not be retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ---------- Records ----------

// StatEntry holds one base stat. Min <= Start <= Max is expected but not enforced.
type StatEntry struct {
	Start int `json:"start"`
	Min   int `json:"min"`
	Max   int `json:"max"`
}

// MoveEntry is one row of the level-up move table.
// Power and Accuracy are 0 when the page shows no value.
type MoveEntry struct {
	Name     string `json:"name"`
	Level    int    `json:"level"`
	Power    int    `json:"power"`
	Accuracy int    `json:"accuracy"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

// EntityRecord is the fully extracted data of one entity page. SourceURL
// is kept out of the JSON form; the SQLite and text sinks record it.
type EntityRecord struct {
	Name       string               `json:"name"`
	Number     int                  `json:"number"`
	Attributes map[string]StatEntry `json:"attributes"`
	Moves      []MoveEntry          `json:"moves"`
	SourceURL  string               `json:"-"`
}

// ---------- Summary ----------

// Failure records one page that did not produce its expected output.
type Failure struct {
	URL   string `json:"url"`
	Role  string `json:"role"`
	Error string `json:"error"`
}

// CrawlSummary is the final aggregated outcome of a walk.
type CrawlSummary struct {
	RunID       string        `json:"run_id"`
	StartURL    string        `json:"start_url"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Duration    time.Duration `json:"duration"`
	Stats       CrawlStats    `json:"stats"`
	Failures    []Failure     `json:"failures,omitempty"`
	Cancelled   bool          `json:"cancelled"`
	CancelCause string        `json:"cancel_cause,omitempty"`
}

// ---------- Event Types ----------

// CrawlEvent represents a real-time event emitted by the crawler.
type CrawlEvent struct {
	Type    EventType
	URL     string
	Role    Role
	Record  *EntityRecord
	Error   error
	Stats   *CrawlStats
	Message string
}

// EventType identifies the kind of event.
type EventType int

const (
	EventPageQueued EventType = iota
	EventPageStarted
	EventPageDone
	EventPageError
	EventRecordEmitted
	EventCrawlStarted
	EventCrawlFinished
)

// CrawlStats holds real-time crawl statistics.
type CrawlStats struct {
	PagesQueued    int            `json:"pages_queued"`
	PagesFetched   int            `json:"pages_fetched"`
	PagesFailed    int            `json:"pages_failed"`
	FailedByRole   map[string]int `json:"failed_by_role"`
	RecordsEmitted int            `json:"records_emitted"`
	MovesSkipped   int            `json:"moves_skipped"`
	Elapsed        time.Duration  `json:"elapsed"`
	PagesPerSec    float64        `json:"pages_per_sec"`
}

// ---------- Plugin Interfaces ----------

// Fetcher defines how pages are retrieved. Retry, backoff and robots
// handling belong to the implementation.
type Fetcher interface {
	// Name returns a human-readable identifier for this fetcher.
	Name() string

	// Fetch retrieves the page at the given URL.
	Fetch(ctx context.Context, url string) (*PageData, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

// OutputWriter defines how extracted records are persisted.
// WriteRecord may be called from multiple goroutines.
type OutputWriter interface {
	// Name returns a human-readable identifier for this writer.
	Name() string

	// WriteRecord stores a single, complete record.
	WriteRecord(ctx context.Context, record *EntityRecord) error

	// Finalize writes the final summary and closes resources.
	Finalize(ctx context.Context, summary *CrawlSummary) error
}
