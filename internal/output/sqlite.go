package output

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ramkansal/dexscrape/pkg/plugin"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number INTEGER NOT NULL,
	name TEXT NOT NULL,
	source_url TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_entities_number ON entities(number);

CREATE TABLE IF NOT EXISTS entity_stats (
	entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	start INTEGER NOT NULL,
	min INTEGER NOT NULL,
	max INTEGER NOT NULL,
	PRIMARY KEY (entity_id, name)
);

CREATE TABLE IF NOT EXISTS entity_moves (
	entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	level INTEGER NOT NULL,
	power INTEGER NOT NULL,
	accuracy INTEGER NOT NULL,
	type TEXT NOT NULL,
	category TEXT NOT NULL,
	PRIMARY KEY (entity_id, position)
);

CREATE TABLE IF NOT EXISTS crawl_runs (
	run_id TEXT PRIMARY KEY,
	start_url TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	pages_fetched INTEGER NOT NULL,
	pages_failed INTEGER NOT NULL,
	records INTEGER NOT NULL,
	cancelled INTEGER NOT NULL DEFAULT 0,
	cancel_cause TEXT
);
`

// SQLiteWriter stores records in a SQLite database, one transaction per
// record. Duplicate entities are stored as separate rows.
type SQLiteWriter struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteWriter, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// a single connection keeps pragmas and writes on the same handle
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteWriter{db: db, path: path}, nil
}

func (w *SQLiteWriter) Name() string { return "sqlite" }

// DB exposes the underlying handle for queries.
func (w *SQLiteWriter) DB() *sql.DB { return w.db }

func (w *SQLiteWriter) WriteRecord(ctx context.Context, rec *plugin.EntityRecord) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO entities (number, name, source_url) VALUES (?, ?, ?)`,
		rec.Number, rec.Name, rec.SourceURL,
	)
	if err != nil {
		return fmt.Errorf("inserting entity %d: %w", rec.Number, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("entity id: %w", err)
	}

	names := make([]string, 0, len(rec.Attributes))
	for name := range rec.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := rec.Attributes[name]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entity_stats (entity_id, name, start, min, max) VALUES (?, ?, ?, ?, ?)`,
			id, name, s.Start, s.Min, s.Max,
		); err != nil {
			return fmt.Errorf("inserting stat %s: %w", name, err)
		}
	}

	for i, m := range rec.Moves {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entity_moves (entity_id, position, name, level, power, accuracy, type, category)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, m.Name, m.Level, m.Power, m.Accuracy, m.Type, m.Category,
		); err != nil {
			return fmt.Errorf("inserting move %s: %w", m.Name, err)
		}
	}

	return tx.Commit()
}

// Finalize records the run summary.
func (w *SQLiteWriter) Finalize(ctx context.Context, summary *plugin.CrawlSummary) error {
	_, err := w.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO crawl_runs
		 (run_id, start_url, started_at, finished_at, pages_fetched, pages_failed, records, cancelled, cancel_cause)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.StartURL, summary.StartedAt, summary.FinishedAt,
		summary.Stats.PagesFetched, summary.Stats.PagesFailed, summary.Stats.RecordsEmitted,
		summary.Cancelled, summary.CancelCause,
	)
	if err != nil {
		return fmt.Errorf("inserting run summary: %w", err)
	}
	return nil
}

func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
