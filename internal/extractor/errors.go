package extractor

import (
	"errors"
	"fmt"
)

// ErrUnsupportedRole is returned by Discover for roles that have no outbound links.
var ErrUnsupportedRole = errors.New("no link rule for role")

// ErrCellCount marks a table row whose numeric cell count does not match its block.
var ErrCellCount = errors.New("unexpected numeric cell count")

// MalformedPageError reports a required block that is missing or mis-shaped.
// It fails the page it came from and nothing else.
type MalformedPageError struct {
	Block  string
	Reason string
	Err    error
}

func (e *MalformedPageError) Error() string {
	msg := "malformed page: " + e.Block
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedPageError) Unwrap() error { return e.Err }

// FieldParseError reports a single cell whose text is not the expected number.
type FieldParseError struct {
	Field string
	Text  string
	Err   error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("field %s: cannot parse %q: %v", e.Field, e.Text, e.Err)
}

func (e *FieldParseError) Unwrap() error { return e.Err }

// RowIssue describes a move row that was dropped from a record.
type RowIssue struct {
	Row int // 1-based position within the table body
	Err error
}

func (r RowIssue) String() string {
	return fmt.Sprintf("row %d: %v", r.Row, r.Err)
}

func malformed(block, reason string, err error) *MalformedPageError {
	return &MalformedPageError{Block: block, Reason: reason, Err: err}
}
