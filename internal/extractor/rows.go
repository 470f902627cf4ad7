package extractor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parsedRow is one table row reduced to the cells the stat and move
// blocks care about. Optional cells carry an explicit presence flag so a
// missing cell and an empty one are told apart.
type parsedRow struct {
	label    string
	hasLabel bool

	name    string
	hasName bool

	nums []string

	typeName string

	category string
}

func parseRow(row *goquery.Selection) parsedRow {
	var r parsedRow

	if th := row.ChildrenFiltered("th").First(); th.Length() > 0 {
		r.label = strings.TrimSpace(th.Text())
		r.hasLabel = r.label != ""
	}

	if a := row.ChildrenFiltered("td.cell-name").Find("a").First(); a.Length() > 0 {
		r.name = strings.TrimSpace(a.Text())
		r.hasName = r.name != ""
	}

	row.ChildrenFiltered("td.cell-num").Each(func(_ int, td *goquery.Selection) {
		r.nums = append(r.nums, strings.TrimSpace(td.Text()))
	})

	icons := row.ChildrenFiltered("td.cell-icon")
	r.typeName = strings.TrimSpace(icons.Find("a").First().Text())
	// the category is only ever conveyed by the icon's alt text
	alt, _ := icons.Find("img").First().Attr("alt")
	r.category = strings.TrimSpace(alt)

	return r
}

// numbers returns the numeric cell texts if there are exactly want of them.
func (r parsedRow) numbers(want int) ([]string, error) {
	if len(r.nums) != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCellCount, len(r.nums), want)
	}
	return r.nums, nil
}

// parseInt parses a cell as a non-negative integer.
func parseInt(field, text string) (int, error) {
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, &FieldParseError{Field: field, Text: text, Err: err}
	}
	if n < 0 {
		return 0, &FieldParseError{Field: field, Text: text, Err: errors.New("negative value")}
	}
	return n, nil
}

// parseIntOrZero parses a cell, substituting the sentinel 0 when the page
// shows no usable value (e.g. an em dash for status moves).
func parseIntOrZero(text string) int {
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
