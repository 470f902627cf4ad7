package extractor

import (
	"errors"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// Block names used in MalformedPageError.
const (
	BlockDexData = "pokedex data"
	BlockStats   = "base stats"
	BlockMoves   = "level-up moves"
)

// Result is a record together with the move rows that were dropped while
// building it.
type Result struct {
	Record  *plugin.EntityRecord
	Skipped []RowIssue
}

// Extract parses an entity page into a record. It fails with a
// *MalformedPageError when a required block is absent or mis-shaped; no
// partial record is returned in that case.
func (e *Extractor) Extract(page []byte) (*plugin.EntityRecord, error) {
	res, err := e.ExtractDetailed(page)
	if err != nil {
		return nil, err
	}
	return res.Record, nil
}

// ExtractDetailed is Extract plus the list of skipped move rows.
func (e *Extractor) ExtractDetailed(page []byte) (*Result, error) {
	return e.extract(page, "")
}

// ExtractPage is ExtractDetailed for a fetched page. The record carries the
// URL the page was served from.
func (e *Extractor) ExtractPage(page *plugin.PageData) (*Result, error) {
	return e.extract(page.Markup(), page.BaseURL())
}

func (e *Extractor) extract(page []byte, sourceURL string) (*Result, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	number, err := e.number(doc)
	if err != nil {
		return nil, err
	}

	attrs, err := e.stats(doc)
	if err != nil {
		return nil, err
	}

	moves, skipped, err := e.moves(doc)
	if err != nil {
		return nil, err
	}

	return &Result{
		Record: &plugin.EntityRecord{
			Name:       strings.TrimSpace(doc.Find(e.sel.EntityName).First().Text()),
			Number:     number,
			Attributes: attrs,
			Moves:      moves,
			SourceURL:  sourceURL,
		},
		Skipped: skipped,
	}, nil
}

func (e *Extractor) number(doc *goquery.Document) (int, error) {
	section := sectionByHeading(doc, "h2", e.sel.DexHeading)
	if section.Length() == 0 {
		return 0, malformed(BlockDexData, "block not found", nil)
	}
	table := section.Find("table").First()
	if table.Length() == 0 {
		return 0, malformed(BlockDexData, "no table", nil)
	}
	strong := table.Find("strong").First()
	if strong.Length() == 0 {
		return 0, malformed(BlockDexData, "no number", nil)
	}

	text := strings.TrimSpace(strong.Text())
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, malformed(BlockDexData, "", &FieldParseError{Field: "number", Text: text, Err: err})
	}
	if n <= 0 {
		return 0, malformed(BlockDexData, "", &FieldParseError{Field: "number", Text: text, Err: errors.New("not positive")})
	}
	return n, nil
}

// tableBody finds the tbody of the first table directly inside a div
// child of section.
func tableBody(section *goquery.Selection) *goquery.Selection {
	return section.ChildrenFiltered("div").ChildrenFiltered("table").First().ChildrenFiltered("tbody").First()
}

func (e *Extractor) stats(doc *goquery.Document) (map[string]plugin.StatEntry, error) {
	section := sectionByHeading(doc, "h2", e.sel.StatsHeading)
	if section.Length() == 0 {
		return nil, malformed(BlockStats, "block not found", nil)
	}
	tbody := tableBody(section)
	if tbody.Length() == 0 {
		return nil, malformed(BlockStats, "no table", nil)
	}

	attrs := make(map[string]plugin.StatEntry)
	var rowErr error
	tbody.ChildrenFiltered("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		row := parseRow(tr)
		if !row.hasLabel {
			rowErr = malformed(BlockStats, "row "+strconv.Itoa(i+1)+": missing label", nil)
			return false
		}
		entry, err := statEntry(row)
		if err != nil {
			rowErr = malformed(BlockStats, "row "+row.label, err)
			return false
		}
		attrs[row.label] = entry
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return attrs, nil
}

func statEntry(row parsedRow) (plugin.StatEntry, error) {
	nums, err := row.numbers(3)
	if err != nil {
		return plugin.StatEntry{}, err
	}
	start, err := parseInt("start", nums[0])
	if err != nil {
		return plugin.StatEntry{}, err
	}
	lo, err := parseInt("min", nums[1])
	if err != nil {
		return plugin.StatEntry{}, err
	}
	hi, err := parseInt("max", nums[2])
	if err != nil {
		return plugin.StatEntry{}, err
	}
	return plugin.StatEntry{Start: start, Min: lo, Max: hi}, nil
}

func (e *Extractor) moves(doc *goquery.Document) ([]plugin.MoveEntry, []RowIssue, error) {
	moves := []plugin.MoveEntry{}

	section := sectionByHeading(doc, "h3", e.sel.MovesHeading)
	if section.Length() == 0 {
		if e.missingMoves == MissingMovesEmpty {
			return moves, nil, nil
		}
		return nil, nil, malformed(BlockMoves, "block not found", nil)
	}
	tbody := tableBody(section)
	if tbody.Length() == 0 {
		return nil, nil, malformed(BlockMoves, "no table", nil)
	}

	var (
		skipped []RowIssue
		pageErr error
	)
	tbody.ChildrenFiltered("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		row := parseRow(tr)
		if !row.hasName {
			skipped = append(skipped, RowIssue{Row: i + 1, Err: errors.New("missing move name")})
			return true
		}
		move, err := moveEntry(row)
		if err != nil {
			if e.badMoveRow == BadMoveRowFail {
				pageErr = malformed(BlockMoves, "move "+row.name, err)
				return false
			}
			skipped = append(skipped, RowIssue{Row: i + 1, Err: err})
			return true
		}
		moves = append(moves, move)
		return true
	})
	if pageErr != nil {
		return nil, nil, pageErr
	}
	return moves, skipped, nil
}

func moveEntry(row parsedRow) (plugin.MoveEntry, error) {
	nums, err := row.numbers(3)
	if err != nil {
		return plugin.MoveEntry{}, err
	}
	level, err := parseInt("level", nums[0])
	if err != nil {
		return plugin.MoveEntry{}, err
	}
	return plugin.MoveEntry{
		Name:     row.name,
		Level:    level,
		Power:    parseIntOrZero(nums[1]),
		Accuracy: parseIntOrZero(nums[2]),
		Type:     row.typeName,
		Category: row.category,
	}, nil
}
