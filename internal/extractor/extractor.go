// Package extractor turns fetched pages into outbound links and entity records.
package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MissingMovesPolicy decides what happens when an entity page has no
// level-up move block at all.
type MissingMovesPolicy string

const (
	// MissingMovesFail rejects the page with a MalformedPageError.
	MissingMovesFail MissingMovesPolicy = "fail"
	// MissingMovesEmpty yields a record with an empty move list.
	MissingMovesEmpty MissingMovesPolicy = "empty"
)

// BadMoveRowPolicy decides what happens to a move row whose level does not
// parse or whose numeric cell count is wrong.
type BadMoveRowPolicy string

const (
	// BadMoveRowSkip drops the row and keeps the rest of the page.
	BadMoveRowSkip BadMoveRowPolicy = "skip"
	// BadMoveRowFail rejects the whole page.
	BadMoveRowFail BadMoveRowPolicy = "fail"
)

// Selectors locates the structural blocks of the site's pages.
type Selectors struct {
	CategoryLink string `mapstructure:"category_link"`
	EntityCard   string `mapstructure:"entity_card"`
	EntityLink   string `mapstructure:"entity_link"`
	EntityName   string `mapstructure:"entity_name"`
	DexHeading   string `mapstructure:"dex_heading"`
	StatsHeading string `mapstructure:"stats_heading"`
	MovesHeading string `mapstructure:"moves_heading"`
}

// DefaultSelectors returns the selectors for pokemondb.net.
func DefaultSelectors() Selectors {
	return Selectors{
		CategoryLink: "a.type-icon",
		EntityCard:   "div.infocard",
		EntityLink:   "a.ent-name",
		EntityName:   "main#main h1",
		DexHeading:   "Pokédex data",
		StatsHeading: "Base stats",
		MovesHeading: "Moves learnt by level up",
	}
}

func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if s.CategoryLink == "" {
		s.CategoryLink = d.CategoryLink
	}
	if s.EntityCard == "" {
		s.EntityCard = d.EntityCard
	}
	if s.EntityLink == "" {
		s.EntityLink = d.EntityLink
	}
	if s.EntityName == "" {
		s.EntityName = d.EntityName
	}
	if s.DexHeading == "" {
		s.DexHeading = d.DexHeading
	}
	if s.StatsHeading == "" {
		s.StatsHeading = d.StatsHeading
	}
	if s.MovesHeading == "" {
		s.MovesHeading = d.MovesHeading
	}
	return s
}

// Options configures an Extractor. Zero values select the defaults.
type Options struct {
	Selectors    Selectors
	MissingMoves MissingMovesPolicy
	BadMoveRow   BadMoveRowPolicy
}

// Extractor holds parsing configuration. It has no mutable state and is
// safe for concurrent use.
type Extractor struct {
	sel          Selectors
	missingMoves MissingMovesPolicy
	badMoveRow   BadMoveRowPolicy
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	e := &Extractor{
		sel:          opts.Selectors.withDefaults(),
		missingMoves: opts.MissingMoves,
		badMoveRow:   opts.BadMoveRow,
	}
	if e.missingMoves == "" {
		e.missingMoves = MissingMovesFail
	}
	if e.badMoveRow == "" {
		e.badMoveRow = BadMoveRowSkip
	}
	return e
}

// ParseMissingMovesPolicy validates a policy name from configuration.
func ParseMissingMovesPolicy(s string) (MissingMovesPolicy, error) {
	switch p := MissingMovesPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return MissingMovesFail, nil
	case MissingMovesFail, MissingMovesEmpty:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing-moves policy %q (want fail or empty)", s)
	}
}

// ParseBadMoveRowPolicy validates a policy name from configuration.
func ParseBadMoveRowPolicy(s string) (BadMoveRowPolicy, error) {
	switch p := BadMoveRowPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return BadMoveRowSkip, nil
	case BadMoveRowSkip, BadMoveRowFail:
		return p, nil
	default:
		return "", fmt.Errorf("unknown bad-move-row policy %q (want skip or fail)", s)
	}
}

func parseDocument(page []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// sectionByHeading returns the first div that has a direct heading child
// of the given tag whose text contains title.
func sectionByHeading(doc *goquery.Document, tag, title string) *goquery.Selection {
	return doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ChildrenFiltered(tag).FilterFunction(func(_ int, h *goquery.Selection) bool {
			return strings.Contains(h.Text(), title)
		}).Length() > 0
	}).First()
}
