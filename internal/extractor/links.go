package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ramkansal/dexscrape/pkg/plugin"
)

// Discover returns the outbound links on page that point to pages of the
// given role, in document order. Hrefs are returned as written; the caller
// resolves them against the page URL. A page without matching anchors
// yields an empty slice and no error.
func (e *Extractor) Discover(page []byte, role plugin.Role) ([]string, error) {
	if role != plugin.RoleCategory && role != plugin.RoleEntity {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRole, role)
	}

	doc, err := parseDocument(page)
	if err != nil {
		return nil, err
	}

	links := []string{}
	collect := func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		if href = strings.TrimSpace(href); href != "" {
			links = append(links, href)
		}
	}

	switch role {
	case plugin.RoleCategory:
		doc.Find(e.sel.CategoryLink).Each(collect)
	case plugin.RoleEntity:
		doc.Find(e.sel.EntityCard).Each(func(_ int, card *goquery.Selection) {
			card.Find(e.sel.EntityLink).Each(collect)
		})
	}

	return links, nil
}
