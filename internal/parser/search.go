package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/parsatv/imvbox/internal/models"
	"github.com/parsatv/imvbox/internal/urls"
	"github.com/parsatv/imvbox/internal/util"
)

// ParseSearchResults extracts movie/series hits from a search results page.
// The site renders two layouts on the same page (mobile cards and desktop
// covers), usually referencing the same URLs, so results merge into one
// list de-duplicated by absolute URL. Cast hits are dropped: the search
// endpoint also returns people, which are not playable content.
func (p *Parser) ParseSearchResults(doc *goquery.Document) []models.SearchResult {
	defer recoverParse("ParseSearchResults")

	var results []models.SearchResult
	seen := map[string]bool{}
	add := func(r models.SearchResult) {
		if r.URL == "" || seen[r.URL] {
			return
		}
		seen[r.URL] = true
		results = append(results, r)
	}

	// Mobile card layout.
	doc.Find(".search-result-card, .media-card, div.card").Each(func(_ int, s *goquery.Selection) {
		if r, ok := p.searchResultFrom(s, s.Find("a").First()); ok {
			add(r)
		}
	})

	// Desktop cover layout.
	doc.Find(".cover-item a, .search-covers a, a.cover").Each(func(_ int, a *goquery.Selection) {
		if r, ok := p.searchResultFrom(a.Parent(), a); ok {
			add(r)
		}
	})

	util.Debugf("parser: %d search results", len(results))
	return results
}

func (p *Parser) searchResultFrom(container, link *goquery.Selection) (models.SearchResult, bool) {
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return models.SearchResult{}, false
	}

	abs := urls.Resolve(href)
	var typ models.MediaType
	var slug string
	switch {
	case strings.Contains(abs, "/movies/"):
		typ = models.MediaTypeMovie
		slug, ok = urls.ExtractMovieSlug(abs)
	case strings.Contains(abs, "/shows/"):
		typ = models.MediaTypeSeries
		slug, ok = urls.ExtractShowSlug(abs)
	default:
		// Cast and other non-content hits.
		return models.SearchResult{}, false
	}
	if !ok || slug == "" {
		return models.SearchResult{}, false
	}

	title := firstText(container, titleSelectors)
	if title == "" {
		title = strings.TrimSpace(link.Text())
	}
	if title == "" {
		return models.SearchResult{}, false
	}

	return models.SearchResult{
		Title:        title,
		Type:         typ,
		Slug:         slug,
		ThumbnailURL: p.ExtractThumbnail(container),
		URL:          abs,
	}, true
}

// ExtractCSRFToken finds the per-session anti-forgery token the site
// requires for POST search.
func ExtractCSRFToken(doc *goquery.Document) (string, bool) {
	if c, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content"); ok && c != "" {
		return c, true
	}
	if v, ok := doc.Find(`input[name="_token"]`).First().Attr("value"); ok && v != "" {
		return v, true
	}
	return "", false
}
