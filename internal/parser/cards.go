package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/parsatv/imvbox/internal/urls"
	"github.com/parsatv/imvbox/internal/util"
)

// MovieCard is one grid entry on a movie listing page.
type MovieCard struct {
	Title     string
	TitleFa   string
	Slug      string
	URL       string
	PosterURL string
	Year      int
	Rating    float64
}

// SeriesCard is one grid entry on a TV series listing page.
type SeriesCard struct {
	Title        string
	TitleFa      string
	Slug         string
	URL          string
	PosterURL    string
	Year         int
	Rating       float64
	TotalSeasons int
}

// cardSelectors are tried in order; the first selector with any matches
// wins outright. Merging selectors would double-count cards when the site
// keeps legacy markup around.
var cardSelectors = []string{
	"div.card",
	"div.movie-card",
	"article.item",
	".content-grid .col",
}

var titleSelectors = []string{
	"h5.card-title",
	"h3.title",
	".card-body a",
	"a[title]",
}

var yearSelectors = []string{
	"span.year",
	"span.moviepage-year",
	".movie-year",
	".card-meta .year",
}

var ratingSelectors = []string{
	"span.rating",
	".imdb-rating",
	".card-meta .rating",
}

// ParseMovieCards extracts movie cards from a listing page. Cards without
// a resolvable link or title are dropped silently.
func (p *Parser) ParseMovieCards(doc *goquery.Document) []MovieCard {
	defer recoverParse("ParseMovieCards")

	var cards []MovieCard
	eachCard(doc, func(s *goquery.Selection) {
		href, ok := cardLink(s, "/movies/")
		if !ok {
			return
		}
		slug, ok := urls.ExtractMovieSlug(href)
		if !ok || slug == "movies" {
			return
		}
		title := firstText(s, titleSelectors)
		if title == "" {
			return
		}
		cards = append(cards, MovieCard{
			Title:     title,
			TitleFa:   localizedTitle(s),
			Slug:      slug,
			URL:       urls.Resolve(href),
			PosterURL: p.ExtractThumbnail(s),
			Year:      firstYear(s, yearSelectors),
			Rating:    firstRating(s, ratingSelectors),
		})
	})
	util.Debugf("parser: %d movie cards", len(cards))
	return cards
}

// ParseSeriesCards extracts series cards from a listing page.
func (p *Parser) ParseSeriesCards(doc *goquery.Document) []SeriesCard {
	defer recoverParse("ParseSeriesCards")

	var cards []SeriesCard
	eachCard(doc, func(s *goquery.Selection) {
		href, ok := cardLink(s, "/shows/")
		if !ok {
			return
		}
		slug, ok := urls.ExtractShowSlug(href)
		if !ok || slug == "shows" || slug == "tv-series" {
			return
		}
		title := firstText(s, titleSelectors)
		if title == "" {
			return
		}
		cards = append(cards, SeriesCard{
			Title:        title,
			TitleFa:      localizedTitle(s),
			Slug:         slug,
			URL:          urls.Resolve(href),
			PosterURL:    p.ExtractThumbnail(s),
			Year:         firstYear(s, yearSelectors),
			Rating:       firstRating(s, ratingSelectors),
			TotalSeasons: seasonCount(s),
		})
	})
	util.Debugf("parser: %d series cards", len(cards))
	return cards
}

// HasNextPage reports whether a listing page links to the page after the
// given one.
func HasNextPage(doc *goquery.Document, page int) bool {
	if doc.Find(`a.page-link[rel="next"]`).Length() > 0 {
		return true
	}
	found := false
	doc.Find("a[href*='page=']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if strings.Contains(href, pageParam(page+1)) {
			found = true
			return false
		}
		return true
	})
	return found
}

func pageParam(page int) string {
	return "page=" + itoa(page)
}

// eachCard runs fn over the card set matched by the first productive
// selector candidate.
func eachCard(doc *goquery.Document, fn func(*goquery.Selection)) {
	for _, sel := range cardSelectors {
		matches := doc.Find(sel)
		if matches.Length() == 0 {
			continue
		}
		matches.Each(func(_ int, s *goquery.Selection) { fn(s) })
		return
	}
}

// cardLink finds the content link inside a card, skipping category and
// query links that also live under the same path prefix.
func cardLink(s *goquery.Selection, pathPrefix string) (string, bool) {
	href := ""
	s.Find("a[href*='" + pathPrefix + "']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if h == "" || strings.Contains(h, "?") {
			return true
		}
		for _, skip := range []string{"/trending", "/subtitled", "/feature-film", "/documentary", "/theatre", "/genre/"} {
			if strings.Contains(h, skip) {
				return true
			}
		}
		href = h
		return false
	})
	return href, href != ""
}

// localizedTitle returns the Farsi title when the card carries one.
func localizedTitle(s *goquery.Selection) string {
	for _, sel := range []string{".card-subtitle", ".title-fa", "h6.card-subtitle"} {
		if t := strings.TrimSpace(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func seasonCount(s *goquery.Selection) int {
	for _, sel := range []string{".seasons-count", ".card-meta .seasons"} {
		if n, ok := firstInt(strings.TrimSpace(s.Find(sel).First().Text())); ok {
			return n
		}
	}
	return 0
}

// firstText returns the first non-blank text among the selector candidates.
func firstText(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		el := s.Find(sel).First()
		if t := strings.TrimSpace(el.Text()); t != "" {
			return t
		}
		if t, ok := el.Attr("title"); ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
	}
	return ""
}

func firstYear(s *goquery.Selection, selectors []string) int {
	for _, sel := range selectors {
		if y, ok := parseYear(s.Find(sel).First().Text()); ok {
			return y
		}
	}
	return 0
}

func firstRating(s *goquery.Selection, selectors []string) float64 {
	for _, sel := range selectors {
		if r, ok := parseRating(s.Find(sel).First().Text()); ok {
			return r
		}
	}
	return 0
}
