package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/parsatv/imvbox/internal/models"
	"github.com/parsatv/imvbox/internal/util"
)

// jsonLD is the subset of the site's schema.org embed we care about. The
// block is the only reliable source for duration; everything else has DOM
// fallbacks.
type jsonLD struct {
	Duration      string          `json:"duration"`
	DatePublished string          `json:"datePublished"`
	UploadDate    string          `json:"uploadDate"`
	Genre         json.RawMessage `json:"genre"`
	Director      json.RawMessage `json:"director"`
	Actor         json.RawMessage `json:"actor"`
	AggregateRating *struct {
		RatingValue json.Number `json:"ratingValue"`
	} `json:"aggregateRating"`
	InteractionStatistic json.RawMessage `json:"interactionStatistic"`
}

var (
	writerRe   = regexp.MustCompile(`(?i)Writers?[:\s]+([^\n]+)`)
	producerRe = regexp.MustCompile(`(?i)Producers?[:\s]+([^\n]+)`)
)

// ParseMovieMetadata extracts the full detail-page record. Returns ok=false
// only when not even a title can be located; every other field degrades
// individually.
func (p *Parser) ParseMovieMetadata(doc *goquery.Document) (models.MovieMetadata, bool) {
	defer recoverParse("ParseMovieMetadata")

	var md models.MovieMetadata

	md.Title = detailTitle(doc)
	if md.Title == "" {
		util.Debug("parser: detail page has no title")
		return models.MovieMetadata{}, false
	}
	md.TitleFa = strings.TrimSpace(doc.Find(".title-fa, h2.farsi-title").First().Text())

	if c, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		md.Description = strings.TrimSpace(c)
	}
	if c, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		md.PosterURL = c
	}
	if y, ok := parseYear(doc.Find("span.year, span.moviepage-year, .movie-year").First().Text()); ok {
		md.Year = y
	}

	if ld, ok := parseJSONLD(doc); ok {
		applyJSONLD(&md, ld)
	}

	// Free-text crew patterns; the site lists crew outside the JSON-LD block.
	pageText := doc.Text()
	if m := writerRe.FindStringSubmatch(pageText); m != nil {
		md.Writer = strings.TrimSpace(m[1])
	}
	if m := producerRe.FindStringSubmatch(pageText); m != nil {
		md.Producer = strings.TrimSpace(m[1])
	}

	if len(md.Genres) == 0 {
		md.Genres = genreLinks(doc)
	}
	if md.Runtime == 0 {
		if d, ok := parseDuration(doc.Find(".runtime, .duration, span.movie-runtime").First().Text()); ok {
			md.Runtime = d
		}
	}

	return md, true
}

func detailTitle(doc *goquery.Document) string {
	if c, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if t := strings.TrimSpace(c); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	t := strings.TrimSpace(doc.Find("title").First().Text())
	// Site titles carry a " | IMVBox" suffix.
	if i := strings.Index(t, "|"); i > 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

func parseJSONLD(doc *goquery.Document) (jsonLD, bool) {
	raw := doc.Find(`script[type="application/ld+json"]`).First().Text()
	if strings.TrimSpace(raw) == "" {
		return jsonLD{}, false
	}
	// Some pages wrap the object in a one-element array.
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		var list []jsonLD
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil || len(list) == 0 {
			return jsonLD{}, false
		}
		return list[0], true
	}
	var ld jsonLD
	if err := json.Unmarshal([]byte(trimmed), &ld); err != nil {
		return jsonLD{}, false
	}
	return ld, true
}

func applyJSONLD(md *models.MovieMetadata, ld jsonLD) {
	if d, ok := parseDuration(ld.Duration); ok {
		md.Runtime = d
	}
	if md.Year == 0 {
		if y, ok := parseYear(ld.DatePublished); ok {
			md.Year = y
		}
	}
	md.UploadDate = ld.UploadDate
	if ld.AggregateRating != nil {
		if r, err := ld.AggregateRating.RatingValue.Float64(); err == nil && r > 0 {
			md.Rating = r
		}
	}
	if genres := stringOrList(ld.Genre); len(genres) > 0 {
		md.Genres = genres
	}
	if names := personNames(ld.Director); names != "" {
		md.Director = names
	}
	if names := personNames(ld.Actor); names != "" {
		md.Cast = names
	}
	md.ViewCount = watchCount(ld.InteractionStatistic)
}

// stringOrList decodes a JSON-LD field that is either "Drama" or ["Drama", ...].
func stringOrList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}

// personNames decodes a schema.org person field that is either one object
// or a list of them, joining names with commas.
func personNames(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	type person struct {
		Name string `json:"name"`
	}
	var one person
	if err := json.Unmarshal(raw, &one); err == nil && one.Name != "" {
		return one.Name
	}
	var list []person
	if err := json.Unmarshal(raw, &list); err == nil {
		var names []string
		for _, p := range list {
			if p.Name != "" {
				names = append(names, p.Name)
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}

func watchCount(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	type stat struct {
		InteractionType        string      `json:"interactionType"`
		UserInteractionCount   json.Number `json:"userInteractionCount"`
	}
	var one stat
	if err := json.Unmarshal(raw, &one); err == nil {
		if n, err := one.UserInteractionCount.Int64(); err == nil {
			return n
		}
	}
	var list []stat
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, s := range list {
			if strings.Contains(s.InteractionType, "WatchAction") {
				if n, err := s.UserInteractionCount.Int64(); err == nil {
					return n
				}
			}
		}
	}
	return 0
}

func genreLinks(doc *goquery.Document) []string {
	var genres []string
	seen := map[string]bool{}
	doc.Find(`a[href*="/genre/"]`).Each(func(_ int, s *goquery.Selection) {
		g := strings.TrimSpace(s.Text())
		if g != "" && !seen[g] {
			seen[g] = true
			genres = append(genres, g)
		}
	})
	return genres
}
