package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/parsatv/imvbox/internal/urls"
	"github.com/parsatv/imvbox/internal/util"
)

// EpisodeItem is one row of a parsed season page.
type EpisodeItem struct {
	Title        string
	Season       int
	Number       int
	URL          string
	ThumbnailURL string
	Runtime      int
}

var (
	episodeHrefRe = regexp.MustCompile(`/season-(\d+)/episode-(\d+)`)
	seasonHrefRe  = regexp.MustCompile(`/season-(\d+)`)
)

// episodeKey identifies one (season, episode) slot in the merge map.
type episodeKey struct {
	season, episode int
}

// ParseEpisodeList extracts the episodes of one season. Three structures
// are tried in turn; whichever matches, all discoveries funnel through the
// same merge rule: the first entry for a (season, episode) pair wins unless
// a later one brings a thumbnail the first lacked.
func (p *Parser) ParseEpisodeList(doc *goquery.Document, season int) []EpisodeItem {
	defer recoverParse("ParseEpisodeList")

	found := map[episodeKey]EpisodeItem{}
	var order []episodeKey
	add := func(item EpisodeItem) {
		key := episodeKey{item.Season, item.Number}
		if existing, ok := found[key]; ok {
			if existing.ThumbnailURL == "" && item.ThumbnailURL != "" {
				item.Runtime = maxInt(item.Runtime, existing.Runtime)
				found[key] = item
			}
			return
		}
		found[key] = item
		order = append(order, key)
	}

	// Tier 1: dedicated episode container blocks.
	doc.Find(".episode-item, .episode-card, li.episode").Each(func(_ int, s *goquery.Selection) {
		if item, ok := p.episodeFromContainer(s, season); ok {
			add(item)
		}
	})

	// Tier 2: bare episode links, pulling extras from the parent node.
	if len(found) == 0 {
		doc.Find("a[href*='/episode-']").Each(func(_ int, a *goquery.Selection) {
			if item, ok := p.episodeFromLink(a, season); ok {
				add(item)
			}
		})
	}

	// Tier 3: legacy generic selectors with positional numbering.
	if len(found) == 0 {
		for _, sel := range []string{".episodes-list a", ".season-content a", "ul.list-episodes li a"} {
			matches := doc.Find(sel)
			if matches.Length() == 0 {
				continue
			}
			matches.Each(func(i int, a *goquery.Selection) {
				href, ok := a.Attr("href")
				if !ok {
					return
				}
				add(EpisodeItem{
					Title:        episodeTitle(a, season, i+1),
					Season:       season,
					Number:       i + 1,
					URL:          urls.Resolve(href),
					ThumbnailURL: p.ExtractThumbnail(a.Parent()),
				})
			})
			break
		}
	}

	out := make([]EpisodeItem, 0, len(found))
	for _, key := range order {
		out = append(out, found[key])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	util.Debugf("parser: season %d: %d episodes", season, len(out))
	return out
}

func (p *Parser) episodeFromContainer(s *goquery.Selection, wantSeason int) (EpisodeItem, bool) {
	a := s.Find("a[href*='/episode-']").First()
	href, ok := a.Attr("href")
	if !ok {
		return EpisodeItem{}, false
	}
	season, number, ok := matchEpisodeHref(href, wantSeason)
	if !ok {
		return EpisodeItem{}, false
	}
	item := EpisodeItem{
		Title:        episodeTitle(s, season, number),
		Season:       season,
		Number:       number,
		URL:          urls.Resolve(href),
		ThumbnailURL: p.ExtractThumbnail(s),
	}
	if d, ok := parseDuration(s.Find(".duration, .runtime").First().Text()); ok {
		item.Runtime = d
	}
	return item, true
}

func (p *Parser) episodeFromLink(a *goquery.Selection, wantSeason int) (EpisodeItem, bool) {
	href, ok := a.Attr("href")
	if !ok {
		return EpisodeItem{}, false
	}
	season, number, ok := matchEpisodeHref(href, wantSeason)
	if !ok {
		return EpisodeItem{}, false
	}
	parent := a.Parent()
	item := EpisodeItem{
		Title:        episodeTitle(parent, season, number),
		Season:       season,
		Number:       number,
		URL:          urls.Resolve(href),
		ThumbnailURL: p.ExtractThumbnail(parent),
	}
	if d, ok := parseDuration(parent.Find(".duration, .runtime").First().Text()); ok {
		item.Runtime = d
	}
	return item, true
}

// matchEpisodeHref validates an episode href against the season being
// parsed; season pages can still link episodes of other seasons from the
// season switcher.
func matchEpisodeHref(href string, wantSeason int) (season, number int, ok bool) {
	m := episodeHrefRe.FindStringSubmatch(href)
	if m == nil {
		return 0, 0, false
	}
	season, _ = firstInt(m[1])
	number, _ = firstInt(m[2])
	if wantSeason > 0 && season != wantSeason {
		return 0, 0, false
	}
	return season, number, true
}

func episodeTitle(s *goquery.Selection, season, number int) string {
	for _, sel := range []string{".episode-title", "h5", "h6", ".title"} {
		if t := strings.TrimSpace(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return fmt.Sprintf("Episode %d", number)
}

// MaxSeason finds the highest season number linked from a season page.
func MaxSeason(doc *goquery.Document) int {
	max := 1
	doc.Find("a[href*='/season-']").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := seasonHrefRe.FindStringSubmatch(href)
		if m != nil {
			if n, ok := firstInt(m[1]); ok && n > max {
				max = n
			}
		}
	})
	return max
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
