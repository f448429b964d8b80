package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/parsatv/imvbox/internal/urls"
	"github.com/parsatv/imvbox/internal/util"
)

var (
	hlsURLRe = regexp.MustCompile(`https?://stream\.imvbox\.com/media/[^"'\s\\]+\.m3u8`)

	ytEmbedRe = regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`)
	ytWatchRe = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([A-Za-z0-9_-]{11})`)
	ytIDRe    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractHLSURL scans a play page for HLS sources and returns the first
// candidate that is actual content. The site serves the real stream first
// among its <source>/script references with trailers and intro bumpers
// interspersed, so order-preserving first-match is the right pick; every
// candidate is the same adaptive format, there is no "best quality" to hunt.
func (p *Parser) ExtractHLSURL(doc *goquery.Document) (string, bool) {
	defer recoverParse("ExtractHLSURL")

	var candidates []string

	// Surface 1: explicit media source tags.
	doc.Find(`source[src*=".m3u8"], video[src*=".m3u8"]`).Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			candidates = append(candidates, src)
		}
	})

	// Surface 2: inline script text referencing the streaming host.
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		for _, m := range hlsURLRe.FindAllString(s.Text(), -1) {
			candidates = append(candidates, m)
		}
	})

	// Surface 3: lazy data attributes on player shells.
	doc.Find(`[data-hls], [data-stream], [data-src*=".m3u8"]`).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"data-hls", "data-stream", "data-src"} {
			if v, ok := s.Attr(attr); ok && strings.Contains(v, ".m3u8") {
				candidates = append(candidates, v)
			}
		}
	})

	merged := dedupeByMediaID(candidates)
	util.Debugf("parser: %d HLS candidates (%d merged)", len(candidates), len(merged))

	for _, u := range merged {
		if urls.IsTrailerURL(u) {
			continue
		}
		if id, ok := urls.ExtractMediaID(u); ok && p.IsIntroMediaID(id) {
			continue
		}
		return u, true
	}
	return "", false
}

// dedupeByMediaID preserves order, collapsing candidates that point at the
// same media id (the same stream referenced from a tag and a script var).
func dedupeByMediaID(candidates []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, u := range candidates {
		key := u
		if id, ok := urls.ExtractMediaID(u); ok && !urls.IsTrailerURL(u) {
			key = id
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}

// RequiresSubscription reports whether a play page is truly gated behind a
// plus membership. Any player-shaped element anywhere in the document is
// proof the content is playable: the site upsells premium subtitles on free
// content with the same membership wording, so the call-to-action text alone
// is not a signal.
func (p *Parser) RequiresSubscription(doc *goquery.Document) bool {
	defer recoverParse("RequiresSubscription")

	playerish := doc.Find(`video, .video-js, #player, iframe, source[src*=".m3u8"]`)
	if playerish.Length() > 0 {
		return false
	}
	body := strings.ToLower(doc.Find("body").Text())
	return strings.Contains(body, "become a plus member")
}

// ExtractYouTubeID finds the 11-character YouTube video id on a play page.
// The player-configuration attribute is primary: that is where the site
// parks the actual trailer/fallback id in static HTML, before any script
// builds the iframe.
func (p *Parser) ExtractYouTubeID(doc *goquery.Document) (string, bool) {
	defer recoverParse("ExtractYouTubeID")

	// Tier 1: player configuration attribute.
	for _, sel := range []string{"[data-plyr-embed-id]", "[data-youtube-id]"} {
		id := strings.TrimSpace(doc.Find(sel).First().AttrOr(attrName(sel), ""))
		if ytIDRe.MatchString(id) {
			return id, true
		}
	}

	// Tier 2: iframe embed URL.
	if src, ok := doc.Find(`iframe[src*="youtube.com/embed"]`).First().Attr("src"); ok {
		if m := ytEmbedRe.FindStringSubmatch(src); m != nil {
			return m[1], true
		}
	}

	// Tier 3: inline script text.
	found := ""
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := ytEmbedRe.FindStringSubmatch(s.Text()); m != nil {
			found = m[1]
			return false
		}
		return true
	})
	if found != "" {
		return found, true
	}

	// Tier 4: any watch-URL style reference in the document.
	if m := ytWatchRe.FindStringSubmatch(docHTML(doc)); m != nil {
		return m[1], true
	}

	// Tier 5: generic data attributes.
	id := strings.TrimSpace(doc.Find("[data-video-id]").First().AttrOr("data-video-id", ""))
	if ytIDRe.MatchString(id) {
		return id, true
	}
	return "", false
}

// attrName strips the selector brackets to get the attribute to read back.
func attrName(sel string) string {
	return strings.Trim(sel, "[]")
}

func docHTML(doc *goquery.Document) string {
	html, err := doc.Html()
	if err != nil {
		return ""
	}
	return html
}
