package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/parsatv/imvbox/internal/urls"
)

// placeholder image names the site uses for lazy-loaded slots. An <img src>
// pointing at one of these is not a real thumbnail.
var placeholderImages = []string{"placeholder", "blank.", "loading.", "1x1."}

// ExtractThumbnail finds the best image URL inside (or next to) a card
// selection. IMVBox wraps posters in a custom <picture> structure with
// non-standard lazy-load child tags, so plain <img> handling is the last
// resort, not the first.
func (p *Parser) ExtractThumbnail(s *goquery.Selection) string {
	// Tier 1: the custom data-img child carries the real source directly.
	if src, ok := s.Find("picture data-img").First().Attr("src"); ok && src != "" {
		return urls.Resolve(src)
	}

	// Tier 2: walk the picture's children for anything with a usable src.
	found := ""
	s.Find("picture").First().Children().EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if src, ok := c.Attr("src"); ok && src != "" && !isPlaceholder(src) {
			found = src
			return false
		}
		return true
	})
	if found != "" {
		return urls.Resolve(found)
	}

	// Tier 3: lazy elements exposing a srcset; the first entry is the
	// smallest usable rendition.
	if srcset, ok := s.Find("data-src[srcset], source[srcset]").First().Attr("srcset"); ok {
		if u := firstSrcsetURL(srcset); u != "" {
			return urls.Resolve(u)
		}
	}

	// Tier 4: a standard img, preferring the lazy data-src and rejecting
	// placeholder slots.
	img := s.Find("img").First()
	if src, ok := img.Attr("data-src"); ok && src != "" && !isPlaceholder(src) {
		return urls.Resolve(src)
	}
	if src, ok := img.Attr("src"); ok && src != "" && !isPlaceholder(src) {
		return urls.Resolve(src)
	}

	// Tier 5: episode rows sometimes keep the thumbnail in a sibling node.
	sibling := s.Siblings().Find("picture, img").First()
	if src, ok := sibling.Attr("src"); ok && src != "" && !isPlaceholder(src) {
		return urls.Resolve(src)
	}
	if src, ok := sibling.Attr("data-src"); ok && src != "" && !isPlaceholder(src) {
		return urls.Resolve(src)
	}

	return ""
}

func isPlaceholder(src string) bool {
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "data:") {
		return true
	}
	for _, p := range placeholderImages {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func firstSrcsetURL(srcset string) string {
	entry := strings.SplitN(srcset, ",", 2)[0]
	fields := strings.Fields(strings.TrimSpace(entry))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
