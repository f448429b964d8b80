package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	yearRe     = regexp.MustCompile(`(19|20)\d{2}`)
	intRe      = regexp.MustCompile(`\d+`)
	ratingRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	isoDurRe   = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?`)
	hourMinRe  = regexp.MustCompile(`(\d+)\s*h(?:ours?)?\s*(?:(\d+)\s*m(?:in(?:utes?)?)?)?`)
	bareMinRe  = regexp.MustCompile(`(\d+)\s*min`)
)

// parseYear finds a plausible four-digit year in free text.
func parseYear(text string) (int, bool) {
	m := yearRe.FindString(text)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

// parseRating finds a 0-10 rating value in free text.
func parseRating(text string) (float64, bool) {
	m := ratingRe.FindString(text)
	if m == "" {
		return 0, false
	}
	r, err := strconv.ParseFloat(m, 64)
	if err != nil || r < 0 || r > 10 {
		return 0, false
	}
	return r, true
}

// parseDuration accepts either an ISO-8601-like duration ("PT1H42M") or
// free text ("1h 42m", "95 min") and returns whole minutes. Returns
// ok=false rather than zero when nothing matches, so callers can tell
// "unknown" from "zero-length".
func parseDuration(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	if m := isoDurRe.FindStringSubmatch(text); m != nil && (m[1] != "" || m[2] != "") {
		hours, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		return hours*60 + mins, true
	}

	lower := strings.ToLower(text)
	if m := hourMinRe.FindStringSubmatch(lower); m != nil {
		hours, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		return hours*60 + mins, true
	}
	if m := bareMinRe.FindStringSubmatch(lower); m != nil {
		mins, _ := strconv.Atoi(m[1])
		return mins, true
	}
	return 0, false
}

// firstInt finds the first integer in free text.
func firstInt(text string) (int, bool) {
	m := intRe.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
