// Package parser turns IMVBox HTML documents into typed records.
//
// The site redesigns its markup often, so every extractor tries an ordered
// list of selector candidates and uses the first that yields anything.
// Public entry points never panic: malformed input degrades to a dropped
// record or an empty result, and the only side effect is a debug log line.
package parser

import (
	"github.com/parsatv/imvbox/internal/util"
)

// DefaultIntroMediaIDs are the media ids of the site's bumper/intro clips.
// These show up as ordinary HLS sources on play pages and must never win
// extraction. The site has shipped a single id so far; kept as a set in
// case more appear.
var DefaultIntroMediaIDs = map[string]bool{
	"10001": true,
}

// Parser extracts structured records from parsed documents. A zero-value
// Parser is not usable; construct with New.
type Parser struct {
	introIDs map[string]bool
}

// New returns a Parser using the default intro-clip exclusion set.
func New() *Parser {
	return NewWithIntroIDs(DefaultIntroMediaIDs)
}

// NewWithIntroIDs returns a Parser with a custom intro-clip exclusion set.
func NewWithIntroIDs(introIDs map[string]bool) *Parser {
	ids := make(map[string]bool, len(introIDs))
	for id := range introIDs {
		ids[id] = true
	}
	return &Parser{introIDs: ids}
}

// IsIntroMediaID reports whether a media id belongs to a known intro clip.
func (p *Parser) IsIntroMediaID(id string) bool {
	return p.introIDs[id]
}

// recoverParse converts a parser panic into a logged no-result. goquery
// itself does not panic on malformed HTML, but selector logic over
// unexpected structures has bitten before.
func recoverParse(op string) {
	if r := recover(); r != nil {
		util.Debugf("parser: recovered in %s: %v", op, r)
	}
}
