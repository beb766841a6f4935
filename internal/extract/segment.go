package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Blocks shorter than this after trimming cannot hold a shipment and are
// dropped by Segment.
const minBlockLen = 15

// numberRun matches a maximal run of digits with an optional leading plus.
// Maximality is what lets Segment check for "exactly 12" / "exactly 9" digits
// without lookaround, which Go's regexp does not support.
var numberRun = regexp.MustCompile(`\+?[0-9]+`)

// Extractor turns raw channel messages into candidate shipment blocks and
// extracts structured fields from each block. It holds only immutable keyword
// configuration and is safe for concurrent use.
type Extractor struct {
	kw Keywords
}

// New returns an Extractor using the given keyword sets.
func New(kw Keywords) *Extractor {
	return &Extractor{kw: kw}
}

// Segment splits raw message text into candidate shipment blocks.
//
// Postings in these channels conventionally end each shipment with a contact
// phone and concatenate several shipments with no other delimiter, so the
// phone number is the only reliable boundary. A cut is placed immediately
// after every "+" followed by exactly 12 digits, after every bare run of
// exactly 9 digits, and immediately before every occurrence of the urgent
// marker. Cuts are zero width: joining the uncut blocks reproduces the input.
//
// Returned blocks are trimmed of surrounding whitespace; blocks shorter than
// 15 characters after trimming are discarded. Empty input yields nil.
func (e *Extractor) Segment(raw string) []string {
	if raw == "" {
		return nil
	}

	cutSet := make(map[int]struct{})
	for _, loc := range numberRun.FindAllStringIndex(raw, -1) {
		run := raw[loc[0]:loc[1]]
		if strings.HasPrefix(run, "+") {
			if len(run) == 13 { // "+" and 12 digits
				cutSet[loc[1]] = struct{}{}
			}
		} else if len(run) == 9 {
			cutSet[loc[1]] = struct{}{}
		}
	}
	if marker := e.kw.UrgentMarker; marker != "" {
		for from := 0; ; {
			idx := strings.Index(raw[from:], marker)
			if idx < 0 {
				break
			}
			cutSet[from+idx] = struct{}{}
			from += idx + len(marker)
		}
	}

	cuts := make([]int, 0, len(cutSet)+1)
	for pos := range cutSet {
		if pos > 0 && pos < len(raw) {
			cuts = append(cuts, pos)
		}
	}
	sort.Ints(cuts)
	cuts = append(cuts, len(raw))

	var blocks []string
	prev := 0
	for _, pos := range cuts {
		block := strings.TrimSpace(raw[prev:pos])
		prev = pos
		if utf8.RuneCountInString(block) < minBlockLen {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}
