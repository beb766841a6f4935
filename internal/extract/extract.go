package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// A cleaned route endpoint longer than this is prose, not a place name, and
// voids the line-fallback route guess.
const maxPlaceLen = 30

var (
	// cleanPattern strips everything that is not a Latin or Cyrillic letter
	// or whitespace from a route endpoint.
	cleanPattern = regexp.MustCompile(`[^A-Za-zА-Яа-я\s]`)

	// phonePattern matches the loose phone shapes found in postings: optional
	// leading plus, then at least ten characters of digits, spaces, hyphens
	// and parentheses, ending in a digit.
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\s\-()]{8,}[0-9]`)
)

// FieldSet is the tuple of attributes extracted from one block. An empty
// string means the field was not found; it is persisted as NULL.
type FieldSet struct {
	Origin      string
	Destination string
	CargoType   string
	TruckType   string
	PaymentType string
	Phone       string
}

// Extract derives a FieldSet from a single block. It is a pure function of
// the block text; missing fields stay empty and never fail the call.
func (e *Extractor) Extract(block string) FieldSet {
	lines := nonEmptyLines(block)

	var fs FieldSet

	routeFound := false
	for _, ln := range lines {
		for _, sep := range e.kw.RouteSeparators {
			idx := strings.Index(ln, sep)
			if idx < 0 {
				continue
			}
			fs.Origin = cleanPlace(ln[:idx])
			fs.Destination = cleanPlace(ln[idx+len(sep):])
			routeFound = true
			break
		}
		if routeFound {
			break
		}
	}

	// Postings without a separator usually still lead with the route, one
	// city per line. Over-long values mean the lines are prose instead.
	if !routeFound && len(lines) >= 2 {
		origin := cleanPlace(lines[0])
		destination := cleanPlace(lines[1])
		if utf8.RuneCountInString(origin) <= maxPlaceLen && utf8.RuneCountInString(destination) <= maxPlaceLen {
			fs.Origin = origin
			fs.Destination = destination
		}
	}

	fs.CargoType = firstLineContaining(lines, e.kw.Cargo)
	fs.TruckType = firstLineContaining(lines, e.kw.Truck)
	fs.PaymentType = firstLineContaining(lines, e.kw.Payment)

	if m := phonePattern.FindString(block); m != "" {
		fs.Phone = strings.TrimSpace(m)
	}

	return fs
}

// Accept reports whether a field-set is a valid shipment candidate: an origin
// plus at least one of destination or phone. Everything else is expected
// channel noise and is dropped silently.
func (e *Extractor) Accept(fs FieldSet) bool {
	return fs.Origin != "" && (fs.Destination != "" || fs.Phone != "")
}

func nonEmptyLines(block string) []string {
	var lines []string
	for _, ln := range strings.Split(block, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

func cleanPlace(s string) string {
	return strings.TrimSpace(cleanPattern.ReplaceAllString(s, ""))
}

// firstLineContaining returns the first line whose uppercased form contains
// any of the given uppercase keywords, or "" if none matches.
func firstLineContaining(lines []string, keywords []string) string {
	for _, ln := range lines {
		upper := strings.ToUpper(ln)
		for _, kw := range keywords {
			if strings.Contains(upper, kw) {
				return ln
			}
		}
	}
	return ""
}
