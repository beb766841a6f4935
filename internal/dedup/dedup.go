// Package dedup flags repeated postings within a route listing. Channels
// re-post the same freight advertisement many times a day; the detector marks
// every posting after the first occurrence of its text so reports can show
// how much of a route's volume is repetition.
package dedup

import (
	"strings"

	"github.com/otabekdev/yukmonitor/internal/database"
)

// Annotated pairs a route shipment with its duplicate flag.
type Annotated struct {
	database.RouteShipment

	Duplicate bool
}

// Summary aggregates one detection pass.
type Summary struct {
	Total      int
	Duplicates int
}

// Detect walks shipments in their given order (newest message first, as
// produced by the store) and marks every shipment whose normalized message
// text has already been seen. The first occurrence in the listing keeps its
// Duplicate flag false.
func Detect(shipments []database.RouteShipment) ([]Annotated, Summary) {
	annotated := make([]Annotated, 0, len(shipments))
	seen := make(map[string]struct{}, len(shipments))
	summary := Summary{Total: len(shipments)}

	for _, s := range shipments {
		key := normalize(s.MessageText)
		_, dup := seen[key]
		if !dup {
			seen[key] = struct{}{}
		} else {
			summary.Duplicates++
		}
		annotated = append(annotated, Annotated{RouteShipment: s, Duplicate: dup})
	}

	return annotated, summary
}

// normalize collapses the variations channels introduce when re-posting:
// surrounding whitespace and letter case.
func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
