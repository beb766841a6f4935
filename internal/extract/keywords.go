// Package extract implements the freight-posting extraction pipeline:
// block segmentation, per-block field extraction, and the acceptance filter.
// All functions here are pure and safe for concurrent use.
package extract

// Keywords holds the marker sets the extractor matches against. Postings mix
// Russian, Uzbek (Cyrillic and Latin), and English, so the sets carry the
// variants actually seen in channel feeds. All entries must be uppercase;
// matching is done against the uppercased line.
type Keywords struct {
	// Cargo marks lines describing the load itself.
	Cargo []string
	// Truck marks lines describing the vehicle (tent, reefer, semi, volume).
	Truck []string
	// Payment marks lines describing payment terms (cash, transfer).
	Payment []string
	// RouteSeparators are the glyphs that split an origin-destination line,
	// tried in priority order.
	RouteSeparators []string
	// UrgentMarker starts a new posting even without a preceding phone number.
	// Matched case-sensitively.
	UrgentMarker string
}

// DefaultKeywords returns the production marker sets for the Uzbek/Russian
// freight channels the service tracks.
func DefaultKeywords() Keywords {
	return Keywords{
		Cargo:           []string{"ГРУЗ", "ЮК", "YUK"},
		Truck:           []string{"ТЕНТ", "РЕФ", "ФУРА", "120", "96"},
		Payment:         []string{"НАХТ", "НАЛ", "NAL", "ОПЛАТА", "ПЕРЕЧИС"},
		RouteSeparators: []string{"—", "–", "→", "➝", "-", ":"},
		UrgentMarker:    "СРОЧНО",
	}
}
