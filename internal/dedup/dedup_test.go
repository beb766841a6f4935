package dedup_test

import (
	"testing"
	"time"

	"github.com/otabekdev/yukmonitor/internal/database"
	"github.com/otabekdev/yukmonitor/internal/dedup"
)

func routeShipment(id uint, text string, ts time.Time) database.RouteShipment {
	return database.RouteShipment{
		Shipment:    database.Shipment{ID: id},
		MessageText: text,
		MessageDate: ts,
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		shipments  []database.RouteShipment
		duplicates []bool
	}{
		{
			name:       "empty listing",
			shipments:  nil,
			duplicates: []bool{},
		},
		{
			name: "distinct texts",
			shipments: []database.RouteShipment{
				routeShipment(1, "Tashkent — Samarkand\nТЕНТ", base),
				routeShipment(2, "Tashkent — Samarkand\nРЕФ", base.Add(-time.Hour)),
			},
			duplicates: []bool{false, false},
		},
		{
			name: "exact repeat is flagged",
			shipments: []database.RouteShipment{
				routeShipment(1, "Tashkent — Samarkand\nТЕНТ", base),
				routeShipment(2, "Tashkent — Samarkand\nТЕНТ", base.Add(-time.Hour)),
			},
			duplicates: []bool{false, true},
		},
		{
			name: "case and whitespace variants collapse",
			shipments: []database.RouteShipment{
				routeShipment(1, "Tashkent — Samarkand\nТЕНТ", base),
				routeShipment(2, "  tashkent — samarkand\nтент  ", base.Add(-time.Hour)),
			},
			duplicates: []bool{false, true},
		},
		{
			name: "first occurrence in order keeps its flag clear",
			shipments: []database.RouteShipment{
				routeShipment(1, "posting A", base),
				routeShipment(2, "posting B", base.Add(-time.Hour)),
				routeShipment(3, "posting A", base.Add(-2*time.Hour)),
				routeShipment(4, "posting B", base.Add(-3*time.Hour)),
				routeShipment(5, "posting A", base.Add(-4*time.Hour)),
			},
			duplicates: []bool{false, false, true, true, true},
		},
		{
			name: "internal whitespace differences are distinct",
			shipments: []database.RouteShipment{
				routeShipment(1, "posting  A", base),
				routeShipment(2, "posting A", base.Add(-time.Hour)),
			},
			duplicates: []bool{false, false},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			annotated, summary := dedup.Detect(tc.shipments)

			if len(annotated) != len(tc.shipments) {
				t.Fatalf("Detect() returned %d rows, want %d", len(annotated), len(tc.shipments))
			}

			wantDups := 0
			for i, a := range annotated {
				if a.Duplicate != tc.duplicates[i] {
					t.Errorf("row %d (id=%d): duplicate = %v, want %v", i, a.ID, a.Duplicate, tc.duplicates[i])
				}
				if tc.duplicates[i] {
					wantDups++
				}
			}

			if summary.Total != len(tc.shipments) {
				t.Errorf("summary.Total = %d, want %d", summary.Total, len(tc.shipments))
			}
			if summary.Duplicates != wantDups {
				t.Errorf("summary.Duplicates = %d, want %d", summary.Duplicates, wantDups)
			}
		})
	}
}

// Appending more rows never clears a previously set duplicate flag.
func TestDetectMonotonic(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := []database.RouteShipment{
		routeShipment(1, "posting A", base),
		routeShipment(2, "posting A", base.Add(-time.Hour)),
	}

	short, _ := dedup.Detect(rows)

	extended := append(rows, routeShipment(3, "posting B", base.Add(-2*time.Hour)))
	long, _ := dedup.Detect(extended)

	for i := range short {
		if short[i].Duplicate && !long[i].Duplicate {
			t.Errorf("row %d lost its duplicate flag after appending rows", i)
		}
	}
}
