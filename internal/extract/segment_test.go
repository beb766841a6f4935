package extract_test

import (
	"strings"
	"testing"

	"github.com/otabekdev/yukmonitor/internal/extract"
)

func TestSegment(t *testing.T) {
	t.Parallel()

	e := extract.New(extract.DefaultKeywords())

	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "whitespace only",
			input:    "   \n\t  ",
			expected: nil,
		},
		{
			name:     "single block without phone",
			input:    "Tashkent — Samarkand\nТЕНТ 20т",
			expected: []string{"Tashkent — Samarkand\nТЕНТ 20т"},
		},
		{
			name:  "split after international phone",
			input: "Tashkent — Samarkand\nТЕНТ\n+998901234567\nBukhara — Khiva\nРЕФ\n+998907654321",
			expected: []string{
				"Tashkent — Samarkand\nТЕНТ\n+998901234567",
				"Bukhara — Khiva\nРЕФ\n+998907654321",
			},
		},
		{
			name:  "split after bare nine digit phone",
			input: "Andijon — Namangan yuk bor\n901234567\nQoqon — Margilon yuk kerak",
			expected: []string{
				"Andijon — Namangan yuk bor\n901234567",
				"Qoqon — Margilon yuk kerak",
			},
		},
		{
			name:  "split before urgent marker",
			input: "Tashkent — Samarkand, фура керак СРОЧНО Bukhara — Urgench, тент бор",
			expected: []string{
				"Tashkent — Samarkand, фура керак",
				"СРОЧНО Bukhara — Urgench, тент бор",
			},
		},
		{
			name:     "short fragments are dropped",
			input:    "+998901234567\nok",
			expected: nil,
		},
		{
			name:     "thirteen digit bare run is not a boundary",
			input:    "Tashkent — Samarkand code 1234567890123 tent kerak",
			expected: []string{"Tashkent — Samarkand code 1234567890123 tent kerak"},
		},
		{
			name:     "plus with eleven digits is not a boundary",
			input:    "Tashkent — Samarkand tel +99890123456 tent kerak",
			expected: []string{"Tashkent — Samarkand tel +99890123456 tent kerak"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := e.Segment(tc.input)
			if len(got) != len(tc.expected) {
				t.Fatalf("Segment() returned %d blocks, want %d: %#v", len(got), len(tc.expected), got)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("block %d = %q, want %q", i, got[i], tc.expected[i])
				}
			}
		})
	}
}

// TestSegmentReconstruction checks the coverage property: cuts are zero
// width, so joining the raw (untrimmed, unfiltered) slices reproduces the
// input. Exercised indirectly by segmenting text whose every block survives
// trimming and comparing against a whitespace-insensitive join.
func TestSegmentReconstruction(t *testing.T) {
	t.Parallel()

	e := extract.New(extract.DefaultKeywords())

	inputs := []string{
		"Tashkent — Samarkand tent kerak\n+998901234567Bukhara — Khiva ref kerak\n+998907654321",
		"Andijon — Namangan yuk bor tel 901234567Qoqon — Margilon fura kerak 935551122",
		"Navoiy — Zarafshon tent СРОЧНО Jizzax — Guliston yuk tayyor",
	}

	for _, input := range inputs {
		blocks := e.Segment(input)
		joined := strings.Join(blocks, "")
		if stripSpace(joined) != stripSpace(input) {
			t.Errorf("blocks %#v do not reconstruct input %q", blocks, input)
		}
	}
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
