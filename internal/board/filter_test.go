package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ydixken/abfahrt/internal/bvg"
)

var filterNow = time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)

func testDep(line string, kind bvg.Kind, minutes int, cancelled bool) bvg.Departure {
	at := filterNow.Add(time.Duration(minutes) * time.Minute)
	return bvg.Departure{
		Line:      line,
		BaseLine:  line,
		Kind:      kind,
		Direction: "Somewhere",
		Planned:   at,
		Actual:    at,
		Cancelled: cancelled,
	}
}

func TestFilterKinds(t *testing.T) {
	deps := []bvg.Departure{
		testDep("S41", bvg.KindSuburban, 5, false),
		testDep("240", bvg.KindBus, 6, false),
		testDep("U7", bvg.KindSubway, 7, false),
	}

	f := Filter{Kinds: map[bvg.Kind]bool{bvg.KindSuburban: true, bvg.KindSubway: true}}
	rows := f.Apply(deps, filterNow)

	require.Len(t, rows, 2)
	assert.Equal(t, "S41", rows[0].Departure.Line)
	assert.Equal(t, "U7", rows[1].Departure.Line)
}

func TestFilterNilKindsShowsEverything(t *testing.T) {
	deps := []bvg.Departure{
		testDep("S41", bvg.KindSuburban, 5, false),
		testDep("F10", bvg.KindFerry, 6, false),
	}

	rows := Filter{}.Apply(deps, filterNow)
	assert.Len(t, rows, 2)
}

func TestFilterAllowlistUsesBaseLine(t *testing.T) {
	// Bus "240" is displayed as "B240" but filtered by its raw name.
	bus := testDep("240", bvg.KindBus, 5, false)
	bus.Line = "B240"
	deps := []bvg.Departure{
		bus,
		testDep("S41", bvg.KindSuburban, 6, false),
	}

	rows := Filter{Allowlist: []string{"240"}}.Apply(deps, filterNow)

	require.Len(t, rows, 1)
	assert.Equal(t, "B240", rows[0].Departure.Line)
}

func TestFilterHurryZone(t *testing.T) {
	// walking = 10 puts the hurry zone at [7, 10] minutes.
	f := Filter{WalkingMinutes: 10}

	cases := []struct {
		name    string
		minutes int
		kept    bool
		hurry   bool
	}{
		{"unreachable", 6, false, false},
		{"zone lower edge", 7, true, true},
		{"zone upper edge", 10, true, true},
		{"comfortable", 11, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := f.Apply([]bvg.Departure{testDep("S41", bvg.KindSuburban, tc.minutes, false)}, filterNow)
			if !tc.kept {
				assert.Empty(t, rows)
				return
			}
			require.Len(t, rows, 1)
			assert.Equal(t, tc.hurry, rows[0].InHurryZone)
		})
	}
}

func TestFilterHurryZoneDisabledWithoutWalkingTime(t *testing.T) {
	rows := Filter{}.Apply([]bvg.Departure{testDep("S41", bvg.KindSuburban, 1, false)}, filterNow)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].InHurryZone)
}

func TestFilterCancelledExemptFromHurryPruning(t *testing.T) {
	f := Filter{WalkingMinutes: 10}
	deps := []bvg.Departure{
		testDep("S41", bvg.KindSuburban, 2, true),
		testDep("S42", bvg.KindSuburban, 8, true),
	}

	rows := f.Apply(deps, filterNow)

	// Cancelled departures stay visible even inside the unreachable
	// window, and never carry the hurry flag.
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.False(t, row.InHurryZone)
	}
}

func TestFilterSortsByActualTime(t *testing.T) {
	deps := []bvg.Departure{
		testDep("U7", bvg.KindSubway, 9, false),
		testDep("S41", bvg.KindSuburban, 3, false),
		testDep("M29", bvg.KindBus, 6, false),
	}

	rows := Filter{}.Apply(deps, filterNow)

	require.Len(t, rows, 3)
	assert.Equal(t, "S41", rows[0].Departure.Line)
	assert.Equal(t, "M29", rows[1].Departure.Line)
	assert.Equal(t, "U7", rows[2].Departure.Line)
}

func TestFilterCancelledLosesEqualTimeTie(t *testing.T) {
	deps := []bvg.Departure{
		testDep("S41", bvg.KindSuburban, 5, true),
		testDep("S42", bvg.KindSuburban, 5, false),
	}

	rows := Filter{}.Apply(deps, filterNow)

	require.Len(t, rows, 2)
	assert.Equal(t, "S42", rows[0].Departure.Line)
	assert.Equal(t, "S41", rows[1].Departure.Line)
}

func TestFilterTruncatesToMaxRows(t *testing.T) {
	deps := []bvg.Departure{
		testDep("S41", bvg.KindSuburban, 3, false),
		testDep("S42", bvg.KindSuburban, 5, false),
		testDep("U7", bvg.KindSubway, 7, false),
	}

	rows := Filter{MaxRows: 2}.Apply(deps, filterNow)

	require.Len(t, rows, 2)
	assert.Equal(t, "S41", rows[0].Departure.Line)
	assert.Equal(t, "S42", rows[1].Departure.Line)
}

func TestFilterIsPure(t *testing.T) {
	deps := []bvg.Departure{
		testDep("U7", bvg.KindSubway, 9, false),
		testDep("S41", bvg.KindSuburban, 8, false),
	}
	f := Filter{WalkingMinutes: 10, MaxRows: 5}

	first := f.Apply(deps, filterNow)
	second := f.Apply(deps, filterNow)

	assert.Equal(t, first, second)
	// The input slice order must survive the sort.
	assert.Equal(t, "U7", deps[0].Line)
	assert.Equal(t, "S41", deps[1].Line)
}
