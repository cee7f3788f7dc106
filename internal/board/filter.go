package board

import (
	"sort"
	"time"

	"github.com/ydixken/abfahrt/internal/bvg"
)

// hurryBuffer is the width of the hurry zone below the walking time:
// a departure leaving in [walking-hurryBuffer, walking] minutes is still
// barely catchable and blinks; anything sooner is unreachable and
// dropped. Candidate for a config knob, fixed for now.
const hurryBuffer = 3

// Row is one display-ready departure. InHurryZone is ephemeral render
// state, recomputed on every pass and never stored on the departure.
type Row struct {
	Departure   bvg.Departure
	InHurryZone bool
}

// Filter derives the display-ready rows for one station. It is a pure
// function of its inputs: no hidden state, applying it twice with the
// same arguments yields the same output.
type Filter struct {
	// Kinds maps each transport kind to whether it is shown. A nil map
	// shows everything.
	Kinds map[bvg.Kind]bool
	// Allowlist restricts rows to these base lines (raw API names,
	// before branding prefixes). Empty means no restriction.
	Allowlist []string
	// WalkingMinutes enables hurry-zone pruning when > 0.
	WalkingMinutes int
	// MaxRows truncates the result when > 0.
	MaxRows int
}

// Apply runs the pipeline in its contractual order: kind filter, line
// allowlist, hurry-zone pruning, stable sort by actual time, truncation.
// Cancelled departures are exempt from hurry pruning (they stay visible
// for the flicker treatment) and lose sorting tie-breaks.
func (f Filter) Apply(departures []bvg.Departure, now time.Time) []Row {
	rows := make([]Row, 0, len(departures))

	hurryLow := f.WalkingMinutes - hurryBuffer
	for _, dep := range departures {
		if f.Kinds != nil && !f.Kinds[dep.Kind] {
			continue
		}
		if len(f.Allowlist) > 0 && !lineAllowed(dep.BaseLine, f.Allowlist) {
			continue
		}

		inHurry := false
		if f.WalkingMinutes > 0 {
			minutes := dep.MinutesUntil(now)
			if minutes < hurryLow && !dep.Cancelled {
				continue
			}
			inHurry = !dep.Cancelled && minutes >= hurryLow && minutes <= f.WalkingMinutes
		}
		rows = append(rows, Row{Departure: dep, InHurryZone: inHurry})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Departure, rows[j].Departure
		if a.Actual.Equal(b.Actual) {
			return !a.Cancelled && b.Cancelled
		}
		return a.Actual.Before(b.Actual)
	})

	if f.MaxRows > 0 && len(rows) > f.MaxRows {
		rows = rows[:f.MaxRows]
	}
	return rows
}

func lineAllowed(baseLine string, allowlist []string) bool {
	for _, l := range allowlist {
		if baseLine == l {
			return true
		}
	}
	return false
}
