package bvg

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"
)

// Kind is a BVG product type.
type Kind string

const (
	KindSuburban Kind = "suburban" // S-Bahn
	KindSubway   Kind = "subway"   // U-Bahn
	KindTram     Kind = "tram"
	KindBus      Kind = "bus"
	KindFerry    Kind = "ferry"
	KindExpress  Kind = "express"
	KindRegional Kind = "regional"
)

// Departure is one row of the departure board, parsed and validated.
// Line carries the display name with branding prefix already applied
// (tram "21" becomes "M21", bus "240" becomes "B240"); BaseLine keeps
// the raw API name for per-station line filtering.
type Departure struct {
	Line         string
	BaseLine     string
	Kind         Kind
	Direction    string
	Planned      time.Time
	Actual       time.Time
	DelaySeconds int
	Platform     string
	Remarks      []string
	Cancelled    bool
}

// MinutesUntil is the ceiling of the time left until the actual
// departure. It can go negative for departures that already left and
// have not been pruned by the next refresh.
func (d Departure) MinutesUntil(now time.Time) int {
	return int(math.Ceil(d.Actual.Sub(now).Minutes()))
}

// DelayMinutes is the delay in whole minutes, 0 when on time.
func (d Departure) DelayMinutes() int {
	if d.DelaySeconds <= 0 {
		return 0
	}
	return d.DelaySeconds / 60
}

type rawDeparture struct {
	When        string `json:"when"`
	PlannedWhen string `json:"plannedWhen"`
	Delay       *int   `json:"delay"`
	Platform    string `json:"platform"`
	Direction   string `json:"direction"`
	Cancelled   bool   `json:"cancelled"`
	Line        struct {
		Name    string `json:"name"`
		Product string `json:"product"`
	} `json:"line"`
	Remarks []struct {
		Type string `json:"type"`
		Code string `json:"code"`
		Text string `json:"text"`
	} `json:"remarks"`
}

var directionCleaner = strings.NewReplacer("⟲", "", "⟳", "")

// cleanDirection strips ring-line loop arrows and redundant S/U prefixes
// from a destination name. The line column already identifies the product.
func cleanDirection(s string) string {
	s = strings.TrimSpace(directionCleaner.Replace(s))
	for _, prefix := range []string{"S+U ", "S ", "U "} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			return rest
		}
	}
	return s
}

// prefixLine applies Berlin branding to bare line numbers: MetroTram
// lines get an 'M', bus lines a 'B'. Night buses ('N') and MetroBuses
// ('M') keep their existing letter.
func prefixLine(name string, product Kind) string {
	switch product {
	case KindTram:
		if name != "" && !strings.HasPrefix(name, "M") {
			return "M" + name
		}
	case KindBus:
		if name != "" && !strings.HasPrefix(name, "B") && !strings.HasPrefix(name, "N") && !strings.HasPrefix(name, "M") {
			return "B" + name
		}
	}
	return name
}

// parseDeparture converts one raw API record into a Departure. Records
// without any usable timestamp are rejected; callers skip them.
func parseDeparture(raw rawDeparture) (Departure, error) {
	ts := raw.When
	if ts == "" {
		ts = raw.PlannedWhen
	}
	if ts == "" {
		return Departure{}, fmt.Errorf("departure %q has no timestamp", raw.Line.Name)
	}
	actual, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return Departure{}, fmt.Errorf("bad departure timestamp %q: %w", ts, err)
	}
	planned := actual
	if raw.PlannedWhen != "" {
		if t, err := time.Parse(time.RFC3339, raw.PlannedWhen); err == nil {
			planned = t
		}
	}

	delay := 0
	if raw.Delay != nil && *raw.Delay > 0 {
		delay = *raw.Delay
	}

	// Only actionable remarks make it onto the board: 'FK' is the code
	// for bicycle transport, 'warning' carries disruption notices.
	var remarks []string
	for _, r := range raw.Remarks {
		switch {
		case r.Code == "FK":
			remarks = append(remarks, "Fahrradmitnahme möglich")
		case r.Type == "warning" && r.Text != "":
			remarks = append(remarks, html.UnescapeString(r.Text))
		}
	}

	kind := Kind(raw.Line.Product)
	return Departure{
		Line:         prefixLine(raw.Line.Name, kind),
		BaseLine:     raw.Line.Name,
		Kind:         kind,
		Direction:    cleanDirection(raw.Direction),
		Planned:      planned,
		Actual:       actual,
		DelaySeconds: delay,
		Platform:     raw.Platform,
		Remarks:      remarks,
		Cancelled:    raw.Cancelled,
	}, nil
}
