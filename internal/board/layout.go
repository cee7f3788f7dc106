package board

import (
	"fmt"
	"math"
)

// Column x-offsets as fractions of display width. The minutes column is
// anchored to its right edge, everything else to its left edge. A thin
// vertical rule separates the line column from the destination column.
const (
	colLine         = 0.02
	colSeparator    = 0.14
	colDestination  = 0.16
	colRemarks      = 0.35
	colOrigin       = 0.54
	colMinutesRight = 0.98
)

// refHeight is the design baseline: all base font sizes and paddings
// are authored against a 128px-tall board (an SSD1322 at 2x) and scaled
// by height/refHeight for other targets.
const refHeight = 128.0

// FontSizes are the base (unscaled) font sizes, usually from config.
type FontSizes struct {
	StationName int
	Header      int
	Departure   int
	Remark      int
}

// DefaultFontSizes matches the reference design.
func DefaultFontSizes() FontSizes {
	return FontSizes{StationName: 20, Header: 13, Departure: 18, Remark: 13}
}

// Layout holds every pixel position and font size for one target
// resolution. It is a pure, stable function of its inputs: the same
// width/height/rows always produce the same Layout, so callers may
// cache it freely.
type Layout struct {
	Width  int
	Height int
	Scale  float64

	LineX        int
	SeparatorX   int
	DestX        int
	RemarksX     int
	OriginX      int
	MinutesRight int

	StationNameSize int
	HeaderSize      int
	InfoSize        int
	DepartureSize   int
	RemarkSize      int

	Pad          int
	HeaderHeight int
	FirstRowY    int
	RowHeight    int
	MaxRows      int
	ShowRemarks  bool
}

// NewLayout computes the layout for a target resolution. Degenerate
// dimensions are a configuration error, not something to paper over
// mid-render.
func NewLayout(width, height, rows int, showRemarks bool, base FontSizes) (Layout, error) {
	if width <= 0 || height <= 0 {
		return Layout{}, fmt.Errorf("invalid display size %dx%d", width, height)
	}
	if rows <= 0 {
		rows = 1
	}

	scale := float64(height) / refHeight
	scaled := func(px int) int {
		v := int(math.Round(float64(px) * scale))
		if v < 1 {
			return 1
		}
		return v
	}

	lay := Layout{
		Width:  width,
		Height: height,
		Scale:  scale,

		LineX:        int(math.Round(float64(width) * colLine)),
		SeparatorX:   int(math.Round(float64(width) * colSeparator)),
		DestX:        int(math.Round(float64(width) * colDestination)),
		RemarksX:     int(math.Round(float64(width) * colRemarks)),
		OriginX:      int(math.Round(float64(width) * colOrigin)),
		MinutesRight: int(math.Round(float64(width) * colMinutesRight)),

		StationNameSize: scaled(base.StationName),
		HeaderSize:      scaled(base.Header),
		DepartureSize:   scaled(base.Departure),
		RemarkSize:      scaled(base.Remark),

		Pad:         scaled(8),
		MaxRows:     rows,
		ShowRemarks: showRemarks,
	}

	// Mid-size font for the clock and weather in the header bar.
	lay.InfoSize = scaled((base.Header + base.StationName) / 2)

	// Station name sits in a full-width amber bar; departure rows start
	// below it after a small gap.
	lay.HeaderHeight = lay.StationNameSize + scaled(8)
	lay.FirstRowY = lay.HeaderHeight + scaled(2)
	lay.RowHeight = lay.DepartureSize + scaled(4)

	return lay, nil
}
