package board

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ydixken/abfahrt/internal/bvg"
	"github.com/ydixken/abfahrt/internal/weather"
)

// cancelLabel alternates with the destination text on cancelled rows.
const cancelLabel = "Fällt aus"

// kindGlyphs maps each transport kind to its badge letter.
var kindGlyphs = map[bvg.Kind]string{
	bvg.KindSuburban: "S",
	bvg.KindSubway:   "U",
	bvg.KindTram:     "M",
	bvg.KindBus:      "B",
	bvg.KindFerry:    "F",
	bvg.KindExpress:  "X",
	bvg.KindRegional: "R",
}

// FrameOpts carries the per-tick inputs that are not row data: the tick
// time, the weather snapshot, and the animation phases computed by the
// Clock. The renderer itself never reads the wall clock.
type FrameOpts struct {
	Now         time.Time
	Weather     *weather.Snapshot
	WeatherPage int
	FetchOK     bool
	BlinkOn     bool
	FlickerOn   bool
	// LinesHint is shown in the empty-board message when a line
	// allowlist filtered everything away.
	LinesHint []string
}

// Renderer draws departure board frames for one target resolution.
// Apart from the fonts and geometry computed at construction it holds
// no state; every frame is a pure function of its arguments.
type Renderer struct {
	lay Layout

	faceStation   font.Face
	faceInfo      font.Face
	faceLine      font.Face
	faceDeparture font.Face
	faceRemark    font.Face

	faceTitle  font.Face
	faceStatus font.Face
	faceSmall  font.Face

	// Precomputed right-block geometry. The minutes slot reserves room
	// for the widest value ("00+00min") so columns stay aligned.
	minutesSlotW    int
	timeX           int
	destViewport    int
	remarksViewport int
	originViewport  int
}

// NewRenderer builds a renderer for the given layout. Fonts are the
// embedded Go faces: bold for the header and line names, medium for
// departure text, regular for remarks.
func NewRenderer(lay Layout) (*Renderer, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	medium, err := opentype.Parse(gomedium.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse medium font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}

	r := &Renderer{lay: lay}
	for _, f := range []struct {
		dst  *font.Face
		src  *opentype.Font
		size int
	}{
		{&r.faceStation, bold, lay.StationNameSize},
		{&r.faceInfo, bold, lay.InfoSize},
		{&r.faceLine, bold, lay.DepartureSize},
		{&r.faceDeparture, medium, lay.DepartureSize},
		{&r.faceRemark, regular, lay.RemarkSize},
		{&r.faceTitle, bold, max(1, lay.Height*2/5)},
		{&r.faceStatus, medium, max(1, lay.Height*3/20)},
		{&r.faceSmall, regular, max(1, lay.Height*3/25)},
	} {
		face, err := opentype.NewFace(f.src, &opentype.FaceOptions{
			Size:    float64(f.size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("build %dpx face: %w", f.size, err)
		}
		*f.dst = face
	}

	r.minutesSlotW = textWidth(r.faceDeparture, "00+00min")
	timeW := textWidth(r.faceDeparture, "00:00")
	r.timeX = lay.MinutesRight - r.minutesSlotW - lay.Pad - timeW

	if lay.ShowRemarks {
		r.destViewport = lay.RemarksX - lay.DestX - lay.Pad
		r.remarksViewport = lay.OriginX - lay.RemarksX - lay.Pad
	} else {
		// Remarks column omitted: the destination widens into it.
		r.destViewport = lay.OriginX - lay.DestX - lay.Pad
	}
	r.originViewport = r.timeX - lay.OriginX - lay.Pad
	return r, nil
}

// Layout returns the geometry this renderer draws against.
func (r *Renderer) Layout() Layout {
	return r.lay
}

// Measure produces the animation inputs for a set of rows: content and
// viewport widths of the scrollable fields plus a content key that
// invalidates stored offsets when the text changes.
func (r *Renderer) Measure(rows []Row) []RowContent {
	contents := make([]RowContent, len(rows))
	for i, row := range rows {
		dep := row.Departure
		remarks := strings.Join(dep.Remarks, ", ")
		rc := RowContent{
			Key:          dep.Line + "\x1f" + dep.Direction + "\x1f" + remarks,
			DestWidth:    textWidth(r.faceDeparture, dep.Direction),
			DestViewport: r.destViewport,
		}
		if r.lay.ShowRemarks && remarks != "" {
			rc.RemarksWidth = textWidth(r.faceRemark, remarks)
			rc.RemarksViewport = r.remarksViewport
		}
		contents[i] = rc
	}
	return contents
}

// Render produces one complete frame for the active station. The frame
// is always exactly Width x Height; zero rows yield a placeholder
// message under the header bar instead of an empty table.
func (r *Renderer) Render(stationName string, rows []Row, anim *AnimState, opts FrameOpts) *image.RGBA {
	img := r.blank()
	r.drawHeader(img, stationName, opts)

	// Separator rule between the header bar and the board area.
	fillRect(img, image.Rect(0, r.lay.FirstRowY-1, r.lay.Width, r.lay.FirstRowY), ruleAmber)

	if len(rows) == 0 {
		msg := "Keine Abfahrten"
		if len(opts.LinesHint) > 0 {
			msg = fmt.Sprintf("Keine Abfahrten: %s", strings.Join(opts.LinesHint, " / "))
		}
		r.drawCenteredIn(img, r.faceDeparture, msg, r.lay.FirstRowY, r.lay.Height)
		return img
	}

	// Vertical rule between the line and destination columns.
	fillRect(img, image.Rect(r.lay.SeparatorX, r.lay.FirstRowY, r.lay.SeparatorX+1, r.lay.Height), dimAmber)

	for i, row := range rows {
		if i >= r.lay.MaxRows {
			break
		}
		y := r.lay.FirstRowY + i*r.lay.RowHeight
		if y+r.lay.RowHeight > r.lay.Height {
			break
		}
		var ra RowAnim
		if anim != nil && i < len(anim.Rows) {
			ra = anim.Rows[i]
		}
		r.drawRow(img, row, ra, y, stationName, opts)
	}
	return img
}

// RenderMessage produces a centered single-message frame, used for
// error states like an unresolved station or a failed first fetch.
func (r *Renderer) RenderMessage(text string) *image.RGBA {
	img := r.blank()
	r.drawCenteredIn(img, r.faceStation, text, 0, r.lay.Height)
	return img
}

// RenderBoot produces the startup splash with a status line.
func (r *Renderer) RenderBoot(status, version string) *image.RGBA {
	img := r.blank()
	margin := max(1, r.lay.Height/20)

	title := "Abfahrt!"
	ty := margin
	r.drawCentered(img, r.faceTitle, title, r.lay.Width/2, ty)

	sy := ty + r.faceTitle.Metrics().Height.Ceil() + margin
	r.drawCentered(img, r.faceStatus, status, r.lay.Width/2, sy)

	smallH := r.faceSmall.Metrics().Height.Ceil()
	drawText(img, r.faceSmall, margin, r.lay.Height-smallH-margin, amber, "github.com/ydixken/abfahrt")
	ver := "v" + version
	vw := textWidth(r.faceSmall, ver)
	drawText(img, r.faceSmall, r.lay.Width-vw-margin, r.lay.Height-smallH-margin, amber, ver)
	return img
}

func (r *Renderer) blank() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.lay.Width, r.lay.Height))
	fillRect(img, img.Bounds(), black)
	return img
}

// drawHeader draws the amber header bar: clock on the left, station
// name centered, weather and connection status dot on the right.
func (r *Renderer) drawHeader(img *image.RGBA, stationName string, opts FrameOpts) {
	lay := r.lay
	fillRect(img, image.Rect(0, 0, lay.Width, lay.HeaderHeight), amber)

	margin := max(2, int(4*lay.Scale))
	infoY := (lay.HeaderHeight - r.faceInfo.Metrics().Height.Ceil()) / 2

	drawText(img, r.faceInfo, margin, infoY, black, opts.Now.Format("15:04"))

	// Connection status dot: invisible while fetches succeed, blinking
	// while the last fetch failed.
	dotR := max(2, int(3*lay.Scale))
	dotCx := lay.Width - margin - dotR
	dotCy := lay.HeaderHeight / 2
	if !opts.FetchOK && opts.BlinkOn {
		fillDisc(img, dotCx, dotCy, dotR, black)
	}

	// Weather alternates between temperature and precipitation per
	// rotation page, right-aligned left of the dot.
	if opts.Weather != nil {
		text := opts.Weather.TempSummary()
		if precip := opts.Weather.PrecipSummary(); precip != "" && opts.WeatherPage%2 == 1 {
			text = precip
		}
		wx := dotCx - dotR - margin - textWidth(r.faceInfo, text)
		drawText(img, r.faceInfo, wx, infoY, black, text)
	}

	name := truncate(r.faceStation, stationName, lay.Width-max(10, int(20*lay.Scale)))
	nw := textWidth(r.faceStation, name)
	ny := (lay.HeaderHeight - r.faceStation.Metrics().Height.Ceil()) / 2
	drawText(img, r.faceStation, (lay.Width-nw)/2, ny, black, name)
}

// drawRow draws one departure row at vertical offset y.
func (r *Renderer) drawRow(img *image.RGBA, row Row, ra RowAnim, y int, stationName string, opts FrameOpts) {
	lay := r.lay
	dep := row.Departure

	// Line name, bold, left column.
	line := truncate(r.faceLine, dep.Line, lay.SeparatorX-lay.LineX-2)
	drawText(img, r.faceLine, lay.LineX, y, amber, line)

	// Destination. Cancelled rows alternate between the destination and
	// the cancellation label on the flicker phase; otherwise the text
	// scrolls when it overflows its column.
	if dep.Cancelled && !opts.FlickerOn {
		drawText(img, r.faceDeparture, lay.DestX, y, amber, truncate(r.faceDeparture, cancelLabel, r.destViewport))
	} else {
		r.drawScrollable(img, r.faceDeparture, dep.Direction, lay.DestX, y, r.destViewport, ra.Dest)
	}

	// Remarks, scrolling.
	if lay.ShowRemarks && len(dep.Remarks) > 0 && r.remarksViewport > 0 {
		r.drawScrollable(img, r.faceRemark, strings.Join(dep.Remarks, ", "), lay.RemarksX, y, r.remarksViewport, ra.Remarks)
	}

	// Origin station with the transport-kind badge.
	badgeAdv := r.drawBadge(img, dep.Kind, lay.OriginX, y)
	origin := truncate(r.faceRemark, stationName, r.originViewport-badgeAdv)
	drawText(img, r.faceRemark, lay.OriginX+badgeAdv, y, dimAmber, origin)

	// Absolute departure time.
	drawText(img, r.faceDeparture, r.timeX, y, amber, dep.Actual.Format("15:04"))

	// Minutes until departure, right-aligned. Hurry-zone rows gate the
	// column's visibility on the blink phase.
	if !row.InHurryZone || opts.BlinkOn {
		label := minutesLabel(dep, opts.Now)
		drawText(img, r.faceDeparture, lay.MinutesRight-textWidth(r.faceDeparture, label), y, amber, label)
	}
}

// minutesLabel formats the countdown column: "7min" on time, "7+2min"
// with a delay suffix when the departure runs late.
func minutesLabel(dep bvg.Departure, now time.Time) string {
	minutes := dep.MinutesUntil(now)
	if delay := dep.DelayMinutes(); delay > 0 {
		return fmt.Sprintf("%d+%dmin", minutes, delay)
	}
	return fmt.Sprintf("%dmin", minutes)
}

// drawBadge draws the transport-kind glyph as an inverse badge and
// returns the horizontal advance it consumed.
func (r *Renderer) drawBadge(img *image.RGBA, kind bvg.Kind, x, y int) int {
	glyph, ok := kindGlyphs[kind]
	if !ok {
		return 0
	}
	size := lineHeight(r.faceRemark)
	fillRect(img, image.Rect(x, y, x+size, y+size), amber)
	gw := textWidth(r.faceRemark, glyph)
	drawText(img, r.faceRemark, x+(size-gw)/2, y, black, glyph)
	return size + max(2, r.lay.Pad/2)
}

// drawScrollable draws text that fits directly, and otherwise renders
// it to a strip and pastes the window selected by the scroll offset.
// Truncation never applies here; the offset replaces it.
func (r *Renderer) drawScrollable(img *image.RGBA, face font.Face, text string, x, y, viewport int, fs FieldScroll) {
	if text == "" || viewport <= 0 {
		return
	}
	w := textWidth(face, text)
	if w <= viewport {
		drawText(img, face, x, y, amber, text)
		return
	}
	strip := image.NewRGBA(image.Rect(0, 0, w, r.lay.RowHeight))
	drawText(strip, face, 0, 0, amber, text)
	draw.Draw(img, image.Rect(x, y, x+viewport, y+r.lay.RowHeight), strip, image.Pt(int(fs.OffsetPx), 0), draw.Over)
}

func (r *Renderer) drawCentered(img *image.RGBA, face font.Face, text string, cx, y int) {
	drawText(img, face, cx-textWidth(face, text)/2, y, amber, text)
}

// drawCenteredIn centers text vertically between top and bottom.
func (r *Renderer) drawCenteredIn(img *image.RGBA, face font.Face, text string, top, bottom int) {
	text = truncate(face, text, r.lay.Width-2*r.lay.Pad)
	y := top + (bottom-top-lineHeight(face))/2
	r.drawCentered(img, face, text, r.lay.Width/2, y)
}

func drawText(img *image.RGBA, face font.Face, x, y int, col color.RGBA, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

func lineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

// truncate shortens text with a ".." suffix until it fits maxW. The
// two-dot ellipsis saves space on narrow panels.
func truncate(face font.Face, s string, maxW int) string {
	if s == "" || textWidth(face, s) <= maxW {
		return s
	}
	const ellipsis = ".."
	runes := []rune(s)
	for end := len(runes) - 1; end > 0; end-- {
		candidate := string(runes[:end]) + ellipsis
		if textWidth(face, candidate) <= maxW {
			return candidate
		}
	}
	return ellipsis
}

func fillRect(img *image.RGBA, rect image.Rectangle, col color.RGBA) {
	draw.Draw(img, rect, image.NewUniform(col), image.Point{}, draw.Src)
}

func fillDisc(img *image.RGBA, cx, cy, radius int, col color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				img.SetRGBA(cx+dx, cy+dy, col)
			}
		}
	}
}
