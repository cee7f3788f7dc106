package board

import "time"

// ScrollPhase tags the state of one horizontally scrolling text field.
type ScrollPhase uint8

const (
	// PhaseIdle means the content fits its viewport; nothing scrolls.
	PhaseIdle ScrollPhase = iota
	// PhasePausedAtStart holds the text at offset 0 before scrolling.
	PhasePausedAtStart
	// PhaseScrolling moves the text left at a constant speed.
	PhaseScrolling
	// PhasePausedAtEnd holds the text at its final offset, then wraps.
	PhasePausedAtEnd
)

func (p ScrollPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePausedAtStart:
		return "paused-at-start"
	case PhaseScrolling:
		return "scrolling"
	case PhasePausedAtEnd:
		return "paused-at-end"
	}
	return "unknown"
}

// FieldScroll is the animation state of one scrollable field. The zero
// value is a valid initial state.
type FieldScroll struct {
	Phase    ScrollPhase
	OffsetPx float64
	// Since is when the current phase was entered.
	Since time.Time
}

// Complete reports whether this field has finished at least one full
// scroll pass or never needed one. Station rotation gates on it.
func (fs FieldScroll) Complete() bool {
	return fs.Phase == PhaseIdle || fs.Phase == PhasePausedAtEnd
}

// RowContent describes the measured text of one row for the clock:
// pixel widths of the scrollable fields and their viewports, plus a
// content key. A key change invalidates stored offsets, since new text
// has a different width.
type RowContent struct {
	Key             string
	DestWidth       int
	DestViewport    int
	RemarksWidth    int
	RemarksViewport int
}

// RowAnim is the animation state of one board row.
type RowAnim struct {
	Key     string
	Dest    FieldScroll
	Remarks FieldScroll
}

// AnimState is the per-station animation state, threaded through each
// tick as a value. A nil *AnimState means "first tick for this content".
type AnimState struct {
	Rows []RowAnim
}

// ScrollComplete reports whether every scrollable field has finished a
// full pass (or never needed to scroll).
func (s *AnimState) ScrollComplete() bool {
	if s == nil {
		return true
	}
	for _, r := range s.Rows {
		if !r.Dest.Complete() || !r.Remarks.Complete() {
			return false
		}
	}
	return true
}

// Clock computes animation state as a pure function of wall-clock time
// and the previous state. No hidden timers: frame generation is
// replayable with an injected clock.
type Clock struct {
	// ScrollSpeed is the horizontal scroll rate in pixels per second.
	ScrollSpeed float64
	// ScrollPause is the hold time at each end of a scroll pass.
	ScrollPause time.Duration
	// BlinkPeriod drives the hurry-zone blink.
	BlinkPeriod time.Duration
	// FlickerPeriod drives the cancelled-row text alternation.
	FlickerPeriod time.Duration
}

func NewClock() Clock {
	return Clock{
		ScrollSpeed:   30,
		ScrollPause:   time.Second,
		BlinkPeriod:   time.Second,
		FlickerPeriod: time.Second,
	}
}

// BlinkOn is true during the even half-periods of the blink cycle.
func (c Clock) BlinkOn(now time.Time) bool {
	return phaseOn(now, c.BlinkPeriod)
}

// FlickerOn is true during the even half-periods of the flicker cycle.
// While false, cancelled rows show the cancellation label instead of
// their destination.
func (c Clock) FlickerOn(now time.Time) bool {
	return phaseOn(now, c.FlickerPeriod)
}

func phaseOn(now time.Time, period time.Duration) bool {
	if period <= 0 {
		return true
	}
	return (now.UnixNano()/int64(period))%2 == 0
}

// Advance computes the next animation state. Rows are matched to their
// previous state by index and content key; a mismatch resets that row
// to its initial state.
func (c Clock) Advance(prev *AnimState, now time.Time, rows []RowContent) *AnimState {
	next := &AnimState{Rows: make([]RowAnim, len(rows))}
	for i, rc := range rows {
		var prevDest, prevRemarks FieldScroll
		if prev != nil && i < len(prev.Rows) && prev.Rows[i].Key == rc.Key {
			prevDest = prev.Rows[i].Dest
			prevRemarks = prev.Rows[i].Remarks
		}
		next.Rows[i] = RowAnim{
			Key:     rc.Key,
			Dest:    c.advanceField(prevDest, now, rc.DestWidth, rc.DestViewport),
			Remarks: c.advanceField(prevRemarks, now, rc.RemarksWidth, rc.RemarksViewport),
		}
	}
	return next
}

// advanceField computes one field's next state. Every input maps to
// exactly one output state; there is no undefined transition.
func (c Clock) advanceField(prev FieldScroll, now time.Time, contentW, viewportW int) FieldScroll {
	if contentW <= viewportW || viewportW <= 0 {
		return FieldScroll{Phase: PhaseIdle, Since: now}
	}
	maxOffset := float64(contentW - viewportW)

	switch prev.Phase {
	case PhasePausedAtStart:
		if now.Sub(prev.Since) >= c.ScrollPause {
			return FieldScroll{Phase: PhaseScrolling, Since: now}
		}
		return prev
	case PhaseScrolling:
		offset := c.ScrollSpeed * now.Sub(prev.Since).Seconds()
		if offset >= maxOffset {
			return FieldScroll{Phase: PhasePausedAtEnd, OffsetPx: maxOffset, Since: now}
		}
		return FieldScroll{Phase: PhaseScrolling, OffsetPx: offset, Since: prev.Since}
	case PhasePausedAtEnd:
		if now.Sub(prev.Since) >= c.ScrollPause {
			return FieldScroll{Phase: PhasePausedAtStart, Since: now}
		}
		return prev
	default:
		// Idle state (or zero value) with overflowing content: the text
		// grew past the viewport, start a fresh pass.
		return FieldScroll{Phase: PhasePausedAtStart, Since: now}
	}
}
