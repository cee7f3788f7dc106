// Package app orchestrates fetching, rendering, and displaying the
// departure board. All network refresh happens off the render tick: the
// tick only ever reads the most recently cached snapshots, so a slow or
// failed fetch shows stale data instead of stalling the display.
package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ydixken/abfahrt/internal/board"
	"github.com/ydixken/abfahrt/internal/bvg"
	"github.com/ydixken/abfahrt/internal/config"
	"github.com/ydixken/abfahrt/internal/display"
	"github.com/ydixken/abfahrt/internal/weather"
)

// bootMinDuration keeps the splash on screen long enough to read.
const bootMinDuration = 3 * time.Second

// stationState is the cached runtime state for one configured station.
// Guarded by App.mu; the render tick copies what it needs under the
// lock and works on the copy.
type stationState struct {
	id             string
	name           string
	walkingMinutes int
	lines          []string

	departures  []bvg.Departure
	lastAttempt time.Time
	lastFetch   time.Time
	fetchOK     bool
}

// App wires the clients, the rendering core, and a display backend
// into the tick-driven main loop.
type App struct {
	cfg     *config.Config
	version string
	logger  *log.Logger

	client        *bvg.Client
	weatherClient *weather.Client
	backend       display.Backend
	renderer      *board.Renderer
	clock         board.Clock
	kinds         map[bvg.Kind]bool

	mu          sync.Mutex
	stations    []*stationState
	weatherSnap *weather.Snapshot
	status      string
	ready       bool

	// Animation and rotation state belong to the tick goroutine alone.
	rotator *board.Rotator
	anim    *board.AnimState
}

// New assembles the application from configuration. The display
// backend is chosen here; everything downstream only sees the Backend
// interface.
func New(cfg *config.Config, version string, logger *log.Logger) (*App, error) {
	lay, err := board.NewLayout(cfg.Display.Width, cfg.Display.Height, cfg.Display.ShowItems, cfg.Display.ShowRemarks, board.FontSizes{
		StationName: cfg.Fonts.StationNameSize,
		Header:      cfg.Fonts.HeaderSize,
		Departure:   cfg.Fonts.DepartureSize,
		Remark:      cfg.Fonts.RemarkSize,
	})
	if err != nil {
		return nil, err
	}
	renderer, err := board.NewRenderer(lay)
	if err != nil {
		return nil, err
	}

	var backend display.Backend
	switch cfg.Display.Mode {
	case "window":
		backend = display.NewWindow(cfg.Display.Width, cfg.Display.Height, cfg.Display.Fullscreen, logger)
	case "ssd1322":
		backend, err = display.NewSSD1322(cfg.Display.Width, cfg.Display.Height, cfg.Display.FPS, logger)
		if err != nil {
			return nil, fmt.Errorf("init ssd1322 backend: %w", err)
		}
	case "web":
		backend = display.NewWeb(cfg.Display.ListenAddr, cfg.Display.FPS, logger)
	default:
		return nil, fmt.Errorf("unknown display mode %q", cfg.Display.Mode)
	}

	stations := make([]*stationState, len(cfg.Stations))
	for i, sc := range cfg.Stations {
		stations[i] = &stationState{
			id:             sc.ID,
			name:           sc.Name,
			walkingMinutes: sc.WalkingMinutes,
			lines:          sc.Lines,
		}
	}

	// The API allows 100 requests/minute; stay comfortably under it.
	limiter := rate.NewLimiter(rate.Every(time.Second), 10)

	return &App{
		cfg:           cfg,
		version:       version,
		logger:        logger,
		client:        bvg.NewClient(limiter),
		weatherClient: weather.NewClient(cfg.Weather.Latitude, cfg.Weather.Longitude),
		backend:       backend,
		renderer:      renderer,
		clock:         board.NewClock(),
		kinds:         cfg.Filters.Products().Kinds(),
		stations:      stations,
	}, nil
}

// Run starts the refresh loop and hands control to the display
// backend, which drives the tick cadence until quit.
func (a *App) Run(ctx context.Context) error {
	a.logger.Printf("starting | stations: %d | refresh: %v | rotation: %v | display: %s",
		len(a.stations), a.cfg.RefreshInterval(), a.cfg.RotationInterval(), a.cfg.Display.Mode)

	a.rotator = board.NewRotator(len(a.stations), a.cfg.RotationInterval(), time.Now())

	go a.bootstrap(ctx)
	go a.refreshLoop(ctx)

	defer a.backend.Close()
	return a.backend.Run(ctx, a.tick)
}

func (a *App) setStatus(status string) {
	a.mu.Lock()
	a.status = status
	a.mu.Unlock()
}

// bootstrap resolves station names and runs the initial fetches while
// the splash screen is up, then marks the app ready.
func (a *App) bootstrap(ctx context.Context) {
	start := time.Now()
	a.setStatus("Stationen laden...")

	g, gctx := errgroup.WithContext(ctx)
	for _, st := range a.stations {
		if st.name != "" {
			continue
		}
		st := st
		g.Go(func() error {
			a.resolveStation(gctx, st)
			return nil
		})
	}
	g.Wait()

	a.setStatus("Wetter laden...")
	a.refreshWeather(ctx)

	a.setStatus("Abfahrten laden...")
	g, gctx = errgroup.WithContext(ctx)
	for _, st := range a.stations {
		st := st
		g.Go(func() error {
			a.fetchStation(gctx, st)
			return nil
		})
	}
	g.Wait()

	a.setStatus("Hacke-di-hack!")
	if remaining := bootMinDuration - time.Since(start); remaining > 0 {
		select {
		case <-time.After(remaining):
		case <-ctx.Done():
		}
	}

	a.mu.Lock()
	a.ready = true
	a.status = ""
	a.mu.Unlock()
	a.logger.Println("entering main loop")
}

func (a *App) resolveStation(ctx context.Context, st *stationState) {
	name, err := a.client.StationName(ctx, st.id)
	if err != nil {
		a.logger.Printf("station name resolution failed | station: %s | error: %v", st.id, err)
		return
	}
	a.mu.Lock()
	st.name = name
	a.mu.Unlock()
	a.logger.Printf("resolved station | id: %s | name: %s", st.id, name)
}

func (a *App) fetchStation(ctx context.Context, st *stationState) {
	now := time.Now()
	departures, err := a.client.Departures(ctx, st.id, a.cfg.Filters.Products(), a.cfg.Refresh.DepartureCount)

	a.mu.Lock()
	defer a.mu.Unlock()
	st.lastAttempt = now
	if err != nil {
		st.fetchOK = false
		a.logger.Printf("departure fetch failed | station: %s | error: %v", st.id, err)
		return
	}
	st.departures = departures
	st.lastFetch = now
	st.fetchOK = true
	a.logger.Printf("fetched departures | station: %s | count: %d | elapsed: %v",
		st.id, len(departures), time.Since(now).Round(time.Millisecond))
}

func (a *App) refreshWeather(ctx context.Context) {
	maxAge := time.Duration(a.cfg.Weather.RefreshSeconds) * time.Second
	a.mu.Lock()
	snap := a.weatherSnap
	a.mu.Unlock()
	if snap != nil && !snap.Stale(time.Now(), maxAge) {
		return
	}

	fresh, err := a.weatherClient.Fetch(ctx)
	if err != nil {
		a.logger.Printf("weather fetch failed | error: %v", err)
		return
	}
	a.mu.Lock()
	a.weatherSnap = fresh
	a.mu.Unlock()
	a.logger.Printf("fetched weather | temp: %.0fC | low/high: %.0f/%.0fC | precip: %q",
		fresh.CurrentTemp, fresh.DailyLow, fresh.DailyHigh, fresh.PrecipSummary())
}

// refreshLoop re-fetches stale stations and weather on its own
// cadence, decoupled from the render tick.
func (a *App) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			ready := a.ready
			a.mu.Unlock()
			if !ready {
				continue
			}
			for _, st := range a.stations {
				a.mu.Lock()
				stale := time.Since(st.lastAttempt) >= a.cfg.RefreshInterval()
				unnamed := st.name == ""
				a.mu.Unlock()
				if unnamed {
					a.resolveStation(ctx, st)
				}
				if stale {
					a.fetchStation(ctx, st)
				}
			}
			a.refreshWeather(ctx)
		}
	}
}

// tickSnapshot is the value copy of the active station the render tick
// works on after releasing the lock.
type tickSnapshot struct {
	index      int
	name       string
	walking    int
	lines      []string
	departures []bvg.Departure
	lastFetch  time.Time
	fetchOK    bool
	weather    *weather.Snapshot
}

// tick produces one frame. It is the only writer of animation and
// rotation state, and everything below the snapshot copy is pure
// computation.
func (a *App) tick(now time.Time) *image.RGBA {
	a.mu.Lock()
	if !a.ready {
		status := a.status
		a.mu.Unlock()
		return a.renderer.RenderBoot(status, a.version)
	}
	idx := a.rotator.Active()
	st := a.stations[idx]
	snap := tickSnapshot{
		index:      idx,
		name:       st.name,
		walking:    st.walkingMinutes,
		lines:      st.lines,
		departures: st.departures,
		lastFetch:  st.lastFetch,
		fetchOK:    st.fetchOK,
		weather:    a.weatherSnap,
	}
	a.mu.Unlock()

	// Error frames still rotate so one dead station cannot pin the
	// board; there is no scroll to wait for.
	if snap.name == "" {
		a.rotate(now, true)
		return a.renderer.RenderMessage("Station not found")
	}
	if snap.lastFetch.IsZero() {
		a.rotate(now, true)
		return a.renderer.RenderMessage("Netzwerkfehler")
	}

	filter := board.Filter{
		Kinds:          a.kinds,
		Allowlist:      snap.lines,
		WalkingMinutes: snap.walking,
		MaxRows:        a.cfg.Display.ShowItems,
	}
	rows := filter.Apply(snap.departures, now)
	a.anim = a.clock.Advance(a.anim, now, a.renderer.Measure(rows))

	frame := a.renderer.Render(snap.name, rows, a.anim, board.FrameOpts{
		Now:         now,
		Weather:     snap.weather,
		WeatherPage: snap.index,
		FetchOK:     snap.fetchOK,
		BlinkOn:     a.clock.BlinkOn(now),
		FlickerOn:   a.clock.FlickerOn(now),
		LinesHint:   snap.lines,
	})

	a.rotate(now, a.anim.ScrollComplete())
	return frame
}

// rotate advances the rotation state machine and resets animation
// state when the active station changes: stored scroll offsets are
// meaningless for the next station's text widths.
func (a *App) rotate(now time.Time, scrollComplete bool) {
	if !a.rotator.Advance(now, scrollComplete) {
		return
	}
	a.anim = nil
	a.mu.Lock()
	name := a.stations[a.rotator.Active()].name
	a.mu.Unlock()
	a.logger.Printf("rotated station | active: %s", name)
}
