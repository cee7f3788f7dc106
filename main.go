package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/ydixken/abfahrt/internal/app"
	"github.com/ydixken/abfahrt/internal/board"
	"github.com/ydixken/abfahrt/internal/bvg"
	"github.com/ydixken/abfahrt/internal/config"
	"github.com/ydixken/abfahrt/internal/weather"
)

const version = "1.0.0"

func main() {
	var (
		configPath = flag.String("config", config.Env("ABFAHRT_CONFIG", "config.yaml"), "path to YAML config file")
		stationID  = flag.String("station-id", "", "override: show only this station ID")
		walking    = flag.Int("walking", -1, "override: walking minutes to the station")
		refresh    = flag.Int("refresh", 0, "override: departure refresh interval in seconds")
		rotation   = flag.Int("rotation", 0, "override: station rotation interval in seconds")
		mode       = flag.String("mode", "", "override: display mode (window, ssd1322, web)")
		fullscreen = flag.Bool("fullscreen", false, "run the window display fullscreen")
		search     = flag.String("search", "", "search stations by name and exit")
		fetchTest  = flag.Bool("fetch-test", false, "print live departures for the configured stations and exit")
		renderTest = flag.Bool("render-test", false, "render mock departures to PNG files and exit")
		debug      = flag.Bool("debug", false, "log with file locations")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[abfahrt] ", log.LstdFlags)
	if *debug {
		logger.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	applyOverrides(cfg, *stationID, *walking, *refresh, *rotation, *mode, *fullscreen)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *search != "":
		runSearch(ctx, *search, logger)
	case *fetchTest:
		runFetchTest(ctx, cfg, logger)
	case *renderTest:
		runRenderTest(cfg, logger)
	default:
		a, err := app.New(cfg, version, logger)
		if err != nil {
			logger.Fatalf("failed to initialize: %v", err)
		}
		if err := a.Run(ctx); err != nil {
			logger.Fatalf("application error: %v", err)
		}
		logger.Println("application stopped")
	}
}

func applyOverrides(cfg *config.Config, stationID string, walking, refresh, rotation int, mode string, fullscreen bool) {
	if stationID != "" {
		station := config.StationConfig{ID: stationID, WalkingMinutes: 0}
		if walking >= 0 {
			station.WalkingMinutes = walking
		}
		cfg.Stations = []config.StationConfig{station}
	} else if walking >= 0 {
		for i := range cfg.Stations {
			cfg.Stations[i].WalkingMinutes = walking
		}
	}
	if refresh > 0 {
		cfg.Refresh.IntervalSeconds = refresh
	}
	if rotation > 0 {
		cfg.Rotation.IntervalSeconds = rotation
	}
	if mode != "" {
		cfg.Display.Mode = mode
	}
	if fullscreen {
		cfg.Display.Fullscreen = true
	}
}

func runSearch(ctx context.Context, query string, logger *log.Logger) {
	client := bvg.NewClient(rate.NewLimiter(rate.Every(time.Second), 5))
	locations, err := client.SearchStations(ctx, query)
	if err != nil {
		logger.Fatalf("station search failed: %v", err)
	}
	if len(locations) == 0 {
		fmt.Printf("no stations found for %q\n", query)
		return
	}
	for _, loc := range locations {
		fmt.Printf("%-12s %s\n", loc.ID, loc.Name)
	}
}

func runFetchTest(ctx context.Context, cfg *config.Config, logger *log.Logger) {
	client := bvg.NewClient(rate.NewLimiter(rate.Every(time.Second), 5))
	now := time.Now()

	for _, sc := range cfg.Stations {
		name := sc.Name
		if name == "" {
			resolved, err := client.StationName(ctx, sc.ID)
			if err != nil {
				logger.Printf("station name resolution failed | station: %s | error: %v", sc.ID, err)
				resolved = sc.ID
			}
			name = resolved
		}

		departures, err := client.Departures(ctx, sc.ID, cfg.Filters.Products(), cfg.Refresh.DepartureCount)
		if err != nil {
			logger.Fatalf("departure fetch failed | station: %s | error: %v", sc.ID, err)
		}

		fmt.Printf("\n%s (%s), %d departures:\n", name, sc.ID, len(departures))
		for _, d := range departures {
			status := ""
			if d.Cancelled {
				status = "  CANCELLED"
			} else if delay := d.DelayMinutes(); delay > 0 {
				status = fmt.Sprintf("  +%dmin", delay)
			}
			fmt.Printf("  %-8s %-32s %s  in %dmin%s\n",
				d.Line, d.Direction, d.Actual.Format("15:04"), d.MinutesUntil(now), status)
		}
	}
}

// runRenderTest renders one frame of mock departures for the configured
// resolution and for the 256x64 OLED target, so layout changes can be
// eyeballed without hardware or network.
func runRenderTest(cfg *config.Config, logger *log.Logger) {
	// Even second so the blink phase is on and hurry rows are visible.
	now := time.Now().Truncate(2 * time.Second)

	targets := []struct {
		file   string
		width  int
		height int
	}{
		{"render_test_window.png", cfg.Display.Width, cfg.Display.Height},
		{"render_test_oled.png", 256, 64},
	}

	for _, t := range targets {
		lay, err := board.NewLayout(t.width, t.height, cfg.Display.ShowItems, cfg.Display.ShowRemarks, board.FontSizes{
			StationName: cfg.Fonts.StationNameSize,
			Header:      cfg.Fonts.HeaderSize,
			Departure:   cfg.Fonts.DepartureSize,
			Remark:      cfg.Fonts.RemarkSize,
		})
		if err != nil {
			logger.Fatalf("layout for %s: %v", t.file, err)
		}
		renderer, err := board.NewRenderer(lay)
		if err != nil {
			logger.Fatalf("renderer for %s: %v", t.file, err)
		}

		filter := board.Filter{
			Kinds:          cfg.Filters.Products().Kinds(),
			WalkingMinutes: 5,
			MaxRows:        cfg.Display.ShowItems,
		}
		rows := filter.Apply(mockDepartures(now), now)
		anim := board.NewClock().Advance(nil, now, renderer.Measure(rows))

		frame := renderer.Render("Savignyplatz", rows, anim, board.FrameOpts{
			Now: now,
			Weather: &weather.Snapshot{
				CurrentTemp: 18, DailyLow: 11, DailyHigh: 23, FetchTime: now,
			},
			FetchOK:   true,
			BlinkOn:   true,
			FlickerOn: true,
		})

		f, err := os.Create(t.file)
		if err != nil {
			logger.Fatalf("create %s: %v", t.file, err)
		}
		if err := png.Encode(f, frame); err != nil {
			f.Close()
			logger.Fatalf("encode %s: %v", t.file, err)
		}
		if err := f.Close(); err != nil {
			logger.Fatalf("close %s: %v", t.file, err)
		}
		logger.Printf("wrote %s | size: %dx%d | rows: %d", t.file, t.width, t.height, len(rows))
	}
}

func mockDepartures(now time.Time) []bvg.Departure {
	mk := func(line string, kind bvg.Kind, direction string, mins, delayMin int, remarks []string, cancelled bool) bvg.Departure {
		planned := now.Add(time.Duration(mins-delayMin) * time.Minute)
		return bvg.Departure{
			Line:         line,
			BaseLine:     line,
			Kind:         kind,
			Direction:    direction,
			Planned:      planned,
			Actual:       planned.Add(time.Duration(delayMin) * time.Minute),
			DelaySeconds: delayMin * 60,
			Remarks:      remarks,
			Cancelled:    cancelled,
		}
	}
	return []bvg.Departure{
		mk("S41", bvg.KindSuburban, "Ringbahn", 4, 0, nil, false),
		mk("S42", bvg.KindSuburban, "Ringbahn", 7, 2, []string{"Fahrradmitnahme möglich"}, false),
		mk("U7", bvg.KindSubway, "Rathaus Spandau", 9, 0, nil, true),
		mk("M29", bvg.KindBus, "Grunewald, Roseneck über sehr lange Umleitungsstrecke", 12, 0, []string{"Ersatzverkehr mit Bussen zwischen Hermannplatz und Südstern"}, false),
		mk("M46", bvg.KindBus, "Britz-Süd", 16, 1, nil, false),
	}
}
