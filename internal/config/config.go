package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/ydixken/abfahrt/internal/bvg"
)

// StationConfig is one station in the rotation.
type StationConfig struct {
	// ID is the 9-digit BVG station ID (e.g. "900023201").
	ID string `yaml:"id"`
	// Name overrides the display name; empty means resolve via the API.
	Name string `yaml:"name"`
	// WalkingMinutes drives hurry-zone filtering; 0 disables it.
	WalkingMinutes int `yaml:"walking_minutes"`
	// Lines restricts the board to these base line names; empty shows all.
	Lines []string `yaml:"lines"`
}

// DisplayConfig selects and sizes the display backend.
type DisplayConfig struct {
	// Mode is "window", "ssd1322", or "web".
	Mode        string `yaml:"mode"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Fullscreen  bool   `yaml:"fullscreen"`
	FPS         int    `yaml:"fps"`
	ShowRemarks bool   `yaml:"show_remarks"`
	// ShowItems is the number of departure rows on the board.
	ShowItems int `yaml:"show_items"`
	// ListenAddr is the bind address of the web preview backend.
	ListenAddr string `yaml:"listen_addr"`
}

// RefreshConfig controls the departure fetch cadence.
type RefreshConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	// DepartureCount is the number of departures requested per station.
	DepartureCount int `yaml:"departure_count"`
}

// FilterConfig enables transport kinds globally.
type FilterConfig struct {
	Suburban bool `yaml:"suburban"`
	Subway   bool `yaml:"subway"`
	Tram     bool `yaml:"tram"`
	Bus      bool `yaml:"bus"`
	Ferry    bool `yaml:"ferry"`
	Express  bool `yaml:"express"`
	Regional bool `yaml:"regional"`
}

// Products converts the filter toggles for the API client.
func (f FilterConfig) Products() bvg.ProductFilter {
	return bvg.ProductFilter{
		Suburban: f.Suburban,
		Subway:   f.Subway,
		Tram:     f.Tram,
		Bus:      f.Bus,
		Ferry:    f.Ferry,
		Express:  f.Express,
		Regional: f.Regional,
	}
}

// RotationConfig controls multi-station rotation.
type RotationConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// FontConfig holds the base font sizes; they scale with display height.
type FontConfig struct {
	StationNameSize int `yaml:"station_name_size"`
	HeaderSize      int `yaml:"header_size"`
	DepartureSize   int `yaml:"departure_size"`
	RemarkSize      int `yaml:"remark_size"`
}

// WeatherConfig locates the weather forecast.
type WeatherConfig struct {
	Latitude       float64 `yaml:"latitude"`
	Longitude      float64 `yaml:"longitude"`
	RefreshSeconds int     `yaml:"refresh_seconds"`
}

// Config is the assembled application configuration: hardcoded
// defaults overlaid by an optional YAML file, overlaid by CLI flags
// (applied in main). Each layer only overrides what it sets.
type Config struct {
	Stations []StationConfig `yaml:"stations"`
	Rotation RotationConfig  `yaml:"rotation"`
	Display  DisplayConfig   `yaml:"display"`
	Refresh  RefreshConfig   `yaml:"refresh"`
	Filters  FilterConfig    `yaml:"filters"`
	Fonts    FontConfig      `yaml:"fonts"`
	Weather  WeatherConfig   `yaml:"weather"`
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

func (c *Config) RotationInterval() time.Duration {
	return time.Duration(c.Rotation.IntervalSeconds) * time.Second
}

// Default returns the built-in configuration: a single Berlin station
// on a desktop-sized window, rail products only.
func Default() *Config {
	return &Config{
		Stations: []StationConfig{{
			ID:             "900023201", // S Savignyplatz
			WalkingMinutes: 5,
		}},
		Rotation: RotationConfig{IntervalSeconds: 10},
		Display: DisplayConfig{
			Mode:        "window",
			Width:       1520,
			Height:      180,
			FPS:         30,
			ShowRemarks: true,
			ShowItems:   4,
			ListenAddr:  ":8091",
		},
		Refresh: RefreshConfig{IntervalSeconds: 30, DepartureCount: 20},
		Filters: FilterConfig{
			Suburban: true,
			Subway:   true,
			Tram:     true,
			Express:  true,
			Regional: true,
			// Bus and ferry stay off by default: rail-focused boards
			// drown in bus departures otherwise.
		},
		Fonts: FontConfig{
			StationNameSize: 20,
			HeaderSize:      13,
			DepartureSize:   18,
			RemarkSize:      13,
		},
		Weather: WeatherConfig{
			// Berlin Friedrichshain
			Latitude:       52.5170,
			Longitude:      13.4540,
			RefreshSeconds: 600,
		},
	}
}

// Load builds the configuration from defaults plus an optional YAML
// overlay. A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Stations) == 0 {
		return fmt.Errorf("config: no stations configured")
	}
	for i, s := range c.Stations {
		if s.ID == "" {
			return fmt.Errorf("config: station %d has no id", i)
		}
		if s.WalkingMinutes < 0 {
			return fmt.Errorf("config: station %s has negative walking_minutes", s.ID)
		}
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("config: invalid display size %dx%d", c.Display.Width, c.Display.Height)
	}
	if c.Display.FPS <= 0 {
		return fmt.Errorf("config: fps must be positive")
	}
	switch c.Display.Mode {
	case "window", "ssd1322", "web":
	default:
		return fmt.Errorf("config: unknown display mode %q", c.Display.Mode)
	}
	return nil
}

// Env returns an environment variable or a default, for deploy-time
// knobs that do not belong in the YAML file.
func Env(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
