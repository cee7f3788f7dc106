package weather

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/imroc/req/v3"
)

// Open-Meteo free forecast API. No key required.
const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Snapshot is one weather reading: current temperature, today's
// extremes, and hourly precipitation for the next 12 hours.
type Snapshot struct {
	CurrentTemp   float64
	DailyLow      float64
	DailyHigh     float64
	PrecipNext12h []float64
	FetchTime     time.Time
}

// PrecipTotal is the summed precipitation over the next 12 hours in mm.
func (s *Snapshot) PrecipTotal() float64 {
	var total float64
	for _, v := range s.PrecipNext12h {
		total += v
	}
	return total
}

// PrecipSummary is a short display string, empty when no rain is due.
func (s *Snapshot) PrecipSummary() string {
	total := s.PrecipTotal()
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%.0fmm", math.Round(total))
}

// TempSummary formats current and daily low/high temperatures.
func (s *Snapshot) TempSummary() string {
	return fmt.Sprintf("%.0fC %.0f/%.0fC", s.CurrentTemp, s.DailyLow, s.DailyHigh)
}

// Stale reports whether the snapshot should be refreshed.
func (s *Snapshot) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.FetchTime) >= maxAge
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
	} `json:"current"`
	Daily struct {
		Min []float64 `json:"temperature_2m_min"`
		Max []float64 `json:"temperature_2m_max"`
	} `json:"daily"`
	Hourly struct {
		Precipitation []float64 `json:"precipitation"`
	} `json:"hourly"`
}

// Client fetches weather snapshots for a fixed location.
type Client struct {
	client  *req.Client
	baseURL string
	lat     float64
	lon     float64
}

func NewClient(lat, lon float64) *Client {
	client := req.C().
		SetTimeout(10 * time.Second).
		SetUserAgent("abfahrt (https://github.com/ydixken/abfahrt)")
	return &Client{
		client:  client,
		baseURL: defaultBaseURL,
		lat:     lat,
		lon:     lon,
	}
}

// Fetch gets the current forecast from Open-Meteo.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	var data forecastResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":       strconv.FormatFloat(c.lat, 'f', 4, 64),
			"longitude":      strconv.FormatFloat(c.lon, 'f', 4, 64),
			"current":        "temperature_2m",
			"daily":          "temperature_2m_min,temperature_2m_max",
			"hourly":         "precipitation",
			"timezone":       "Europe/Berlin",
			"forecast_days":  "1",
			"forecast_hours": "12",
		}).
		SetSuccessResult(&data).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("fetch weather: unexpected status %s", resp.Status)
	}
	if len(data.Daily.Min) == 0 || len(data.Daily.Max) == 0 {
		return nil, fmt.Errorf("fetch weather: response missing daily temperatures")
	}

	precip := data.Hourly.Precipitation
	if len(precip) > 12 {
		precip = precip[:12]
	}
	return &Snapshot{
		CurrentTemp:   data.Current.Temperature,
		DailyLow:      data.Daily.Min[0],
		DailyHigh:     data.Daily.Max[0],
		PrecipNext12h: precip,
		FetchTime:     time.Now(),
	}, nil
}
