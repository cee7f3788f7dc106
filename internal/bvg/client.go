package bvg

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/imroc/req/v3"
	"golang.org/x/time/rate"
)

// BVG Transport REST API v6. Public, no authentication; rate limited to
// 100 requests/minute upstream, which the client limiter stays under.
const defaultBaseURL = "https://v6.bvg.transport.rest"

// lookahead window for departure queries, in minutes
const departureWindow = 60

// ProductFilter selects which transport kinds the departures endpoint
// returns. Filtering happens server-side via query parameters.
type ProductFilter struct {
	Suburban bool
	Subway   bool
	Tram     bool
	Bus      bool
	Ferry    bool
	Express  bool
	Regional bool
}

// Kinds returns the enabled products as a set for local re-filtering.
func (f ProductFilter) Kinds() map[Kind]bool {
	return map[Kind]bool{
		KindSuburban: f.Suburban,
		KindSubway:   f.Subway,
		KindTram:     f.Tram,
		KindBus:      f.Bus,
		KindFerry:    f.Ferry,
		KindExpress:  f.Express,
		KindRegional: f.Regional,
	}
}

// Location is a station search result.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client talks to the BVG Transport REST API.
type Client struct {
	client  *req.Client
	limiter *rate.Limiter
	baseURL string
}

func NewClient(limiter *rate.Limiter) *Client {
	client := req.C().
		SetTimeout(10 * time.Second).
		SetCommonHeader("Accept", "application/json").
		SetUserAgent("abfahrt (https://github.com/ydixken/abfahrt)")
	return &Client{
		client:  client,
		limiter: limiter,
		baseURL: defaultBaseURL,
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Departures fetches, parses, and sorts departures for a station.
// Unparseable records are skipped; the remaining list is sorted by
// actual departure time with the API order preserved on ties.
func (c *Client) Departures(ctx context.Context, stationID string, filter ProductFilter, count int) ([]Departure, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"duration": strconv.Itoa(departureWindow),
			"results":  strconv.Itoa(count),
			"suburban": strconv.FormatBool(filter.Suburban),
			"subway":   strconv.FormatBool(filter.Subway),
			"tram":     strconv.FormatBool(filter.Tram),
			"bus":      strconv.FormatBool(filter.Bus),
			"ferry":    strconv.FormatBool(filter.Ferry),
			"express":  strconv.FormatBool(filter.Express),
			"regional": strconv.FormatBool(filter.Regional),
		}).
		Get(c.baseURL + "/stops/" + stationID + "/departures")
	if err != nil {
		return nil, fmt.Errorf("fetch departures for %s: %w", stationID, err)
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("fetch departures for %s: unexpected status %s", stationID, resp.Status)
	}

	raws, err := decodeDepartures(resp.Bytes())
	if err != nil {
		return nil, fmt.Errorf("decode departures for %s: %w", stationID, err)
	}

	departures := make([]Departure, 0, len(raws))
	for _, raw := range raws {
		dep, err := parseDeparture(raw)
		if err != nil {
			continue
		}
		departures = append(departures, dep)
	}
	sort.SliceStable(departures, func(i, j int) bool {
		return departures[i].Actual.Before(departures[j].Actual)
	})
	return departures, nil
}

// decodeDepartures handles both response shapes the API has shipped:
// {"departures": [...]} and a bare top-level list.
func decodeDepartures(body []byte) ([]rawDeparture, error) {
	var wrapped struct {
		Departures []rawDeparture `json:"departures"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Departures != nil {
		return wrapped.Departures, nil
	}
	var bare []rawDeparture
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

// SearchStations looks up stations by name.
func (c *Client) SearchStations(ctx context.Context, query string) ([]Location, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var locations []Location
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"query": query, "results": "5"}).
		SetSuccessResult(&locations).
		Get(c.baseURL + "/locations")
	if err != nil {
		return nil, fmt.Errorf("search stations %q: %w", query, err)
	}
	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("search stations %q: unexpected status %s", query, resp.Status)
	}
	return locations, nil
}

// StationName resolves the display name for a station ID.
func (c *Client) StationName(ctx context.Context, stationID string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	var stop struct {
		Name string `json:"name"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&stop).
		Get(c.baseURL + "/stops/" + stationID)
	if err != nil {
		return "", fmt.Errorf("resolve station %s: %w", stationID, err)
	}
	if !resp.IsSuccessState() {
		return "", fmt.Errorf("resolve station %s: unexpected status %s", stationID, resp.Status)
	}
	if stop.Name == "" {
		return "Station " + stationID, nil
	}
	return stop.Name, nil
}
