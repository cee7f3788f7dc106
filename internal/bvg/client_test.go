package bvg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const departuresJSON = `{
	"departures": [
		{
			"when": "2026-08-29T14:20:00+02:00",
			"plannedWhen": "2026-08-29T14:18:00+02:00",
			"delay": 120,
			"direction": "S Ostkreuz",
			"line": {"name": "S41", "product": "suburban"},
			"remarks": [{"type": "hint", "code": "FK"}]
		},
		{
			"when": "2026-08-29T14:12:00+02:00",
			"direction": "Rathaus Spandau",
			"line": {"name": "U7", "product": "subway"}
		},
		{
			"direction": "no timestamp, skipped",
			"line": {"name": "M29", "product": "bus"}
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	client := NewClient(nil)
	client.baseURL = server.URL
	return client
}

func TestDeparturesParsesAndSorts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stops/900023201/departures", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("suburban"))
		assert.Equal(t, "false", r.URL.Query().Get("ferry"))
		assert.Equal(t, "20", r.URL.Query().Get("results"))
		w.Write([]byte(departuresJSON))
	})

	filter := ProductFilter{Suburban: true, Subway: true, Tram: true, Bus: true, Express: true, Regional: true}
	departures, err := client.Departures(context.Background(), "900023201", filter, 20)
	require.NoError(t, err)

	// The record without a timestamp is dropped, the rest sorted by time.
	require.Len(t, departures, 2)
	assert.Equal(t, "U7", departures[0].Line)
	assert.Equal(t, "S41", departures[1].Line)
	assert.Equal(t, "Ostkreuz", departures[1].Direction)
	assert.Equal(t, 120, departures[1].DelaySeconds)
	assert.Equal(t, []string{"Fahrradmitnahme möglich"}, departures[1].Remarks)
}

func TestDeparturesAcceptsBareListShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"when": "2026-08-29T14:12:00+02:00", "direction": "Ostkreuz", "line": {"name": "S41", "product": "suburban"}}]`))
	})

	departures, err := client.Departures(context.Background(), "900023201", ProductFilter{Suburban: true}, 10)
	require.NoError(t, err)
	require.Len(t, departures, 1)
	assert.Equal(t, "S41", departures[0].Line)
}

func TestDeparturesErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.Departures(context.Background(), "900023201", ProductFilter{}, 10)
	assert.Error(t, err)
}

func TestSearchStations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations", r.URL.Path)
		assert.Equal(t, "Savignyplatz", r.URL.Query().Get("query"))
		w.Write([]byte(`[{"id": "900023201", "name": "S Savignyplatz"}]`))
	})

	locations, err := client.SearchStations(context.Background(), "Savignyplatz")
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "900023201", locations[0].ID)
	assert.Equal(t, "S Savignyplatz", locations[0].Name)
}

func TestStationName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "900023201", "name": "S Savignyplatz"}`))
	})

	name, err := client.StationName(context.Background(), "900023201")
	require.NoError(t, err)
	assert.Equal(t, "S Savignyplatz", name)
}

func TestStationNameFallsBackToID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	name, err := client.StationName(context.Background(), "900023201")
	require.NoError(t, err)
	assert.Equal(t, "Station 900023201", name)
}
