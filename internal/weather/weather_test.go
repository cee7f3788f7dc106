package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecastJSON = `{
	"current": {"temperature_2m": 18.4},
	"daily": {"temperature_2m_min": [11.2], "temperature_2m_max": [23.1]},
	"hourly": {"precipitation": [0, 0, 0.4, 1.2, 0, 0, 0, 0, 0, 0, 0, 0, 9.9]}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	client := NewClient(52.5170, 13.4540)
	client.baseURL = server.URL
	return client
}

func TestFetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "52.5170", q.Get("latitude"))
		assert.Equal(t, "13.4540", q.Get("longitude"))
		assert.Equal(t, "temperature_2m", q.Get("current"))
		assert.Equal(t, "12", q.Get("forecast_hours"))
		w.Write([]byte(forecastJSON))
	})

	snap, err := client.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 18.4, snap.CurrentTemp)
	assert.Equal(t, 11.2, snap.DailyLow)
	assert.Equal(t, 23.1, snap.DailyHigh)
	// The 13th hourly value is beyond the 12h window and dropped.
	assert.Len(t, snap.PrecipNext12h, 12)
	assert.False(t, snap.FetchTime.IsZero())
}

func TestFetchRejectsEmptyDailyData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current": {"temperature_2m": 18.4}, "daily": {}, "hourly": {}}`))
	})

	_, err := client.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetchErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Fetch(context.Background())
	assert.Error(t, err)
}

func TestSummaries(t *testing.T) {
	snap := &Snapshot{CurrentTemp: 18.4, DailyLow: 11.2, DailyHigh: 23.1}
	assert.Equal(t, "18C 11/23C", snap.TempSummary())

	assert.Equal(t, "", snap.PrecipSummary(), "dry forecast shows nothing")

	snap.PrecipNext12h = []float64{0.4, 1.2, 0.9}
	assert.InDelta(t, 2.5, snap.PrecipTotal(), 0.001)
	assert.Equal(t, "3mm", snap.PrecipSummary())
}

func TestStale(t *testing.T) {
	now := time.Now()
	snap := &Snapshot{FetchTime: now.Add(-5 * time.Minute)}

	assert.False(t, snap.Stale(now, 10*time.Minute))
	assert.True(t, snap.Stale(now, 5*time.Minute))
	assert.True(t, snap.Stale(now, time.Minute))
}
