package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/analytics"
	"github.com/mohamedkhairy/nse-analytics/internal/cache"
	"github.com/mohamedkhairy/nse-analytics/internal/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quoteView struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	ChangePercent float64 `json:"changePercent"`
}

func TestChart(t *testing.T) {
	router := newTestRouter(t, nil)

	w, env := do(t, router, "GET", "/api/v1/stocks/tcs/chart?period=1M", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Cached)
	assert.False(t, *env.Cached)

	var chart struct {
		Symbol string            `json:"symbol"`
		Period string            `json:"period"`
		Data   []json.RawMessage `json:"data"`
		Meta   struct {
			TotalPoints int     `json:"totalPoints"`
			LastPrice   float64 `json:"lastPrice"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &chart))
	assert.Equal(t, "TCS", chart.Symbol)
	assert.Equal(t, "1M", chart.Period)
	assert.Len(t, chart.Data, 31)
	assert.Equal(t, 31, chart.Meta.TotalPoints)
	assert.Greater(t, chart.Meta.LastPrice, 0.0)

	_, env = do(t, router, "GET", "/api/v1/stocks/TCS/chart?period=1m", "")
	require.NotNil(t, env.Cached)
	assert.True(t, *env.Cached)

	w, _ = do(t, router, "GET", "/api/v1/stocks/TCS/chart?period=10Y", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, router, "GET", "/api/v1/stocks/NOPE/chart", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Symbol not found: NOPE", env.Error)
}

func TestSearch(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		path string
		want []string
	}{
		{"/api/v1/stocks/search/tata", []string{"TCS"}},
		{"/api/v1/stocks/search/INF", []string{"INFY"}},
		{"/api/v1/stocks/search/limited", []string{"TCS", "INFY"}},
		{"/api/v1/stocks/search/reliance", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w, env := do(t, router, "GET", tt.path, "")
			require.Equal(t, http.StatusOK, w.Code)

			var results []quoteView
			require.NoError(t, json.Unmarshal(env.Data, &results))
			symbols := make([]string, 0, len(results))
			for _, r := range results {
				symbols = append(symbols, r.Symbol)
			}
			assert.Equal(t, tt.want, symbols)
		})
	}

	w, _ := do(t, router, "GET", "/api/v1/stocks/search/%20", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMovers(t *testing.T) {
	router := newTestRouter(t, nil)

	w, env := do(t, router, "GET", "/api/v1/market/gainers", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Cached)
	assert.False(t, *env.Cached)

	var gainers []quoteView
	require.NoError(t, json.Unmarshal(env.Data, &gainers))
	for i, q := range gainers {
		assert.Greater(t, q.ChangePercent, 0.0)
		if i > 0 {
			assert.LessOrEqual(t, q.ChangePercent, gainers[i-1].ChangePercent)
		}
	}

	w, env = do(t, router, "GET", "/api/v1/market/losers?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Cached)
	assert.True(t, *env.Cached, "losers come from the same ranked lists")

	var losers []quoteView
	require.NoError(t, json.Unmarshal(env.Data, &losers))
	assert.LessOrEqual(t, len(losers), 1)
	for _, q := range losers {
		assert.Less(t, q.ChangePercent, 0.0)
	}

	for _, limit := range []string{"0", "-3", "ten", "51"} {
		w, _ = do(t, router, "GET", "/api/v1/market/gainers?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestMarketStatus(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, 0)
	t.Cleanup(func() { _ = c.Close() })
	svc := analytics.NewService(marketdata.NewMockProvider(marketdata.MockConfig{Seed: 7}), c, analytics.Config{})

	// Friday 2024-01-19 10:00 IST
	now := time.Date(2024, 1, 19, 4, 30, 0, 0, time.UTC)
	router := NewRouter(RouterConfig{
		Service: svc,
		Symbols: []string{"TCS"},
		Now:     func() time.Time { return now },
	})

	w, env := do(t, router, "GET", "/api/v1/market/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Session  string    `json:"session"`
		IsOpen   bool      `json:"isOpen"`
		OpensAt  time.Time `json:"opensAt"`
		ClosesAt time.Time `json:"closesAt"`
		NextOpen time.Time `json:"nextOpen"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "market", status.Session)
	assert.True(t, status.IsOpen)
	assert.True(t, status.OpensAt.Equal(time.Date(2024, 1, 19, 3, 45, 0, 0, time.UTC)))
	assert.True(t, status.ClosesAt.Equal(time.Date(2024, 1, 19, 10, 0, 0, 0, time.UTC)))
	assert.True(t, status.NextOpen.Equal(time.Date(2024, 1, 22, 3, 45, 0, 0, time.UTC)))
}
