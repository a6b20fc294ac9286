package analytics

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/mohamedkhairy/nse-analytics/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quoteProvider serves full quotes; symbols without one fail
type quoteProvider struct {
	stubProvider
	quotes map[string]models.Quote
	calls  atomic.Int32
}

func (p *quoteProvider) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	p.calls.Add(1)
	q, ok := p.quotes[symbol]
	if !ok {
		return nil, errors.New("upstream unavailable")
	}
	return &q, nil
}

func quote(symbol, name string, changePercent float64) models.Quote {
	return models.Quote{Symbol: symbol, Name: name, Price: 100, ChangePercent: changePercent}
}

func symbolsOf(quotes []models.Quote) []string {
	out := make([]string, len(quotes))
	for i, q := range quotes {
		out[i] = q.Symbol
	}
	return out
}

func TestService_Chart(t *testing.T) {
	p := &stubProvider{bars: risingBars(60)}
	svc := newTestService(t, p)
	ctx := context.Background()

	chart, cached, err := svc.Chart(ctx, "tcs", "")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "TCS", chart.Symbol)
	assert.Equal(t, "3M", chart.Period)
	assert.Len(t, chart.Bars, 60)
	assert.Equal(t, ChartMeta{
		TotalPoints:   60,
		FirstPrice:    100,
		LastPrice:     159,
		PriceChange:   59,
		ChangePercent: 59,
		High:          160,
		Low:           99,
	}, chart.Meta)

	_, cached, err = svc.Chart(ctx, "TCS", "3m")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, int32(1), p.historyCalls.Load())

	_, _, err = svc.Chart(ctx, "TCS", "5Y")
	assert.ErrorIs(t, err, models.ErrInvalidPeriod)

	_, _, err = svc.Chart(ctx, "bad symbol", "")
	assert.ErrorIs(t, err, models.ErrInvalidSymbol)
}

func TestChartMeta_Empty(t *testing.T) {
	assert.Equal(t, ChartMeta{}, chartMeta(nil))
}

func TestService_Movers(t *testing.T) {
	p := &quoteProvider{quotes: map[string]models.Quote{
		"AAA": quote("AAA", "Alpha", 3),
		"BBB": quote("BBB", "Beta", -2),
		"CCC": quote("CCC", "Gamma", 1),
		"DDD": quote("DDD", "Delta", 0),
		"EEE": quote("EEE", "Epsilon", -5),
	}}
	svc := newTestService(t, p)
	ctx := context.Background()
	symbols := []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"}

	movers, cached, err := svc.Movers(ctx, symbols, 0)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []string{"AAA", "CCC"}, symbolsOf(movers.Gainers))
	assert.Equal(t, []string{"EEE", "BBB"}, symbolsOf(movers.Losers))
	assert.Equal(t, 6, movers.Scanned)
	assert.Equal(t, 1, movers.Failed)
	assert.Equal(t, int32(6), p.calls.Load())

	movers, cached, err = svc.Movers(ctx, symbols, 1)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, []string{"AAA"}, symbolsOf(movers.Gainers))
	assert.Equal(t, []string{"EEE"}, symbolsOf(movers.Losers))
	assert.Equal(t, int32(6), p.calls.Load())
}

func TestService_MoversLimit(t *testing.T) {
	svc := newTestService(t, &quoteProvider{})

	for _, limit := range []int{-1, MaxMoversLimit + 1} {
		_, _, err := svc.Movers(context.Background(), []string{"AAA"}, limit)
		assert.ErrorIs(t, err, models.ErrInvalidLimit)
		assert.True(t, IsClientError(err))
	}
}

func TestService_MoversAllQuotesFail(t *testing.T) {
	svc := newTestService(t, &quoteProvider{})

	_, _, err := svc.Movers(context.Background(), []string{"AAA", "BBB"}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch quotes for 2 symbols")
	assert.False(t, IsClientError(err))
}

func TestService_RefreshMoversOverwritesCache(t *testing.T) {
	p := &quoteProvider{quotes: map[string]models.Quote{"AAA": quote("AAA", "Alpha", 2)}}
	svc := newTestService(t, p)
	ctx := context.Background()

	_, err := svc.RefreshMovers(ctx, []string{"AAA"})
	require.NoError(t, err)

	movers, cached, err := svc.Movers(ctx, []string{"AAA"}, 0)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, []string{"AAA"}, symbolsOf(movers.Gainers))
	assert.Empty(t, movers.Losers)
}

func TestService_Search(t *testing.T) {
	p := &quoteProvider{quotes: map[string]models.Quote{
		"TATAMOTORS": quote("TATAMOTORS", "Tata Motors Limited", 1),
		"TCS":        quote("TCS", "Tata Consultancy Services Limited", 1),
		"INFY":       quote("INFY", "Infosys Limited", 1),
		"TCSX":       quote("TCSX", "Example", 1),
	}}
	svc := newTestService(t, p)
	ctx := context.Background()
	symbols := []string{"TATAMOTORS", "TCSX", "TCS", "INFY"}

	tests := []struct {
		query string
		want  []string
	}{
		{"tata", []string{"TATAMOTORS", "TCS"}},
		{"TCS", []string{"TCS", "TCSX"}},
		{" infosys ", []string{"INFY"}},
		{"limited", []string{"TATAMOTORS", "TCS", "INFY"}},
		{"zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := svc.Search(ctx, symbols, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, symbolsOf(results))
		})
	}

	_, err := svc.Search(ctx, symbols, "  ")
	assert.ErrorIs(t, err, models.ErrInvalidQuery)
}
