package marketdata

import (
	"math"
	"math/rand"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/models"
)

// GenerateHistory synthesises days+1 daily bars ending at end, each close
// within ±5% of base. Bars are oldest first and always satisfy
// low <= min(open, close) and high >= max(open, close).
func GenerateHistory(rng *rand.Rand, base float64, days int, end time.Time) []models.Bar {
	if days < 0 || base <= 0 {
		return nil
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	bars := make([]models.Bar, 0, days+1)
	for i := days; i >= 0; i-- {
		price := base * (1 + (rng.Float64()-0.5)*0.1)
		open := price * (1 + (rng.Float64()-0.5)*0.02)
		high := price * (1 + rng.Float64()*0.03)
		low := price * (1 - rng.Float64()*0.03)

		bars = append(bars, models.Bar{
			Date:   end.AddDate(0, 0, -i),
			Open:   round2(open),
			High:   round2(math.Max(high, math.Max(open, price))),
			Low:    round2(math.Min(low, math.Min(open, price))),
			Close:  round2(price),
			Volume: int64(rng.Intn(1_000_000)) + 100_000,
		})
	}
	return bars
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
