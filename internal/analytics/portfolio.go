package analytics

import (
	"context"

	"github.com/mohamedkhairy/nse-analytics/internal/models"
	"github.com/mohamedkhairy/nse-analytics/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// maxQuoteFetches bounds concurrent provider calls for one portfolio
const maxQuoteFetches = 4

var hundred = decimal.NewFromInt(100)

// Portfolio values holdings at their current quotes. A holding whose quote
// cannot be fetched is valued at its average price and marked stale.
func (s *Service) Portfolio(ctx context.Context, holdings []models.Holding) (*models.PortfolioAnalysis, error) {
	if len(holdings) == 0 {
		return nil, models.ErrNoHoldings
	}
	for i := range holdings {
		if err := holdings[i].Validate(); err != nil {
			return nil, err
		}
	}

	prices := make([]float64, len(holdings))
	stale := make([]bool, len(holdings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxQuoteFetches)
	for i := range holdings {
		i := i
		g.Go(func() error {
			quote, _, err := s.Quote(gctx, holdings[i].Symbol)
			if err != nil {
				logger.Warn("Using average price for holding",
					logger.String("symbol", holdings[i].Symbol),
					logger.ErrorField(err),
				)
				prices[i] = holdings[i].AvgPrice
				stale[i] = true
				return nil
			}
			prices[i] = quote.Price
			return nil
		})
	}
	// Quote errors fall back to avg price, so only ctx cancellation is fatal
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return valuePortfolio(holdings, prices, stale), nil
}

func valuePortfolio(holdings []models.Holding, prices []float64, stale []bool) *models.PortfolioAnalysis {
	result := &models.PortfolioAnalysis{
		Holdings:        make([]models.HoldingAnalysis, 0, len(holdings)),
		Diversification: make(map[string]string, len(holdings)),
	}

	totalValue := decimal.Zero
	totalInvestment := decimal.Zero
	values := make([]decimal.Decimal, len(holdings))

	for i, h := range holdings {
		quantity := decimal.NewFromFloat(h.Quantity)
		avgPrice := decimal.NewFromFloat(h.AvgPrice)
		current := decimal.NewFromFloat(prices[i])

		investment := quantity.Mul(avgPrice)
		value := quantity.Mul(current)
		gainLoss := value.Sub(investment)

		result.Holdings = append(result.Holdings, models.HoldingAnalysis{
			Symbol:          models.NormalizeSymbol(h.Symbol),
			Quantity:        h.Quantity,
			AvgPrice:        h.AvgPrice,
			CurrentPrice:    prices[i],
			PriceStale:      stale[i],
			Investment:      investment.Round(2).InexactFloat64(),
			CurrentValue:    value.Round(2).InexactFloat64(),
			GainLoss:        gainLoss.Round(2).InexactFloat64(),
			GainLossPercent: percent(gainLoss, investment),
		})

		values[i] = value
		totalValue = totalValue.Add(value)
		totalInvestment = totalInvestment.Add(investment)
	}

	totalGainLoss := totalValue.Sub(totalInvestment)
	result.TotalValue = totalValue.Round(2).InexactFloat64()
	result.TotalInvestment = totalInvestment.Round(2).InexactFloat64()
	result.TotalGainLoss = totalGainLoss.Round(2).InexactFloat64()
	result.TotalGainLossPercent = percent(totalGainLoss, totalInvestment)

	// Weight of each symbol in current value; repeated symbols accumulate
	weights := make(map[string]decimal.Decimal, len(holdings))
	for i, h := range result.Holdings {
		weights[h.Symbol] = weights[h.Symbol].Add(values[i])
	}
	for symbol, value := range weights {
		result.Diversification[symbol] = percent(value, totalValue)
	}

	return result
}

// percent formats part/whole*100 with two decimals; a zero whole yields "0.00"
func percent(part, whole decimal.Decimal) string {
	if whole.IsZero() {
		return "0.00"
	}
	return part.Div(whole).Mul(hundred).StringFixed(2)
}
