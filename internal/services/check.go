package services

import (
	"context"

	"github.com/luckfunc/stockwatchBot/internal/models"
)

// CheckWatchlist analyzes each symbol in order and groups the results by
// their position relative to the 52-week average. Symbols without a result
// or without an average end up in Unavailable.
func (a *QuoteAnalyzer) CheckWatchlist(ctx context.Context, symbols []string) *models.CheckReport {
	report := &models.CheckReport{
		Above:       []*models.QuoteResult{},
		Below:       []*models.QuoteResult{},
		Unavailable: []models.UnavailableSymbol{},
	}
	for _, symbol := range symbols {
		result, ok := a.GetStockPrice(ctx, symbol)
		switch {
		case !ok:
			report.Unavailable = append(report.Unavailable, models.UnavailableSymbol{
				Symbol: symbol,
				Reason: models.ReasonNoData,
			})
		case !result.HasAverage():
			report.Unavailable = append(report.Unavailable, models.UnavailableSymbol{
				Symbol: symbol,
				Reason: models.ReasonInsufficientHistory,
			})
		case result.Average.Above:
			report.Above = append(report.Above, result)
		default:
			report.Below = append(report.Below, result)
		}
	}
	return report
}
