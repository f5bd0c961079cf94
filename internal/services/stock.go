package services

import (
	"context"
	"sort"

	"github.com/luckfunc/stockwatchBot/internal/market"
	"github.com/luckfunc/stockwatchBot/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const averageWeeks = market.AverageWeeks

var hundred = decimal.NewFromInt(100)

// QuoteAnalyzer looks up a symbol and compares its price with the 52-week
// moving average.
type QuoteAnalyzer struct {
	provider market.Provider
	logger   *zap.Logger
}

func NewQuoteAnalyzer(provider market.Provider, logger *zap.Logger) *QuoteAnalyzer {
	return &QuoteAnalyzer{
		provider: provider,
		logger:   logger.Named("quote").With(zap.String("provider", provider.Name())),
	}
}

// GetStockPrice returns the quote for symbol, or false when the symbol is
// invalid or data is temporarily unavailable. The failure reason is only
// logged.
func (a *QuoteAnalyzer) GetStockPrice(ctx context.Context, symbol string) (*models.QuoteResult, bool) {
	log := a.logger.With(zap.String("symbol", symbol))

	price, err := a.provider.LatestPrice(ctx, symbol)
	if err != nil {
		logFailure(log, "quote lookup failed", err)
		return nil, false
	}

	result := &models.QuoteResult{
		Symbol:      symbol,
		CompanyName: symbol, // 行情接口不返回公司名称
		Price:       price.Round(2),
	}

	closes, err := a.provider.WeeklyCloses(ctx, symbol)
	if err != nil {
		if market.KindOf(err) == market.KindNetwork {
			logFailure(log, "history lookup failed", err)
			return nil, false
		}
		logFailure(log, "no historical data available", err)
		return result, true
	}

	if len(closes) < averageWeeks {
		log.Warn("not enough historical data", zap.Int("weeks", len(closes)))
		return result, true
	}
	result.Average = movingAverage(price, closes)
	return result, true
}

// movingAverage compares price against the mean of the most recent 52
// closes. closes must hold at least 52 entries.
func movingAverage(price decimal.Decimal, closes []market.WeeklyClose) *models.MovingAverage {
	sorted := make([]market.WeeklyClose, len(closes))
	copy(sorted, closes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	sum := decimal.Zero
	for _, c := range sorted[:averageWeeks] {
		sum = sum.Add(c.Close)
	}
	mean := sum.Div(decimal.NewFromInt(averageWeeks))

	return &models.MovingAverage{
		Value:       mean.Round(2),
		Above:       price.GreaterThan(mean),
		PercentDiff: price.Sub(mean).Div(mean).Mul(hundred).Round(2),
	}
}

func logFailure(log *zap.Logger, msg string, err error) {
	kind := market.KindOf(err)
	fields := []zap.Field{zap.Stringer("reason", kind), zap.Error(err)}
	if kind == market.KindRateLimited {
		log.Warn(msg, fields...)
		return
	}
	log.Error(msg, fields...)
}
