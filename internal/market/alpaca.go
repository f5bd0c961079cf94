package market

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// weeklyLookback covers 52 full weeks plus holidays and the current
// partial week.
const weeklyLookback = 60 * 7 * 24 * time.Hour

// Alpaca serves quotes and weekly bars from the Alpaca market data API.
type Alpaca struct {
	client *marketdata.Client
	now    func() time.Time
}

// NewAlpaca builds a market data client with the given credentials.
func NewAlpaca(apiKey, apiSecret, baseURL string, timeout time.Duration) *Alpaca {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		BaseURL:    baseURL,
		RetryLimit: -1, // 0 would mean 10 retries; -1 sends exactly one request
		HTTPClient: &http.Client{Timeout: timeout},
	})
	return &Alpaca{client: client, now: time.Now}
}

func (a *Alpaca) Name() string { return "alpaca" }

// LatestPrice returns the price of the latest trade.
func (a *Alpaca) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, newError(KindNetwork, symbol, err)
	}
	trade, err := a.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return decimal.Zero, classifyAlpacaError(symbol, err)
	}
	if trade == nil || trade.Price <= 0 {
		return decimal.Zero, newError(KindMalformed, symbol, errors.New("no trade price"))
	}
	return decimal.NewFromFloat(trade.Price), nil
}

// WeeklyCloses returns the closes of one-week bars over the lookback window.
func (a *Alpaca) WeeklyCloses(ctx context.Context, symbol string) ([]WeeklyClose, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindNetwork, symbol, err)
	}
	end := a.now()
	bars, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.NewTimeFrame(1, marketdata.Week),
		Start:     end.Add(-weeklyLookback),
		End:       end,
	})
	if err != nil {
		return nil, classifyAlpacaError(symbol, err)
	}
	closes := make([]WeeklyClose, 0, len(bars))
	for _, bar := range bars {
		if bar.Close <= 0 {
			return nil, newError(KindMalformed, symbol, errors.New("non-positive close"))
		}
		closes = append(closes, WeeklyClose{
			Date:  bar.Timestamp,
			Close: decimal.NewFromFloat(bar.Close),
		})
	}
	return closes, nil
}

func classifyAlpacaError(symbol string, err error) error {
	var (
		apiErr *alpaca.APIError
		urlErr *url.Error
		netErr net.Error
	)
	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests:
		return newError(KindRateLimited, symbol, err)
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return newError(KindNetwork, symbol, err)
	default:
		return newError(KindProvider, symbol, err)
	}
}
