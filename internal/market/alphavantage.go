package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	alphaVantageURL = "https://www.alphavantage.co/query"

	avFunctionQuote  = "GLOBAL_QUOTE"
	avFunctionWeekly = "TIME_SERIES_WEEKLY"

	avDateLayout = "2006-01-02"
)

// AlphaVantageResponse covers both endpoints; only the fields needed here
// are decoded.
type AlphaVantageResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	GlobalQuote  map[string]string            `json:"Global Quote"`
	WeeklySeries map[string]map[string]string `json:"Weekly Time Series"`
}

// AlphaVantage talks to the Alpha Vantage query API.
type AlphaVantage struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAlphaVantage builds a client. An empty baseURL uses the public endpoint.
func NewAlphaVantage(apiKey, baseURL string, timeout time.Duration) *AlphaVantage {
	if baseURL == "" {
		baseURL = alphaVantageURL
	}
	return &AlphaVantage{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *AlphaVantage) Name() string { return "alphavantage" }

// LatestPrice reads "05. price" from the GLOBAL_QUOTE endpoint.
func (a *AlphaVantage) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	resp, err := a.query(ctx, avFunctionQuote, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if resp.GlobalQuote == nil {
		return decimal.Zero, newError(KindMalformed, symbol, errors.New(`missing "Global Quote"`))
	}
	raw, ok := resp.GlobalQuote["05. price"]
	if !ok {
		return decimal.Zero, newError(KindMalformed, symbol, errors.New(`missing "05. price"`))
	}
	price, err := ParsePrice(raw)
	if err != nil {
		return decimal.Zero, newError(KindMalformed, symbol, err)
	}
	return price, nil
}

// WeeklyCloses reads "4. close" for every week in TIME_SERIES_WEEKLY, newest
// first. A bad entry within the most recent AverageWeeks weeks fails the
// call; older bad entries are skipped.
func (a *AlphaVantage) WeeklyCloses(ctx context.Context, symbol string) ([]WeeklyClose, error) {
	resp, err := a.query(ctx, avFunctionWeekly, symbol)
	if err != nil {
		return nil, err
	}
	if resp.WeeklySeries == nil {
		return nil, newError(KindMalformed, symbol, errors.New(`missing "Weekly Time Series"`))
	}

	dates := make([]string, 0, len(resp.WeeklySeries))
	for date := range resp.WeeklySeries {
		dates = append(dates, date)
	}
	// YYYY-MM-DD，字符串倒序即日期倒序
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	closes := make([]WeeklyClose, 0, len(dates))
	for i, date := range dates {
		week, err := parseWeek(date, resp.WeeklySeries[date])
		if err != nil {
			if i < AverageWeeks {
				return nil, newError(KindMalformed, symbol, err)
			}
			continue
		}
		closes = append(closes, week)
	}
	return closes, nil
}

func parseWeek(date string, bar map[string]string) (WeeklyClose, error) {
	day, err := time.Parse(avDateLayout, date)
	if err != nil {
		return WeeklyClose{}, fmt.Errorf("bad date %q: %w", date, err)
	}
	raw, ok := bar["4. close"]
	if !ok {
		return WeeklyClose{}, fmt.Errorf(`week %s missing "4. close"`, date)
	}
	c, err := ParsePrice(raw)
	if err != nil {
		return WeeklyClose{}, fmt.Errorf("week %s: %w", date, err)
	}
	return WeeklyClose{Date: day, Close: c}, nil
}

func (a *AlphaVantage) query(ctx context.Context, function, symbol string) (*AlphaVantageResponse, error) {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", symbol)
	params.Set("apikey", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, newError(KindNetwork, symbol, err)
	}
	res, err := a.client.Do(req)
	if err != nil {
		return nil, newError(KindNetwork, symbol, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, newError(KindNetwork, symbol, err)
	}
	if res.StatusCode == http.StatusTooManyRequests {
		return nil, newError(KindRateLimited, symbol, fmt.Errorf("HTTP %d", res.StatusCode))
	}
	if res.StatusCode != http.StatusOK {
		return nil, newError(KindProvider, symbol, fmt.Errorf("HTTP request failed with status: %d", res.StatusCode))
	}

	var out AlphaVantageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, newError(KindMalformed, symbol, err)
	}
	switch {
	case out.ErrorMessage != "":
		return nil, newError(KindProvider, symbol, errors.New(out.ErrorMessage))
	case out.Note != "":
		return nil, newError(KindRateLimited, symbol, errors.New(out.Note))
	case out.Information != "":
		return nil, newError(KindRateLimited, symbol, errors.New(out.Information))
	}
	return &out, nil
}
