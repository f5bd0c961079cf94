package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/luckfunc/stockwatchBot/internal/market"
	"github.com/luckfunc/stockwatchBot/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeQuote struct {
	price      string
	priceErr   error
	closes     []string
	historyErr error
}

type fakeProvider struct {
	quotes map[string]fakeQuote
	calls  map[string]int
}

func newFakeProvider(quotes map[string]fakeQuote) *fakeProvider {
	return &fakeProvider{quotes: quotes, calls: make(map[string]int)}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) LatestPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.calls["quote:"+symbol]++
	q, ok := f.quotes[symbol]
	if !ok {
		return decimal.Zero, &market.Error{Kind: market.KindProvider, Symbol: symbol, Err: errors.New("Invalid API call")}
	}
	if q.priceErr != nil {
		return decimal.Zero, q.priceErr
	}
	return decimal.RequireFromString(q.price), nil
}

// WeeklyCloses returns closes oldest first so the analyzer has to sort.
func (f *fakeProvider) WeeklyCloses(_ context.Context, symbol string) ([]market.WeeklyClose, error) {
	f.calls["history:"+symbol]++
	q := f.quotes[symbol]
	if q.historyErr != nil {
		return nil, q.historyErr
	}
	start := time.Date(2023, time.January, 6, 0, 0, 0, 0, time.UTC)
	out := make([]market.WeeklyClose, 0, len(q.closes))
	for i, c := range q.closes {
		out = append(out, market.WeeklyClose{
			Date:  start.AddDate(0, 0, 7*i),
			Close: decimal.RequireFromString(c),
		})
	}
	return out, nil
}

func repeat(value string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func newAnalyzer(quotes map[string]fakeQuote) (*QuoteAnalyzer, *fakeProvider) {
	p := newFakeProvider(quotes)
	return NewQuoteAnalyzer(p, zap.NewNop()), p
}

func TestGetStockPriceAboveAverage(t *testing.T) {
	a, _ := newAnalyzer(map[string]fakeQuote{
		"AAPL": {price: "110", closes: repeat("100", 52)},
	})

	q, ok := a.GetStockPrice(context.Background(), "AAPL")
	if !ok {
		t.Fatal("expected a result")
	}
	if !q.HasAverage() {
		t.Fatal("expected moving average")
	}
	if got := q.MovingAverage52w().StringFixed(2); got != "100.00" {
		t.Errorf("expected average 100.00, got %s", got)
	}
	if !*q.IsAboveAverage() {
		t.Error("expected price above average")
	}
	if got := q.PercentDifference().StringFixed(2); got != "10.00" {
		t.Errorf("expected 10.00%%, got %s", got)
	}
	if got := q.Price.StringFixed(2); got != "110.00" {
		t.Errorf("expected price 110.00, got %s", got)
	}
}

func TestGetStockPriceUsesMostRecent52Weeks(t *testing.T) {
	// 10 old weeks at 1000 followed by 52 recent weeks at 50.
	closes := append(repeat("1000", 10), repeat("50", 52)...)
	a, _ := newAnalyzer(map[string]fakeQuote{
		"MSFT": {price: "40", closes: closes},
	})

	q, ok := a.GetStockPrice(context.Background(), "MSFT")
	if !ok || !q.HasAverage() {
		t.Fatalf("expected result with average, got ok=%v", ok)
	}
	if got := q.Average.Value.StringFixed(2); got != "50.00" {
		t.Errorf("expected average 50.00, got %s", got)
	}
	if q.Average.Above {
		t.Error("expected price below average")
	}
	if got := q.Average.PercentDiff.StringFixed(2); got != "-20.00" {
		t.Errorf("expected -20.00, got %s", got)
	}
}

func TestGetStockPriceRounding(t *testing.T) {
	// mean of 51 x 10 and 1 x 11 = 10.0192307...
	closes := append(repeat("10", 51), "11")
	a, _ := newAnalyzer(map[string]fakeQuote{
		"XYZ": {price: "10.005", closes: closes},
	})

	q, ok := a.GetStockPrice(context.Background(), "XYZ")
	if !ok || !q.HasAverage() {
		t.Fatal("expected result with average")
	}
	mean := decimal.NewFromInt(521).Div(decimal.NewFromInt(52))
	price := decimal.RequireFromString("10.005")
	wantPct := price.Sub(mean).Div(mean).Mul(decimal.NewFromInt(100)).Round(2)

	if got := q.Average.Value.StringFixed(2); got != "10.02" {
		t.Errorf("expected average 10.02, got %s", got)
	}
	if q.Average.Above != price.GreaterThan(mean) {
		t.Errorf("above flag %v disagrees with price > mean", q.Average.Above)
	}
	if !q.Average.PercentDiff.Equal(wantPct) {
		t.Errorf("expected percent %s, got %s", wantPct, q.Average.PercentDiff)
	}
	if got := q.Price.StringFixed(2); got != "10.01" {
		t.Errorf("expected price 10.01, got %s", got)
	}
}

func TestGetStockPriceInsufficientHistory(t *testing.T) {
	a, _ := newAnalyzer(map[string]fakeQuote{
		"NEWCO": {price: "25.50", closes: repeat("20", 51)},
	})

	q, ok := a.GetStockPrice(context.Background(), "NEWCO")
	if !ok {
		t.Fatal("expected a partial result")
	}
	if q.HasAverage() {
		t.Error("expected no moving average")
	}
	if q.MovingAverage52w() != nil || q.IsAboveAverage() != nil || q.PercentDifference() != nil {
		t.Error("moving average fields must all be absent together")
	}
	if got := q.Price.StringFixed(2); got != "25.50" {
		t.Errorf("expected price 25.50, got %s", got)
	}
}

func TestGetStockPriceHistoryFailures(t *testing.T) {
	tests := []struct {
		name   string
		kind   market.Kind
		wantOK bool
	}{
		{"malformed history keeps price", market.KindMalformed, true},
		{"rate limited history keeps price", market.KindRateLimited, true},
		{"provider error keeps price", market.KindProvider, true},
		{"network error drops result", market.KindNetwork, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newAnalyzer(map[string]fakeQuote{
				"IBM": {price: "150", historyErr: &market.Error{Kind: tt.kind, Symbol: "IBM", Err: errors.New("boom")}},
			})
			q, ok := a.GetStockPrice(context.Background(), "IBM")
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && q.HasAverage() {
				t.Error("expected price-only result")
			}
		})
	}
}

func TestGetStockPriceQuoteFailures(t *testing.T) {
	kinds := []market.Kind{market.KindProvider, market.KindRateLimited, market.KindMalformed, market.KindNetwork}
	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			a, p := newAnalyzer(map[string]fakeQuote{
				"TSLA": {priceErr: &market.Error{Kind: kind, Symbol: "TSLA", Err: errors.New("nope")}},
			})
			q, ok := a.GetStockPrice(context.Background(), "TSLA")
			if ok || q != nil {
				t.Fatalf("expected no result, got %+v", q)
			}
			if p.calls["history:TSLA"] != 0 {
				t.Error("history should not be requested after a failed quote")
			}
		})
	}
}

func TestGetStockPriceSingleRequestPerSource(t *testing.T) {
	a, p := newAnalyzer(map[string]fakeQuote{
		"AAPL": {price: "110", closes: repeat("100", 60)},
	})
	a.GetStockPrice(context.Background(), "AAPL")
	if p.calls["quote:AAPL"] != 1 || p.calls["history:AAPL"] != 1 {
		t.Errorf("expected one call per source, got %v", p.calls)
	}
}

func TestCheckWatchlistPartitions(t *testing.T) {
	a, _ := newAnalyzer(map[string]fakeQuote{
		"AAPL":  {price: "110", closes: repeat("100", 52)},
		"TSLA":  {price: "90", closes: repeat("100", 52)},
		"NVDA":  {price: "120", closes: repeat("100", 52)},
		"NEWCO": {price: "5", closes: repeat("5", 3)},
		"EQUAL": {price: "100", closes: repeat("100", 52)},
	})

	report := a.CheckWatchlist(context.Background(), []string{"NVDA", "TSLA", "BOGUS", "AAPL", "NEWCO", "EQUAL"})

	if got := symbols(report.Above); !equal(got, []string{"NVDA", "AAPL"}) {
		t.Errorf("above: got %v", got)
	}
	if got := symbols(report.Below); !equal(got, []string{"TSLA", "EQUAL"}) {
		t.Errorf("below: got %v", got)
	}
	want := []models.UnavailableSymbol{
		{Symbol: "BOGUS", Reason: models.ReasonNoData},
		{Symbol: "NEWCO", Reason: models.ReasonInsufficientHistory},
	}
	if len(report.Unavailable) != len(want) {
		t.Fatalf("unavailable: got %v", report.Unavailable)
	}
	for i := range want {
		if report.Unavailable[i] != want[i] {
			t.Errorf("unavailable[%d]: got %v, want %v", i, report.Unavailable[i], want[i])
		}
	}
	if report.Total() != 6 {
		t.Errorf("expected total 6, got %d", report.Total())
	}
}

func symbols(quotes []*models.QuoteResult) []string {
	out := make([]string, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, q.Symbol)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
