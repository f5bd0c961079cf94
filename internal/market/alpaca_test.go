package market_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luckfunc/stockwatchBot/internal/market"
	"github.com/luckfunc/stockwatchBot/internal/services"
	"go.uber.org/zap"
)

const (
	latestTradePath = "/v2/stocks/trades/latest"
	barsPath        = "/v2/stocks/bars"
)

// newAlpacaServer serves fixed bodies per path and counts the requests it
// receives.
func newAlpacaServer(t *testing.T, status int, bodies map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			t.Errorf("missing credentials on %s", r.URL.Path)
		}
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.Error(w, `{"code":40410000,"message":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func tradeBody(symbol string, price float64) string {
	return fmt.Sprintf(`{"trades": {"%s": {"t": "2024-12-27T20:59:59Z", "p": %g, "s": 100, "x": "V", "i": 1, "c": ["@"], "z": "C"}}}`, symbol, price)
}

// barsBody builds n weekly bars ending 2024-12-23, newest first. The newest
// 52 close at recent, anything older at old.
func barsBody(symbol string, n int, recent, old float64) string {
	newest := time.Date(2024, 12, 23, 5, 0, 0, 0, time.UTC)
	bars := make([]string, 0, n)
	for i := 0; i < n; i++ {
		c := recent
		if i >= market.AverageWeeks {
			c = old
		}
		ts := newest.AddDate(0, 0, -7*i).Format(time.RFC3339)
		bars = append(bars, fmt.Sprintf(`{"t": "%s", "o": %g, "h": %g, "l": %g, "c": %g, "v": 1000, "n": 10, "vw": %g}`, ts, c, c, c, c, c))
	}
	return fmt.Sprintf(`{"bars": {"%s": [%s]}, "next_page_token": null}`, symbol, strings.Join(bars, ","))
}

func TestAlpacaLatestPrice(t *testing.T) {
	srv, requests := newAlpacaServer(t, http.StatusOK, map[string]string{
		latestTradePath: tradeBody("AAPL", 110.25),
	})
	p := market.NewAlpaca("key", "secret", srv.URL, time.Second)

	price, err := p.LatestPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.StringFixed(2) != "110.25" {
		t.Errorf("expected 110.25, got %s", price)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}

func TestAlpacaSingleRequestOnServerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   market.Kind
	}{
		{"rate limited", http.StatusTooManyRequests, market.KindRateLimited},
		{"internal error", http.StatusInternalServerError, market.KindProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fmt.Sprintf(`{"code": %d0000, "message": "%s"}`, tt.status, tt.name)
			srv, requests := newAlpacaServer(t, tt.status, map[string]string{
				latestTradePath: body,
				barsPath:        body,
			})
			p := market.NewAlpaca("key", "secret", srv.URL, time.Second)

			start := time.Now()
			_, err := p.LatestPrice(context.Background(), "AAPL")
			if got := market.KindOf(err); got != tt.want {
				t.Errorf("quote: expected %s, got %s (%v)", tt.want, got, err)
			}
			_, err = p.WeeklyCloses(context.Background(), "AAPL")
			if got := market.KindOf(err); got != tt.want {
				t.Errorf("history: expected %s, got %s (%v)", tt.want, got, err)
			}
			if got := requests.Load(); got != 2 {
				t.Errorf("expected one request per call, got %d total", got)
			}
			if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
				t.Errorf("expected no retry delay, took %s", elapsed)
			}
		})
	}
}

func TestAlpacaFailureKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   market.Kind
	}{
		{"forbidden", http.StatusForbidden, `{"code": 40310000, "message": "forbidden"}`, market.KindProvider},
		{"unprocessable", http.StatusUnprocessableEntity, `{"code": 42210000, "message": "invalid symbol"}`, market.KindProvider},
		{"not json error", http.StatusBadRequest, `bad request`, market.KindProvider},
		{"no trade", http.StatusOK, `{"trades": {}}`, market.KindMalformed},
		{"zero price", http.StatusOK, tradeBody("AAPL", 0), market.KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newAlpacaServer(t, tt.status, map[string]string{latestTradePath: tt.body})
			p := market.NewAlpaca("key", "secret", srv.URL, time.Second)

			_, err := p.LatestPrice(context.Background(), "AAPL")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := market.KindOf(err); got != tt.want {
				t.Errorf("expected kind %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestAlpacaNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()
	p := market.NewAlpaca("key", "secret", addr, time.Second)

	if _, err := p.LatestPrice(context.Background(), "AAPL"); market.KindOf(err) != market.KindNetwork {
		t.Errorf("quote: expected network error, got %v", err)
	}
	if _, err := p.WeeklyCloses(context.Background(), "AAPL"); market.KindOf(err) != market.KindNetwork {
		t.Errorf("history: expected network error, got %v", err)
	}
}

func TestAlpacaCanceledContext(t *testing.T) {
	srv, requests := newAlpacaServer(t, http.StatusOK, map[string]string{latestTradePath: tradeBody("AAPL", 1)})
	p := market.NewAlpaca("key", "secret", srv.URL, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.LatestPrice(ctx, "AAPL"); market.KindOf(err) != market.KindNetwork {
		t.Errorf("expected network error, got %v", err)
	}
	if got := requests.Load(); got != 0 {
		t.Errorf("expected no request, got %d", got)
	}
}

func TestAlpacaWeeklyCloses(t *testing.T) {
	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != barsPath {
			http.NotFound(w, r)
			return
		}
		query.Store(r.URL.Query())
		_, _ = w.Write([]byte(barsBody("AAPL", 3, 101.5, 0)))
	}))
	defer srv.Close()
	p := market.NewAlpaca("key", "secret", srv.URL, time.Second)

	closes, err := p.WeeklyCloses(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closes) != 3 {
		t.Fatalf("expected 3 closes, got %d", len(closes))
	}
	if closes[0].Close.StringFixed(2) != "101.50" || closes[0].Date.Format("2006-01-02") != "2024-12-23" {
		t.Errorf("unexpected first close %+v", closes[0])
	}

	q := query.Load().(url.Values)
	if got := q.Get("timeframe"); got != "1Week" {
		t.Errorf("expected 1Week timeframe, got %q", got)
	}
	if got := q.Get("symbols"); got != "AAPL" {
		t.Errorf("expected AAPL, got %q", got)
	}
	start, err1 := time.Parse(time.RFC3339Nano, q.Get("start"))
	end, err2 := time.Parse(time.RFC3339Nano, q.Get("end"))
	if err1 != nil || err2 != nil {
		t.Fatalf("bad window: %v %v", err1, err2)
	}
	if weeks := end.Sub(start).Hours() / (7 * 24); weeks < market.AverageWeeks {
		t.Errorf("lookback of %.1f weeks is shorter than the average window", weeks)
	}
}

func TestAlpacaWeeklyNonPositiveClose(t *testing.T) {
	srv, _ := newAlpacaServer(t, http.StatusOK, map[string]string{barsPath: barsBody("AAPL", 60, 100, 0)})
	p := market.NewAlpaca("key", "secret", srv.URL, time.Second)

	_, err := p.WeeklyCloses(context.Background(), "AAPL")
	if got := market.KindOf(err); got != market.KindMalformed {
		t.Errorf("expected malformed, got %s (%v)", got, err)
	}
}

func TestAlpacaFeedsMovingAverage(t *testing.T) {
	srv, requests := newAlpacaServer(t, http.StatusOK, map[string]string{
		latestTradePath: tradeBody("AAPL", 110),
		barsPath:        barsBody("AAPL", 60, 100, 1000),
	})
	analyzer := services.NewQuoteAnalyzer(market.NewAlpaca("key", "secret", srv.URL, time.Second), zap.NewNop())

	q, ok := analyzer.GetStockPrice(context.Background(), "AAPL")
	if !ok {
		t.Fatal("expected a result")
	}
	if !q.HasAverage() {
		t.Fatal("expected a moving average")
	}
	if q.Average.Value.StringFixed(2) != "100.00" || !q.Average.Above || q.Average.PercentDiff.StringFixed(2) != "10.00" {
		t.Errorf("unexpected average %+v", q.Average)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("expected one request per source, got %d", got)
	}
}
