// Package market fetches current prices and weekly closing history from a
// market-data provider.
package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AverageWeeks is how many of the most recent weekly closes the moving
// average covers.
const AverageWeeks = 52

// Provider is a source of quotes and weekly history. Each call makes at most
// one outbound request and never retries.
type Provider interface {
	Name() string
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	WeeklyCloses(ctx context.Context, symbol string) ([]WeeklyClose, error)
}

// WeeklyClose is one week's closing price.
type WeeklyClose struct {
	Date  time.Time
	Close decimal.Decimal
}

// Kind classifies why a provider call failed. It is for logging only.
type Kind int

const (
	KindProvider Kind = iota + 1
	KindRateLimited
	KindMalformed
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindProvider:
		return "provider_error"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformed:
		return "malformed_response"
	case KindNetwork:
		return "network_error"
	default:
		return "unknown"
	}
}

// Error is returned by every Provider method on failure.
type Error struct {
	Kind   Kind
	Symbol string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Symbol, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, symbol string, err error) *Error {
	return &Error{Kind: kind, Symbol: symbol, Err: err}
}

// KindOf extracts the failure kind from err, or 0 if err did not come from a
// provider.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ParsePrice parses a provider price string into a positive decimal.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price %s", s)
	}
	return d, nil
}
