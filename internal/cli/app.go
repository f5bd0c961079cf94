// Package cli provides the stockwatch command line.
package cli

import (
	"fmt"

	"github.com/luckfunc/stockwatchBot/internal/config"
	"github.com/luckfunc/stockwatchBot/internal/logger"
	"github.com/luckfunc/stockwatchBot/internal/market"
	"github.com/luckfunc/stockwatchBot/internal/services"
	"github.com/luckfunc/stockwatchBot/internal/watchlist"
	"go.uber.org/zap"
)

// App holds the components shared by every command. It is built once per
// process and passed to the handlers.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    *watchlist.Store
	Analyzer *services.QuoteAnalyzer
}

// NewApp loads configuration and wires the store and analyzer.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Logger:   log,
		Store:    watchlist.Open(cfg.WatchlistFile, log),
		Analyzer: services.NewQuoteAnalyzer(provider, log),
	}, nil
}

// NewProvider builds the market data provider named in cfg.
func NewProvider(cfg *config.Config) (market.Provider, error) {
	switch cfg.Provider {
	case config.ProviderAlphaVantage:
		return market.NewAlphaVantage(cfg.AlphaVantage.APIKey, cfg.AlphaVantage.BaseURL, cfg.HTTPTimeout), nil
	case config.ProviderAlpaca:
		return market.NewAlpaca(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, cfg.HTTPTimeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}
}

// Close flushes the logger.
func (a *App) Close() {
	_ = a.Logger.Sync()
}
