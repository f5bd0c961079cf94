package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderAlphaVantage = "alphavantage"
	ProviderAlpaca       = "alpaca"
)

var (
	ErrUnknownProvider = errors.New("unknown market data provider")
	ErrMissingAPIKey   = errors.New("missing market data credentials")
)

// Config holds everything the bot, API and CLI need at startup.
type Config struct {
	Provider      string        `yaml:"provider"`
	WatchlistFile string        `yaml:"watchlist_file"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	APIAddr       string        `yaml:"api_addr"`
	RenderImages  bool          `yaml:"render_images"`

	AlphaVantage struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"alphavantage"`

	Alpaca struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"alpaca"`

	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`
}

// Default returns the built-in settings used when nothing else is configured.
func Default() *Config {
	c := &Config{
		Provider:      ProviderAlphaVantage,
		WatchlistFile: "user_watchlists.json",
		HTTPTimeout:   10 * time.Second,
		APIAddr:       ":8080",
	}
	c.AlphaVantage.BaseURL = "https://www.alphavantage.co/query"
	c.Logging.Level = "info"
	return c
}

// Load reads the optional YAML file at path, then .env, then the process
// environment. Later sources win.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Provider, "STOCKWATCH_PROVIDER")
	setString(&c.WatchlistFile, "STOCKWATCH_WATCHLIST_FILE")
	setString(&c.APIAddr, "STOCKWATCH_API_ADDR")
	setString(&c.Logging.Level, "STOCKWATCH_LOG_LEVEL")
	setString(&c.AlphaVantage.APIKey, "ALPHA_VANTAGE_API_KEY")
	setString(&c.AlphaVantage.BaseURL, "ALPHA_VANTAGE_BASE_URL")
	setString(&c.Alpaca.APIKey, "ALPACA_API_KEY")
	setString(&c.Alpaca.APISecret, "ALPACA_SECRET_KEY")
	setString(&c.Alpaca.BaseURL, "ALPACA_BASE_URL")

	if v := os.Getenv("STOCKWATCH_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("STOCKWATCH_HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = d
	}
	if v := os.Getenv("STOCKWATCH_RENDER_IMAGES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STOCKWATCH_RENDER_IMAGES: %w", err)
		}
		c.RenderImages = b
	}
	if v := os.Getenv("STOCKWATCH_LOG_DEVELOPMENT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STOCKWATCH_LOG_DEVELOPMENT: %w", err)
		}
		c.Logging.Development = b
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	return nil
}

// Validate checks that the selected provider is known and has credentials.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAlphaVantage:
		if c.AlphaVantage.APIKey == "" {
			return fmt.Errorf("%w: ALPHA_VANTAGE_API_KEY", ErrMissingAPIKey)
		}
	case ProviderAlpaca:
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return fmt.Errorf("%w: ALPACA_API_KEY and ALPACA_SECRET_KEY", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.WatchlistFile == "" {
		return errors.New("watchlist file path is empty")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
