// Package config exposes strongly typed application configuration loaded from
// YAML with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid reports a configuration value the engine must refuse to start with.
var ErrInvalid = errors.New("config: invalid value")

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	StatusAddr  string `yaml:"status_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Exchange describes the venue connectivity parameters the bot expects.
type Exchange struct {
	Name       string `yaml:"name"` // binance | binance_ws | sim
	Symbol     string `yaml:"symbol"`
	BaseAsset  string `yaml:"base_asset"`
	QuoteAsset string `yaml:"quote_asset"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Testnet    bool   `yaml:"testnet"`
}

// Strategy specifies which strategy is active along with its windows.
type Strategy struct {
	Mode        string `yaml:"mode"`
	ShortWindow int    `yaml:"short_window"`
	LongWindow  int    `yaml:"long_window"`
}

// Bot groups the execution loop knobs.
type Bot struct {
	PollIntervalSecs float64 `yaml:"poll_interval_secs"`
	TradeQuantity    float64 `yaml:"trade_quantity"`
	MaxHistory       int     `yaml:"max_history"`
	Mode             string  `yaml:"mode"` // test | live
}

// Risk encodes guard-rails applied before dispatch.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Strategy Strategy `yaml:"strategy"`
	Bot      Bot      `yaml:"bot"`
	Risk     Risk     `yaml:"risk"`
}

// Default returns the configuration the bot runs with when nothing else is set.
func Default() *Config {
	return &Config{
		App:      App{Name: "trading-bot", Env: "dev", MetricsAddr: ":9090", StatusAddr: ":8080", LogLevel: "info"},
		Exchange: Exchange{Name: "binance", Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT"},
		Strategy: Strategy{Mode: "crossover", ShortWindow: 5, LongWindow: 20},
		Bot:      Bot{PollIntervalSecs: 5, TradeQuantity: 0.001, MaxHistory: 120, Mode: "test"},
	}
}

// Load reads a YAML file from disk and hydrates a Config on top of defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config. A .env file in the
// working directory is loaded best-effort first. The exchange prefix follows
// ACTIVE_EXCHANGE (e.g. BINANCE_API_KEY), with EXCHANGE_API_KEY and MARKET_*
// as generic fallbacks and BOT_* for loop knobs.
func (c *Config) ApplyEnv() error {
	_ = godotenv.Load()

	if v := strings.TrimSpace(os.Getenv("ACTIVE_EXCHANGE")); v != "" {
		c.Exchange.Name = strings.ToLower(v)
	}
	prefix := strings.ToUpper(strings.TrimSuffix(c.Exchange.Name, "_ws"))
	if prefix == "" || prefix == "SIM" {
		prefix = "BINANCE"
	}

	lookup := func(name string, fallbacks ...string) string {
		if v := os.Getenv(prefix + "_" + name); strings.TrimSpace(v) != "" {
			return v
		}
		if prefix != "BINANCE" {
			if v := os.Getenv("BINANCE_" + name); strings.TrimSpace(v) != "" {
				return v
			}
		}
		for _, key := range fallbacks {
			if v := os.Getenv(key); strings.TrimSpace(v) != "" {
				return v
			}
		}
		return ""
	}

	if v := lookup("API_KEY", "EXCHANGE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := lookup("API_SECRET", "EXCHANGE_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := lookup("SYMBOL", "MARKET_SYMBOL"); v != "" {
		c.Exchange.Symbol = strings.ToUpper(v)
	}
	if v := lookup("QUOTE_ASSET", "MARKET_QUOTE_ASSET"); v != "" {
		c.Exchange.QuoteAsset = v
	}
	if v := lookup("BASE_ASSET", "MARKET_BASE_ASSET"); v != "" {
		c.Exchange.BaseAsset = v
	}
	if v := lookup("TESTNET"); v != "" {
		parsed, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s_TESTNET: %v", ErrInvalid, prefix, err)
		}
		c.Exchange.Testnet = parsed
	}

	var err error
	if c.Bot.TradeQuantity, err = envFloat("BOT_TRADE_QUANTITY", c.Bot.TradeQuantity); err != nil {
		return err
	}
	if c.Bot.PollIntervalSecs, err = envFloat("BOT_POLL_INTERVAL", c.Bot.PollIntervalSecs); err != nil {
		return err
	}
	if c.Strategy.ShortWindow, err = envInt("BOT_SHORT_WINDOW", c.Strategy.ShortWindow); err != nil {
		return err
	}
	if c.Strategy.LongWindow, err = envInt("BOT_LONG_WINDOW", c.Strategy.LongWindow); err != nil {
		return err
	}
	if c.Bot.MaxHistory, err = envInt("BOT_MAX_HISTORY", c.Bot.MaxHistory); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("BOT_TEST_MODE")); v != "" {
		parsed, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%w: BOT_TEST_MODE: %v", ErrInvalid, err)
		}
		if parsed {
			c.Bot.Mode = "test"
		} else {
			c.Bot.Mode = "live"
		}
	}
	return nil
}

// Validate checks every constraint the engine refuses to start without.
func (c *Config) Validate() error {
	if c.Exchange.Symbol == "" {
		return fmt.Errorf("%w: exchange symbol must be set", ErrInvalid)
	}
	if c.Bot.PollIntervalSecs <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %v", ErrInvalid, c.Bot.PollIntervalSecs)
	}
	if c.Bot.TradeQuantity <= 0 {
		return fmt.Errorf("%w: trade quantity must be positive, got %v", ErrInvalid, c.Bot.TradeQuantity)
	}
	if c.Strategy.ShortWindow <= 0 || c.Strategy.LongWindow <= 0 {
		return fmt.Errorf("%w: strategy windows must be positive", ErrInvalid)
	}
	if c.Strategy.ShortWindow >= c.Strategy.LongWindow {
		return fmt.Errorf("%w: short window %d must be below long window %d", ErrInvalid, c.Strategy.ShortWindow, c.Strategy.LongWindow)
	}
	// With less room than the long window the strategy could never leave the
	// insufficient-history state.
	if c.Bot.MaxHistory < c.Strategy.LongWindow {
		return fmt.Errorf("%w: max history %d must be at least the long window %d", ErrInvalid, c.Bot.MaxHistory, c.Strategy.LongWindow)
	}
	switch c.Bot.Mode {
	case "test", "live":
	default:
		return fmt.Errorf("%w: mode must be test or live, got %q", ErrInvalid, c.Bot.Mode)
	}
	return nil
}

func envFloat(key string, current float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return current, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return parsed, nil
}

func envInt(key string, current int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return current, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return parsed, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("cannot parse %q as boolean", v)
	}
}
