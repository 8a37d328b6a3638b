// Package exchange hosts connectors for trading venues consumed by the engine.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pierrick-fonquerne/trading-bot/internal/execution"
)

const (
	// ProviderSim fills orders against a virtual balance with a deterministic price walk.
	ProviderSim = "sim"
	// ProviderBinance polls the Binance REST API for prices and orders.
	ProviderBinance = "binance"
	// ProviderBinanceStream serves prices from the Binance trade websocket.
	ProviderBinanceStream = "binance_ws"
)

var (
	// ErrAdapter wraps any venue-side failure: transport, auth, or an
	// unexpected response shape.
	ErrAdapter = errors.New("exchange: request failed")
	// ErrCredentials reports missing API credentials for a signed call.
	ErrCredentials = errors.New("exchange: api credentials required")
	// ErrNoMarketData reports that a streaming adapter has no usable price yet.
	ErrNoMarketData = errors.New("exchange: no recent market data")
)

// Adapter is the capability set the engine needs from a venue. Any
// implementation is interchangeable without engine changes.
type Adapter interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetBalance(ctx context.Context, asset string) (float64, error)
	PlaceOrder(ctx context.Context, order execution.Order) (execution.Confirmation, error)
}

// Settings describes venue connectivity parameters.
type Settings struct {
	APIKey    string
	APISecret string
	BaseURL   string
	StreamURL string
	Testnet   bool
	Symbols   []string
}

// New returns the adapter matching the configured provider.
func New(provider string, settings Settings, log zerolog.Logger) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderBinance:
		return NewBinance(settings, log), nil
	case ProviderBinanceStream:
		return NewBinanceStream(NewBinance(settings, log), settings.Symbols, log), nil
	case ProviderSim:
		return NewSimulator(100, 0.25, 10_000), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrAdapter, provider)
	}
}
