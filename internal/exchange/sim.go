package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pierrick-fonquerne/trading-bot/internal/execution"
)

const epsilon = 1e-9

// Simulator is an offline venue: it produces a deterministic price sequence
// and fills orders instantly against a virtual balance. Useful for tests and
// dry runs without network access.
type Simulator struct {
	mu     sync.Mutex
	price  float64
	step   float64
	script []float64

	quoteAsset string
	baseAsset  string
	cash       float64
	base       float64
	seq        int
}

// NewSimulator builds a simulator starting at startPrice, drifting by step on
// every price request, with startingCash in the quote asset.
func NewSimulator(startPrice, step, startingCash float64) *Simulator {
	if startPrice <= 0 {
		startPrice = 100
	}
	return &Simulator{
		price:      startPrice,
		step:       step,
		quoteAsset: "USDT",
		baseAsset:  "BTC",
		cash:       startingCash,
	}
}

// SetAssets renames the virtual base and quote balances.
func (s *Simulator) SetAssets(base, quote string) {
	s.mu.Lock()
	s.baseAsset, s.quoteAsset = base, quote
	s.mu.Unlock()
}

// SetScript queues an explicit price sequence; GetPrice consumes it before
// resuming the drift walk. Handy for steering crossover scenarios in tests.
func (s *Simulator) SetScript(prices []float64) {
	s.mu.Lock()
	s.script = append(s.script[:0], prices...)
	s.mu.Unlock()
}

// GetPrice returns the next simulated price.
func (s *Simulator) GetPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) > 0 {
		s.price = s.script[0]
		s.script = s.script[1:]
	} else {
		s.price += s.step
	}
	return s.price, nil
}

// GetBalance returns the virtual free balance for the asset.
func (s *Simulator) GetBalance(ctx context.Context, asset string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch asset {
	case s.quoteAsset:
		return s.cash, nil
	case s.baseAsset:
		return s.base, nil
	default:
		return 0, nil
	}
}

// PlaceOrder fills a market order at the current simulated price, mutating the
// virtual balances. Test and live mode behave identically here.
func (s *Simulator) PlaceOrder(ctx context.Context, order execution.Order) (execution.Confirmation, error) {
	if order.Qty <= 0 {
		return execution.Confirmation{}, fmt.Errorf("%w: quantity must be positive", ErrAdapter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notional := order.Qty * s.price
	switch order.Side {
	case execution.Buy:
		if notional > s.cash+epsilon {
			return execution.Confirmation{}, fmt.Errorf("%w: insufficient %s for buy", ErrAdapter, s.quoteAsset)
		}
		s.cash -= notional
		s.base += order.Qty
	case execution.Sell:
		if order.Qty > s.base+epsilon {
			return execution.Confirmation{}, fmt.Errorf("%w: insufficient %s to sell", ErrAdapter, s.baseAsset)
		}
		s.base -= order.Qty
		s.cash += notional
	default:
		return execution.Confirmation{}, fmt.Errorf("%w: unknown order side %q", ErrAdapter, order.Side)
	}

	s.seq++
	return execution.Confirmation{
		OrderID: fmt.Sprintf("SIM-%d", s.seq),
		Status:  "FILLED",
		Ts:      time.Now().UTC(),
	}, nil
}
