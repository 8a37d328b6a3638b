// Package execution handles order lifecycle and interaction with venues.
package execution

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pierrick-fonquerne/trading-bot/internal/metrics"
)

// Mode selects whether orders hit the venue's test endpoint or real books.
type Mode string

const (
	// ModeTest routes orders through the venue's validation-only endpoint.
	ModeTest Mode = "test"
	// ModeLive sends real orders that move funds.
	ModeLive Mode = "live"
)

// Side enumerates order directions used by the dispatcher.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// Order represents a placement request the dispatcher can process.
type Order struct {
	Symbol string
	Side   Side
	Qty    float64
	Price  float64 // reference price at signal time; placement is market
	Mode   Mode
}

// Confirmation is what a venue reports back for a placed (or simulated) order.
type Confirmation struct {
	OrderID string
	Status  string
	Ts      time.Time
}

// Placer is the slice of an exchange adapter the dispatcher needs.
type Placer interface {
	PlaceOrder(ctx context.Context, order Order) (Confirmation, error)
}

// Dispatcher submits orders through a venue with structured logging and metrics.
type Dispatcher struct {
	placer Placer
	log    zerolog.Logger
}

// NewDispatcher wraps a venue placer for order submission.
func NewDispatcher(placer Placer, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{placer: placer, log: log}
}

// Submit sends one order and reports the venue confirmation.
func (d *Dispatcher) Submit(ctx context.Context, order Order) (Confirmation, error) {
	conf, err := d.placer.PlaceOrder(ctx, order)
	if err != nil {
		d.log.Error().Err(err).Str("sym", order.Symbol).Str("side", string(order.Side)).Str("mode", string(order.Mode)).Msg("order rejected")
		return Confirmation{}, err
	}
	if conf.Ts.IsZero() {
		conf.Ts = time.Now().UTC()
	}
	metrics.OrdersTotal.WithLabelValues(string(order.Side), string(order.Mode)).Inc()
	d.log.Info().Str("sym", order.Symbol).Str("side", string(order.Side)).Str("mode", string(order.Mode)).Float64("qty", order.Qty).Float64("px", order.Price).Str("order_id", conf.OrderID).Str("status", conf.Status).Msg("order submitted")
	return conf, nil
}
