// Package engine drives the poll/evaluate/dispatch cycle of the trading bot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pierrick-fonquerne/trading-bot/internal/exchange"
	"github.com/pierrick-fonquerne/trading-bot/internal/execution"
	"github.com/pierrick-fonquerne/trading-bot/internal/history"
	"github.com/pierrick-fonquerne/trading-bot/internal/metrics"
	"github.com/pierrick-fonquerne/trading-bot/internal/risk"
	"github.com/pierrick-fonquerne/trading-bot/internal/strategy"
	"github.com/pierrick-fonquerne/trading-bot/internal/tradelog"
)

var (
	// ErrInvalidConfig rejects engine configuration at construction; the
	// engine never starts in an invalid state.
	ErrInvalidConfig = errors.New("engine: invalid configuration")
	// ErrGuardBusy reports that an order was already in flight when a new
	// dispatch was requested.
	ErrGuardBusy = errors.New("engine: order already in flight")
	// ErrRunning rejects operations that require a stopped engine.
	ErrRunning = errors.New("engine: loop is running")
	// ErrRiskBlocked reports an order refused by the per-trade notional cap.
	ErrRiskBlocked = errors.New("engine: order blocked by trade limit")
)

// Config carries the validated runtime knobs the engine needs.
type Config struct {
	Symbol        string
	PollInterval  time.Duration
	TradeQuantity float64
	Mode          execution.Mode
	MaxHistory    int
	Limits        risk.Limits
}

// Update is emitted to the optional observer after every completed tick.
type Update struct {
	Price  float64
	Signal strategy.Signal
	Trade  *tradelog.Record
	Err    string
}

// Status is the read-only view exposed to the presentation layer.
type Status struct {
	Running        bool           `json:"running"`
	Symbol         string         `json:"symbol"`
	Mode           execution.Mode `json:"mode"`
	LastPrice      float64        `json:"last_price"`
	LastSignal     string         `json:"last_signal"`
	LastTick       time.Time      `json:"last_tick"`
	LastError      string         `json:"last_error,omitempty"`
	DroppedSignals uint64         `json:"dropped_signals"`
	BlockedSignals uint64         `json:"blocked_signals"`
	Ticks          uint64         `json:"ticks"`
	Trades         int            `json:"trades"`
}

// Engine owns the price history, strategy state, and trade log, and is their
// only writer. Ticks run serially; the presentation layer reads copies via
// Status, History, and Trades.
type Engine struct {
	cfg      Config
	adapter  exchange.Adapter
	strat    strategy.Strategy
	dispatch *execution.Dispatcher
	log      zerolog.Logger

	// histMu covers series and strategy state: the loop is the only writer,
	// but presentation snapshots may be taken concurrently.
	histMu sync.Mutex
	series *history.Series
	trades *tradelog.Log

	guard   atomic.Bool // one order dispatch in flight at most
	dropped atomic.Uint64
	blocked atomic.Uint64
	ticks   atomic.Uint64

	observer func(Update)

	mu         sync.Mutex
	running    bool
	stop       chan struct{}
	done       chan struct{}
	lastPrice  float64
	lastSignal strategy.Signal
	lastTick   time.Time
	lastErr    string
}

// New validates the configuration and assembles an engine around the adapter
// and strategy.
func New(cfg Config, adapter exchange.Adapter, strat strategy.Strategy, log zerolog.Logger) (*Engine, error) {
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol must be set", ErrInvalidConfig)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidConfig, cfg.PollInterval)
	}
	if cfg.TradeQuantity <= 0 {
		return nil, fmt.Errorf("%w: trade quantity must be positive, got %v", ErrInvalidConfig, cfg.TradeQuantity)
	}
	if cfg.MaxHistory < 1 {
		return nil, fmt.Errorf("%w: max history must be positive, got %d", ErrInvalidConfig, cfg.MaxHistory)
	}
	switch cfg.Mode {
	case execution.ModeTest, execution.ModeLive:
	default:
		return nil, fmt.Errorf("%w: mode must be test or live, got %q", ErrInvalidConfig, cfg.Mode)
	}
	if adapter == nil || strat == nil {
		return nil, fmt.Errorf("%w: adapter and strategy are required", ErrInvalidConfig)
	}

	return &Engine{
		cfg:      cfg,
		adapter:  adapter,
		strat:    strat,
		dispatch: execution.NewDispatcher(adapter, log),
		log:      log,
		series:   history.New(cfg.MaxHistory),
		trades:   tradelog.New(16),
	}, nil
}

// SetObserver registers a per-tick callback for the presentation layer. Must
// be called before Start; the callback runs on the loop goroutine.
func (e *Engine) SetObserver(fn func(Update)) { e.observer = fn }

// Start launches the tick loop. Starting a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	stop, done := e.stop, e.done
	e.mu.Unlock()

	e.log.Info().Str("sym", e.cfg.Symbol).Str("mode", string(e.cfg.Mode)).Dur("interval", e.cfg.PollInterval).Msg("engine started")
	go e.run(ctx, stop, done)
}

func (e *Engine) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		e.log.Info().Msg("engine stopped")
	}()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// Stop asks the loop to finish the current tick and waits for it to exit. An
// in-flight order dispatch always completes before Stop returns. Stopping a
// stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stop == nil {
		e.mu.Unlock()
		return
	}
	stop, done := e.stop, e.done
	e.stop = nil
	e.mu.Unlock()

	close(stop)
	<-done
}

// tick runs one full poll → append → evaluate → dispatch pipeline. Every
// failure ends the tick early and is recorded; none of them stops the loop.
func (e *Engine) tick(ctx context.Context) {
	e.ticks.Add(1)
	metrics.TicksTotal.Inc()

	price, err := e.adapter.GetPrice(ctx, e.cfg.Symbol)
	if err != nil {
		e.recordError("price", err)
		e.notify(Update{Err: err.Error()})
		return
	}

	sample := history.Sample{Ts: time.Now().UTC(), Price: price}
	e.histMu.Lock()
	if err := e.series.Append(sample); err != nil {
		e.histMu.Unlock()
		e.recordError("append", err)
		e.notify(Update{Price: price, Err: err.Error()})
		return
	}
	sig := e.strat.Evaluate(e.series)
	e.histMu.Unlock()

	e.setTickState(price, sig, sample.Ts)

	if sig == strategy.None {
		e.notify(Update{Price: price, Signal: sig})
		return
	}

	record, err := e.dispatchSignal(ctx, sig, price)
	switch {
	case errors.Is(err, ErrGuardBusy), errors.Is(err, ErrRiskBlocked):
		e.notify(Update{Price: price, Signal: sig, Err: err.Error()})
	case err != nil:
		e.recordError("order", err)
		e.notify(Update{Price: price, Signal: sig, Err: err.Error()})
	default:
		e.notify(Update{Price: price, Signal: sig, Trade: record})
	}
}

// dispatchSignal converts a fired signal into an order while holding the
// in-flight guard. A contested guard drops the signal; it is never queued.
func (e *Engine) dispatchSignal(ctx context.Context, sig strategy.Signal, price float64) (*tradelog.Record, error) {
	if err := e.checkLimits(sig, price); err != nil {
		return nil, err
	}

	if !e.guard.CompareAndSwap(false, true) {
		e.dropped.Add(1)
		metrics.SignalsDropped.Inc()
		e.log.Warn().Stringer("signal", sig).Msg("signal dropped, order already in flight")
		return nil, ErrGuardBusy
	}
	defer e.guard.Store(false)

	side := execution.Buy
	if sig == strategy.Sell {
		side = execution.Sell
	}
	order := execution.Order{
		Symbol: e.cfg.Symbol,
		Side:   side,
		Qty:    e.cfg.TradeQuantity,
		Price:  price,
		Mode:   e.cfg.Mode,
	}
	conf, err := e.dispatch.Submit(ctx, order)
	if err != nil {
		return nil, err
	}

	record := tradelog.Record{
		Ts:      conf.Ts,
		Symbol:  order.Symbol,
		Side:    order.Side,
		Qty:     order.Qty,
		Price:   price,
		Mode:    order.Mode,
		OrderID: conf.OrderID,
		Status:  conf.Status,
	}
	e.trades.Append(record)
	return &record, nil
}

// checkLimits applies the per-trade notional cap. Blocked orders are counted;
// they are never dispatched, regardless of origin.
func (e *Engine) checkLimits(sig strategy.Signal, price float64) error {
	notional := price * e.cfg.TradeQuantity
	if e.cfg.Limits.Allow(notional) {
		return nil
	}
	e.blocked.Add(1)
	metrics.SignalsBlocked.Inc()
	e.log.Warn().Stringer("signal", sig).Float64("notional", notional).Msg("order blocked by trade limit")
	return fmt.Errorf("%w: notional %v", ErrRiskBlocked, notional)
}

// ForceTrade dispatches a manual order outside the tick cycle. It passes the
// same notional cap and competes for the same in-flight guard as
// signal-driven orders.
func (e *Engine) ForceTrade(ctx context.Context, side execution.Side) (tradelog.Record, error) {
	price, err := e.adapter.GetPrice(ctx, e.cfg.Symbol)
	if err != nil {
		e.recordError("price", err)
		return tradelog.Record{}, err
	}

	sig := strategy.Buy
	if side == execution.Sell {
		sig = strategy.Sell
	}
	if err := e.checkLimits(sig, price); err != nil {
		return tradelog.Record{}, err
	}

	if !e.guard.CompareAndSwap(false, true) {
		e.dropped.Add(1)
		metrics.SignalsDropped.Inc()
		return tradelog.Record{}, ErrGuardBusy
	}
	defer e.guard.Store(false)

	order := execution.Order{
		Symbol: e.cfg.Symbol,
		Side:   side,
		Qty:    e.cfg.TradeQuantity,
		Price:  price,
		Mode:   e.cfg.Mode,
	}
	conf, err := e.dispatch.Submit(ctx, order)
	if err != nil {
		e.recordError("order", err)
		return tradelog.Record{}, err
	}

	record := tradelog.Record{
		Ts:      conf.Ts,
		Symbol:  order.Symbol,
		Side:    order.Side,
		Qty:     order.Qty,
		Price:   price,
		Mode:    order.Mode,
		OrderID: conf.OrderID,
		Status:  conf.Status,
	}
	e.trades.Append(record)
	return record, nil
}

// Reset clears price history and strategy state, e.g. after reconfiguration.
// Only valid while the loop is stopped.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrRunning
	}
	e.histMu.Lock()
	e.series.Reset()
	e.strat.Reset()
	e.histMu.Unlock()
	e.lastPrice = 0
	e.lastSignal = strategy.None
	e.lastTick = time.Time{}
	e.lastErr = ""
	return nil
}

// Status returns a copy of the engine's observable state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Running:        e.running,
		Symbol:         e.cfg.Symbol,
		Mode:           e.cfg.Mode,
		LastPrice:      e.lastPrice,
		LastSignal:     e.lastSignal.String(),
		LastTick:       e.lastTick,
		LastError:      e.lastErr,
		DroppedSignals: e.dropped.Load(),
		BlockedSignals: e.blocked.Load(),
		Ticks:          e.ticks.Load(),
		Trades:         e.trades.Len(),
	}
}

// History returns an ordered copy of the price series.
func (e *Engine) History() []history.Sample {
	e.histMu.Lock()
	defer e.histMu.Unlock()
	return e.series.Snapshot()
}

// Trades returns up to n most recent trade records, oldest first.
func (e *Engine) Trades(n int) []tradelog.Record { return e.trades.Recent(n) }

// Balance reports the free balance of the asset at the venue.
func (e *Engine) Balance(ctx context.Context, asset string) (float64, error) {
	return e.adapter.GetBalance(ctx, asset)
}

func (e *Engine) setTickState(price float64, sig strategy.Signal, ts time.Time) {
	e.mu.Lock()
	e.lastPrice = price
	e.lastSignal = sig
	e.lastTick = ts
	e.mu.Unlock()
}

func (e *Engine) recordError(stage string, err error) {
	metrics.TickErrors.WithLabelValues(stage).Inc()
	e.mu.Lock()
	e.lastErr = err.Error()
	e.mu.Unlock()
	e.log.Error().Err(err).Str("stage", stage).Msg("tick failed")
}

func (e *Engine) notify(update Update) {
	if e.observer != nil {
		e.observer(update)
	}
}
