package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pierrick-fonquerne/trading-bot/internal/engine"
	"github.com/pierrick-fonquerne/trading-bot/internal/exchange"
	"github.com/pierrick-fonquerne/trading-bot/internal/execution"
	"github.com/pierrick-fonquerne/trading-bot/internal/risk"
	"github.com/pierrick-fonquerne/trading-bot/internal/strategy"
)

func TestCrossoverFlowAgainstSimulator(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sim := exchange.NewSimulator(100, 0, 10_000)
	// Flat start, then a rally: one golden cross once the long window fills.
	sim.SetScript([]float64{100, 100, 100, 100, 100, 100, 140, 140, 140, 140})

	strat, err := strategy.Build("crossover", strategy.Params{ShortWindow: 2, LongWindow: 4})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	eng, err := engine.New(engine.Config{
		Symbol:        "BTCUSDT",
		PollInterval:  5 * time.Millisecond,
		TradeQuantity: 1,
		Mode:          execution.ModeTest,
		MaxHistory:    16,
		Limits:        risk.Limits{MaxNotionalPerTrade: 1000},
	}, sim, strat, zerolog.Nop())
	if err != nil {
		t.Fatalf("engine.New returned error: %v", err)
	}

	trades := make(chan struct{}, 1)
	eng.SetObserver(func(u engine.Update) {
		if u.Trade != nil {
			select {
			case trades <- struct{}{}:
			default:
			}
		}
	})

	eng.Start(ctx)
	select {
	case <-trades:
	case <-ctx.Done():
		t.Fatalf("timed out waiting for crossover trade")
	}
	eng.Stop()

	recorded := eng.Trades(0)
	if len(recorded) == 0 {
		t.Fatalf("expected at least one trade record")
	}
	first := recorded[0]
	if first.Side != execution.Buy {
		t.Fatalf("expected the first trade to be a buy, got %s", first.Side)
	}
	if first.Mode != execution.ModeTest {
		t.Fatalf("expected test mode trade, got %s", first.Mode)
	}

	// The simulated fill moved the virtual balances.
	base, err := sim.GetBalance(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	if base <= 0 {
		t.Fatalf("expected positive base balance after buy, got %v", base)
	}

	status := eng.Status()
	if status.Running {
		t.Fatalf("engine should be stopped")
	}
	if status.Trades == 0 {
		t.Fatalf("status should count trades")
	}
}
