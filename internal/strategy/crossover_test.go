package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/pierrick-fonquerne/trading-bot/internal/history"
)

func seriesOf(t *testing.T, maxSamples int, prices ...float64) *history.Series {
	t.Helper()
	series := history.New(maxSamples)
	base := time.Now()
	for i, px := range prices {
		if err := series.Append(history.Sample{Ts: base.Add(time.Duration(i) * time.Second), Price: px}); err != nil {
			t.Fatalf("append %d returned error: %v", i, err)
		}
	}
	return series
}

func TestNewCrossoverValidation(t *testing.T) {
	cases := []struct {
		name        string
		short, long int
	}{
		{"zero short", 0, 10},
		{"zero long", 5, 0},
		{"equal windows", 10, 10},
		{"short above long", 20, 10},
	}
	for _, tc := range cases {
		if _, err := NewCrossover(tc.short, tc.long); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
	}

	if _, err := NewCrossover(5, 20); err != nil {
		t.Fatalf("valid windows rejected: %v", err)
	}
}

func TestEvaluateInsufficientHistoryLeavesStateUntouched(t *testing.T) {
	strat, _ := NewCrossover(2, 4)
	series := seriesOf(t, 10, 1, 2, 3)

	if sig := strat.Evaluate(series); sig != None {
		t.Fatalf("expected None with insufficient history, got %s", sig)
	}
	if strat.prev != relationUnknown {
		t.Fatalf("state advanced on insufficient history")
	}
}

func TestFirstFullEvaluationIsSilent(t *testing.T) {
	strat, _ := NewCrossover(2, 4)
	// Short average well above long average on the first complete observation.
	series := seriesOf(t, 10, 1, 1, 5, 5)

	if sig := strat.Evaluate(series); sig != None {
		t.Fatalf("first evaluation should establish baseline, got %s", sig)
	}
}

func TestGoldenCrossEmitsSingleBuy(t *testing.T) {
	strat, _ := NewCrossover(5, 10)
	series := history.New(20)
	base := time.Now()

	append := func(i int, px float64) Signal {
		t.Helper()
		if err := series.Append(history.Sample{Ts: base.Add(time.Duration(i) * time.Second), Price: px}); err != nil {
			t.Fatalf("append returned error: %v", err)
		}
		return strat.Evaluate(series)
	}

	// Ten flat ticks: the state stays untouched until the long window fills,
	// and the tick completing it only establishes the baseline.
	for i := 0; i < 10; i++ {
		if sig := append(i, 1); sig != None {
			t.Fatalf("unexpected signal %s at warmup tick %d", sig, i)
		}
	}

	// The rally tick flips short above long: exactly one Buy.
	if sig := append(10, 2); sig != Buy {
		t.Fatalf("expected Buy at the crossing tick, got %s", sig)
	}

	// The next identical-relation tick stays silent.
	if sig := append(11, 2); sig != None {
		t.Fatalf("sustained relation should stay silent, got %s", sig)
	}
}

func TestCrossoverBuyThenSell(t *testing.T) {
	strat, _ := NewCrossover(2, 4)
	series := history.New(10)
	base := time.Now()

	prices := []float64{10, 10, 10, 10, 14, 14, 6, 6, 6}
	want := []Signal{None, None, None, None, Buy, None, Sell, None, None}
	for i, px := range prices {
		if err := series.Append(history.Sample{Ts: base.Add(time.Duration(i) * time.Second), Price: px}); err != nil {
			t.Fatalf("append returned error: %v", err)
		}
		got := strat.Evaluate(series)
		if got != want[i] {
			t.Fatalf("tick %d (price %.0f): expected %s, got %s", i, px, want[i], got)
		}
	}
}

func TestEqualAveragesAreNotAbove(t *testing.T) {
	strat, _ := NewCrossover(1, 2)
	series := history.New(10)
	base := time.Now()

	// Constant prices: short average equals long average every tick.
	for i := 0; i < 5; i++ {
		_ = series.Append(history.Sample{Ts: base.Add(time.Duration(i) * time.Second), Price: 3})
		if sig := strat.Evaluate(series); sig != None {
			t.Fatalf("flat market should never signal, got %s at tick %d", sig, i)
		}
	}
}

func TestResetReestablishesBaseline(t *testing.T) {
	strat, _ := NewCrossover(1, 2)
	series := seriesOf(t, 10, 1, 5)

	if sig := strat.Evaluate(series); sig != None {
		t.Fatalf("baseline evaluation should be silent, got %s", sig)
	}

	strat.Reset()
	if sig := strat.Evaluate(series); sig != None {
		t.Fatalf("post-reset evaluation should be silent, got %s", sig)
	}
}

func TestBuildFactory(t *testing.T) {
	for _, mode := range []string{"", "crossover", "SMA", "sma_cross"} {
		strat, err := Build(mode, Params{ShortWindow: 5, LongWindow: 20})
		if err != nil {
			t.Fatalf("Build(%q) returned error: %v", mode, err)
		}
		if strat.Name() != "Crossover" {
			t.Fatalf("Build(%q) returned %s", mode, strat.Name())
		}
	}

	if _, err := Build("martingale", Params{ShortWindow: 5, LongWindow: 20}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for unknown mode, got %v", err)
	}
}
