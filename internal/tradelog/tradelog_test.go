package tradelog

import (
	"testing"
	"time"

	"github.com/pierrick-fonquerne/trading-bot/internal/execution"
)

func TestAppendAndRecent(t *testing.T) {
	log := New(4)
	base := time.Now()
	for i := 0; i < 5; i++ {
		log.Append(Record{Ts: base.Add(time.Duration(i) * time.Minute), Symbol: "BTCUSDT", Side: execution.Buy, Qty: 0.001, Price: float64(100 + i), Mode: execution.ModeTest})
	}

	if log.Len() != 5 {
		t.Fatalf("expected 5 records, got %d", log.Len())
	}

	recent := log.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent records, got %d", len(recent))
	}
	if recent[0].Price != 103 || recent[1].Price != 104 {
		t.Fatalf("expected the two most recent records oldest first, got %.0f %.0f", recent[0].Price, recent[1].Price)
	}

	all := log.Recent(0)
	if len(all) != 5 {
		t.Fatalf("expected non-positive n to return everything, got %d", len(all))
	}
}

func TestRecentReturnsCopy(t *testing.T) {
	log := New(1)
	log.Append(Record{Symbol: "BTCUSDT", Price: 10})
	recent := log.Recent(1)
	recent[0].Price = 999

	if log.Recent(1)[0].Price != 10 {
		t.Fatalf("mutation of Recent result leaked into log")
	}
}

func TestReset(t *testing.T) {
	log := New(1)
	log.Append(Record{Symbol: "BTCUSDT"})
	log.Reset()
	if log.Len() != 0 {
		t.Fatalf("expected empty log after reset, got %d", log.Len())
	}
}
