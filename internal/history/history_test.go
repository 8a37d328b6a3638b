package history

import (
	"errors"
	"testing"
	"time"
)

func sampleAt(base time.Time, offsetSecs int, price float64) Sample {
	return Sample{Ts: base.Add(time.Duration(offsetSecs) * time.Second), Price: price}
}

func TestAppendEvictsOldest(t *testing.T) {
	series := New(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		if err := series.Append(sampleAt(base, i, float64(i))); err != nil {
			t.Fatalf("append %d returned error: %v", i, err)
		}
		if series.Len() > 3 {
			t.Fatalf("series exceeded capacity: %d", series.Len())
		}
	}

	snap := series.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(snap))
	}
	for i, want := range []float64{2, 3, 4} {
		if snap[i].Price != want {
			t.Fatalf("expected price %.0f at index %d, got %.0f", want, i, snap[i].Price)
		}
	}
}

func TestAppendRejectsOutOfOrder(t *testing.T) {
	series := New(10)
	base := time.Now()
	if err := series.Append(sampleAt(base, 10, 100)); err != nil {
		t.Fatalf("first append returned error: %v", err)
	}

	for _, offset := range []int{10, 5} {
		err := series.Append(sampleAt(base, offset, 101))
		if !errors.Is(err, ErrOutOfOrder) {
			t.Fatalf("expected ErrOutOfOrder for offset %d, got %v", offset, err)
		}
	}
	if series.Len() != 1 {
		t.Fatalf("history mutated by rejected append, len=%d", series.Len())
	}
}

func TestAverageConstantPrice(t *testing.T) {
	series := New(20)
	base := time.Now()
	for i := 0; i < 12; i++ {
		if err := series.Append(sampleAt(base, i, 42.5)); err != nil {
			t.Fatalf("append returned error: %v", err)
		}
	}

	for _, window := range []int{1, 5, 12} {
		avg, err := series.Average(window)
		if err != nil {
			t.Fatalf("Average(%d) returned error: %v", window, err)
		}
		if avg != 42.5 {
			t.Fatalf("Average(%d) = %.4f, want 42.5", window, avg)
		}
	}
}

func TestAverageInsufficientHistory(t *testing.T) {
	series := New(10)
	base := time.Now()
	for i := 0; i < 3; i++ {
		_ = series.Append(sampleAt(base, i, 10))
	}

	if _, err := series.Average(4); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected ErrInsufficient, got %v", err)
	}
	if _, err := series.Average(0); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected ErrInsufficient for zero window, got %v", err)
	}
}

func TestAverageUsesMostRecentWindow(t *testing.T) {
	series := New(10)
	base := time.Now()
	prices := []float64{1, 1, 1, 2, 2, 2}
	for i, px := range prices {
		_ = series.Append(sampleAt(base, i, px))
	}

	avg, err := series.Average(3)
	if err != nil {
		t.Fatalf("Average returned error: %v", err)
	}
	if avg != 2 {
		t.Fatalf("expected last-3 average 2, got %.4f", avg)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	series := New(5)
	base := time.Now()
	_ = series.Append(sampleAt(base, 0, 10))
	snap := series.Snapshot()
	snap[0].Price = 999

	fresh := series.Snapshot()
	if fresh[0].Price != 10 {
		t.Fatalf("snapshot mutation leaked into series: %.0f", fresh[0].Price)
	}
}

func TestReset(t *testing.T) {
	series := New(5)
	base := time.Now()
	_ = series.Append(sampleAt(base, 0, 10))
	series.Reset()
	if series.Len() != 0 {
		t.Fatalf("expected empty series after reset, len=%d", series.Len())
	}
	if _, ok := series.Last(); ok {
		t.Fatalf("expected no last sample after reset")
	}
	if err := series.Append(sampleAt(base, 0, 11)); err != nil {
		t.Fatalf("append after reset returned error: %v", err)
	}
}
