package strategy

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig rejects window pairs the crossover cannot evaluate.
var ErrInvalidConfig = errors.New("strategy: invalid window configuration")

// Series is the read-only slice of price history a strategy may inspect.
type Series interface {
	Average(window int) (float64, error)
	Len() int
}

// relation records which side of the long average the short average sat on at
// the previous evaluation.
type relation int

const (
	relationUnknown relation = iota
	relationAbove
	relationBelowOrEqual
)

// Crossover emits Buy on a golden cross and Sell on a death cross of two
// simple moving averages. A signal fires only on the transition; a sustained
// relation stays silent, and equal averages count as "not above" so a flat
// market never flaps.
type Crossover struct {
	shortWindow int
	longWindow  int
	prev        relation
}

// NewCrossover validates the window pair. The short window must be strictly
// smaller than the long one or the averages could never cross.
func NewCrossover(shortWindow, longWindow int) (*Crossover, error) {
	if shortWindow <= 0 || longWindow <= 0 {
		return nil, fmt.Errorf("%w: windows must be positive (short=%d long=%d)", ErrInvalidConfig, shortWindow, longWindow)
	}
	if shortWindow >= longWindow {
		return nil, fmt.Errorf("%w: short window %d must be below long window %d", ErrInvalidConfig, shortWindow, longWindow)
	}
	return &Crossover{shortWindow: shortWindow, longWindow: longWindow}, nil
}

// Name returns the identifier used for logging.
func (c *Crossover) Name() string { return "Crossover" }

// Windows returns the configured short and long window lengths.
func (c *Crossover) Windows() (int, int) { return c.shortWindow, c.longWindow }

// Evaluate maps the current series onto a trading signal and advances the
// crossover state. With insufficient history it emits None and leaves the
// state untouched. The first complete observation establishes the baseline
// without trading.
func (c *Crossover) Evaluate(series Series) Signal {
	if series.Len() < c.longWindow {
		return None
	}
	shortAvg, err := series.Average(c.shortWindow)
	if err != nil {
		return None
	}
	longAvg, err := series.Average(c.longWindow)
	if err != nil {
		return None
	}

	current := relationBelowOrEqual
	if shortAvg > longAvg {
		current = relationAbove
	}
	prev := c.prev
	c.prev = current

	switch {
	case prev == relationUnknown:
		return None
	case prev == relationBelowOrEqual && current == relationAbove:
		return Buy
	case prev == relationAbove && current == relationBelowOrEqual:
		return Sell
	default:
		return None
	}
}

// Reset forgets the previous relation, e.g. after the engine clears history.
func (c *Crossover) Reset() { c.prev = relationUnknown }
