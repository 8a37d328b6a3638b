// Package risk holds pre-trade guard rails applied before dispatch.
package risk

// Limits caps how much notional a single order may carry. A zero limit
// disables the check.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether an order of the given notional may go out.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}
