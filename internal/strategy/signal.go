// Package strategy contains trading signal generation logic evaluated over price history.
package strategy

// Signal expresses the outcome of one strategy evaluation.
type Signal int

const (
	// None means no actionable crossover this evaluation.
	None Signal = iota
	// Buy indicates the short average crossed above the long average.
	Buy
	// Sell indicates the short average crossed back below the long average.
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}
