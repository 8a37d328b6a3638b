// Package market standardizes payloads shared between exchange connectors and the engine.
package market

import "time"

// Tick models one observed trade on a venue, as delivered by a streaming feed.
type Tick struct {
	Symbol string
	Price  float64
	Size   float64
	Ts     time.Time
}
