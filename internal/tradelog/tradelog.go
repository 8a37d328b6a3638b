// Package tradelog keeps the in-memory record of executed and simulated trades.
package tradelog

import (
	"sync"
	"time"

	"github.com/pierrick-fonquerne/trading-bot/internal/execution"
)

// Record captures one executed (or simulated) trade. Immutable once appended.
type Record struct {
	Ts      time.Time      `json:"ts"`
	Symbol  string         `json:"symbol"`
	Side    execution.Side `json:"side"`
	Qty     float64        `json:"qty"`
	Price   float64        `json:"price"`
	Mode    execution.Mode `json:"mode"`
	OrderID string         `json:"order_id,omitempty"`
	Status  string         `json:"status,omitempty"`
}

// Log is an append-only trade history. Only the engine writes; readers get
// copies via Recent.
type Log struct {
	mu      sync.Mutex
	records []Record
}

// New creates an empty log optionally pre-sizing storage.
func New(capacity int) *Log {
	if capacity < 0 {
		capacity = 0
	}
	return &Log{records: make([]Record, 0, capacity)}
}

// Append adds a record to the log.
func (l *Log) Append(record Record) {
	l.mu.Lock()
	l.records = append(l.records, record)
	l.mu.Unlock()
}

// Recent returns up to n most recent records, oldest first. A non-positive n
// returns everything.
func (l *Log) Recent(n int) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if n > 0 && len(l.records) > n {
		start = len(l.records) - n
	}
	out := make([]Record, len(l.records)-start)
	copy(out, l.records[start:])
	return out
}

// Len reports how many trades have been recorded.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Reset clears all stored records.
func (l *Log) Reset() {
	l.mu.Lock()
	l.records = l.records[:0]
	l.mu.Unlock()
}
