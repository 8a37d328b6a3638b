package strategy

import (
	"fmt"
	"strings"
)

// Strategy defines behaviour shared by strategy implementations used by the bot.
type Strategy interface {
	Evaluate(series Series) Signal
	Reset()
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	ShortWindow int
	LongWindow  int
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "crossover", "sma", "sma_cross":
		return NewCrossover(params.ShortWindow, params.LongWindow)
	default:
		return nil, fmt.Errorf("%w: unknown strategy mode %q", ErrInvalidConfig, mode)
	}
}
