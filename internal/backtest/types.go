package backtest

import "TwQuant/internal/domain/models"

// Action is the per-bar decision a strategy emits.
type Action int8

const (
	Hold Action = iota
	Buy
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "hold"
	}
}

// Strategy turns a bar series into a per-bar action series. Signals must
// be generated in a single left-to-right pass with no look-ahead, and
// bars whose indicator inputs are still undefined must map to Hold.
type Strategy interface {
	// Name identifies the strategy in reports and metrics.
	Name() string

	// Validate rejects impossible parameter sets before any simulation.
	Validate() error

	// Warmup returns the number of leading bars that cannot produce a
	// signal because their indicator windows have not filled.
	Warmup() int

	// Signals returns one action per input bar, same length as bars.
	Signals(bars []models.Bar) []Action
}

// Config holds the engine's account parameters. StopLoss and TakeProfit
// are fractions of the entry price; 0 disables the check.
type Config struct {
	InitialCapital float64
	FeeRate        float64
	TaxRate        float64
	StopLoss       float64
	TakeProfit     float64
}

// Validate rejects account parameters the simulation cannot run with.
func (c *Config) Validate() error {
	if c.InitialCapital <= 0 {
		return &ConfigError{Reason: "initial capital must be positive"}
	}
	if c.FeeRate < 0 {
		return &ConfigError{Reason: "fee rate must be non-negative"}
	}
	if c.TaxRate < 0 {
		return &ConfigError{Reason: "tax rate must be non-negative"}
	}
	if c.StopLoss < 0 || c.StopLoss >= 1 {
		return &ConfigError{Reason: "stop loss must be in [0, 1)"}
	}
	if c.TakeProfit < 0 {
		return &ConfigError{Reason: "take profit must be non-negative"}
	}
	return nil
}

// MinValidBars is the fewest post-warmup bars a run needs to produce a
// meaningful report.
const MinValidBars = 30
