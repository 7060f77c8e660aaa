package strategy

import (
	"TwQuant/internal/backtest"
	"TwQuant/internal/domain/models"
	"TwQuant/internal/indicator"
)

// BollingerBreakout is the mean-reversion band strategy: Buy when the
// close crosses below the lower band, Sell when it crosses above the
// upper band. Entries trigger on the breach itself, not on proximity.
type BollingerBreakout struct {
	Period  int
	StdMult float64
}

func (s *BollingerBreakout) Name() string { return BollingerBreakoutID }

func (s *BollingerBreakout) Validate() error {
	if s.Period <= 1 {
		return &backtest.ConfigError{Reason: "bollinger period must be above 1"}
	}
	if s.StdMult <= 0 {
		return &backtest.ConfigError{Reason: "bollinger std multiplier must be positive"}
	}
	return nil
}

func (s *BollingerBreakout) Warmup() int { return s.Period }

func (s *BollingerBreakout) Signals(bars []models.Bar) []backtest.Action {
	closes := models.Closes(bars)
	upper, _, lower := indicator.Bollinger(closes, s.Period, s.StdMult)

	out := make([]backtest.Action, len(bars))
	for i := 1; i < len(bars); i++ {
		if anyNaN(upper[i-1], lower[i-1], upper[i], lower[i]) {
			continue
		}
		switch {
		case closes[i-1] >= lower[i-1] && closes[i] < lower[i]:
			out[i] = backtest.Buy
		case closes[i-1] <= upper[i-1] && closes[i] > upper[i]:
			out[i] = backtest.Sell
		}
	}
	return out
}
