package strategy

import (
	"fmt"
	"math"

	"TwQuant/internal/backtest"
	"TwQuant/internal/domain/models"
	"TwQuant/internal/indicator"
)

// RSIReversal signals on rebounds out of the extreme zones: Buy on the
// first bar where RSI recovers to at least Oversold after dipping below
// it, Sell on the first bar where RSI falls back to at most Overbought
// after exceeding it. Each side fires once per zone visit.
type RSIReversal struct {
	Period     int
	Oversold   float64
	Overbought float64
}

func (s *RSIReversal) Name() string { return RSIReversalID }

func (s *RSIReversal) Validate() error {
	if s.Period <= 0 {
		return &backtest.ConfigError{Reason: "rsi period must be positive"}
	}
	if s.Oversold >= s.Overbought {
		return &backtest.ConfigError{
			Reason: fmt.Sprintf("oversold %.1f must be below overbought %.1f", s.Oversold, s.Overbought),
		}
	}
	if s.Oversold < 0 || s.Overbought > 100 {
		return &backtest.ConfigError{Reason: "rsi thresholds must stay within [0, 100]"}
	}
	return nil
}

func (s *RSIReversal) Warmup() int { return s.Period + 1 }

func (s *RSIReversal) Signals(bars []models.Bar) []backtest.Action {
	rsi := indicator.RSI(models.Closes(bars), s.Period)

	out := make([]backtest.Action, len(bars))
	var armedBuy, armedSell bool
	for i, v := range rsi {
		if math.IsNaN(v) {
			continue
		}
		switch {
		case v < s.Oversold:
			armedBuy = true
		case armedBuy && v >= s.Oversold:
			out[i] = backtest.Buy
			armedBuy = false
		}
		switch {
		case v > s.Overbought:
			armedSell = true
		case armedSell && v <= s.Overbought:
			// A bar cannot carry both a rebound Buy and a fall-through
			// Sell; the earlier Buy wins the tie.
			if out[i] == backtest.Hold {
				out[i] = backtest.Sell
			}
			armedSell = false
		}
	}
	return out
}
