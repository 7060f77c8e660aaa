package strategy

import (
	"fmt"

	"TwQuant/internal/backtest"
	"TwQuant/internal/domain/models"
	"TwQuant/internal/indicator"
)

// MACDCross signals when the MACD line crosses its signal line, with the
// same crossing semantics as MACross.
type MACDCross struct {
	Fast   int
	Slow   int
	Signal int
}

func (s *MACDCross) Name() string { return MACDCrossID }

func (s *MACDCross) Validate() error {
	if s.Fast <= 0 || s.Slow <= 0 || s.Signal <= 0 {
		return &backtest.ConfigError{Reason: "macd spans must be positive"}
	}
	if s.Fast >= s.Slow {
		return &backtest.ConfigError{
			Reason: fmt.Sprintf("fast span %d must be below slow span %d", s.Fast, s.Slow),
		}
	}
	return nil
}

func (s *MACDCross) Warmup() int { return s.Slow + s.Signal - 1 }

func (s *MACDCross) Signals(bars []models.Bar) []backtest.Action {
	macd, sig, _ := indicator.MACD(models.Closes(bars), s.Fast, s.Slow, s.Signal)

	out := make([]backtest.Action, len(bars))
	for i := 1; i < len(bars); i++ {
		if anyNaN(macd[i-1], sig[i-1], macd[i], sig[i]) {
			continue
		}
		switch {
		case macd[i-1] <= sig[i-1] && macd[i] > sig[i]:
			out[i] = backtest.Buy
		case macd[i-1] >= sig[i-1] && macd[i] < sig[i]:
			out[i] = backtest.Sell
		}
	}
	return out
}
