package strategy

import (
	"fmt"
	"math"

	"TwQuant/internal/backtest"
	"TwQuant/internal/domain/models"
	"TwQuant/internal/indicator"
)

// MACross signals on moving average crossovers: Buy when the short MA
// crosses from at-or-below to above the long MA, Sell on the downward
// cross.
type MACross struct {
	Short int
	Long  int
}

func (s *MACross) Name() string { return MACrossID }

func (s *MACross) Validate() error {
	if s.Short <= 0 || s.Long <= 0 {
		return &backtest.ConfigError{Reason: "ma windows must be positive"}
	}
	if s.Short >= s.Long {
		return &backtest.ConfigError{
			Reason: fmt.Sprintf("short window %d must be below long window %d", s.Short, s.Long),
		}
	}
	return nil
}

func (s *MACross) Warmup() int { return s.Long }

func (s *MACross) Signals(bars []models.Bar) []backtest.Action {
	closes := models.Closes(bars)
	short := indicator.SMA(closes, s.Short)
	long := indicator.SMA(closes, s.Long)

	out := make([]backtest.Action, len(bars))
	for i := 1; i < len(bars); i++ {
		if anyNaN(short[i-1], long[i-1], short[i], long[i]) {
			continue
		}
		switch {
		case short[i-1] <= long[i-1] && short[i] > long[i]:
			out[i] = backtest.Buy
		case short[i-1] >= long[i-1] && short[i] < long[i]:
			out[i] = backtest.Sell
		}
	}
	return out
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
