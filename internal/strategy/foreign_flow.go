package strategy

import (
	"math"

	"TwQuant/internal/backtest"
	"TwQuant/internal/domain/models"
	"TwQuant/internal/indicator"
)

// ForeignFlow approximates institutional accumulation with a volume
// ratio when true per-bar flow data is unavailable: Buy when volume runs
// above BuyRatio times its moving average, Sell when it falls below
// SellRatio times the average. The thresholds are illustrative defaults,
// not validated trading logic.
type ForeignFlow struct {
	Window    int
	BuyRatio  float64
	SellRatio float64
}

func (s *ForeignFlow) Name() string { return ForeignFlowID }

func (s *ForeignFlow) Validate() error {
	if s.Window <= 0 {
		return &backtest.ConfigError{Reason: "volume window must be positive"}
	}
	if s.SellRatio >= s.BuyRatio {
		return &backtest.ConfigError{Reason: "sell ratio must be below buy ratio"}
	}
	if s.SellRatio <= 0 {
		return &backtest.ConfigError{Reason: "sell ratio must be positive"}
	}
	return nil
}

func (s *ForeignFlow) Warmup() int { return s.Window }

func (s *ForeignFlow) Signals(bars []models.Bar) []backtest.Action {
	volMA := indicator.SMA(models.Volumes(bars), s.Window)

	out := make([]backtest.Action, len(bars))
	for i, bar := range bars {
		if math.IsNaN(volMA[i]) || volMA[i] == 0 {
			continue
		}
		ratio := float64(bar.Volume) / volMA[i]
		switch {
		case ratio > s.BuyRatio:
			out[i] = backtest.Buy
		case ratio < s.SellRatio:
			out[i] = backtest.Sell
		}
	}
	return out
}
