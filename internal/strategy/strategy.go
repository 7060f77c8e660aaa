// Package strategy implements the rule-based signal generators. Each
// strategy is a small parameter struct satisfying backtest.Strategy;
// signals come from one left-to-right pass with no look-ahead, and bars
// inside an indicator's warmup window always map to Hold.
package strategy

import (
	"fmt"

	"TwQuant/internal/backtest"
)

// Strategy ids accepted by New.
const (
	MACrossID           = "ma_cross"
	RSIReversalID       = "rsi_reversal"
	MACDCrossID         = "macd_cross"
	BollingerBreakoutID = "bollinger_breakout"
	ForeignFlowID       = "foreign_flow"
)

// New builds a strategy from its id and a loose parameter map, filling
// defaults for anything missing. Unknown ids are a config error.
func New(id string, params map[string]float64) (backtest.Strategy, error) {
	get := func(key string, def float64) float64 {
		if v, ok := params[key]; ok {
			return v
		}
		return def
	}

	var s backtest.Strategy
	switch id {
	case MACrossID:
		s = &MACross{
			Short: int(get("short", 5)),
			Long:  int(get("long", 20)),
		}
	case RSIReversalID:
		s = &RSIReversal{
			Period:     int(get("period", 14)),
			Oversold:   get("oversold", 30),
			Overbought: get("overbought", 70),
		}
	case MACDCrossID:
		s = &MACDCross{
			Fast:   int(get("fast", 12)),
			Slow:   int(get("slow", 26)),
			Signal: int(get("signal", 9)),
		}
	case BollingerBreakoutID:
		s = &BollingerBreakout{
			Period:  int(get("period", 20)),
			StdMult: get("std_mult", 2),
		}
	case ForeignFlowID:
		s = &ForeignFlow{
			Window:    int(get("window", 20)),
			BuyRatio:  get("buy_ratio", 1.5),
			SellRatio: get("sell_ratio", 0.5),
		}
	default:
		return nil, &backtest.ConfigError{Reason: fmt.Sprintf("unknown strategy %q", id)}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
