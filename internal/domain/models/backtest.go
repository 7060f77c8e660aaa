package models

import "time"

// TradeKind labels a single account transaction.
type TradeKind string

const (
	TradeBuy         TradeKind = "buy"
	TradeSell        TradeKind = "sell"
	TradeStopLoss    TradeKind = "stop_loss"
	TradeTakeProfit  TradeKind = "take_profit"
	TradeForcedClose TradeKind = "forced_close"
)

// IsExit reports whether the trade closed a position.
func (k TradeKind) IsExit() bool {
	return k != TradeBuy
}

// Trade is one account transaction. Fees apply to both sides, tax to the
// sell side only. NetProfit is 0 for entries and realized P&L for exits.
type Trade struct {
	Date       time.Time `json:"date"`
	Kind       TradeKind `json:"kind"`
	Price      float64   `json:"price"`
	Shares     int64     `json:"shares"`
	GrossValue float64   `json:"gross_value"`
	Fee        float64   `json:"fee"`
	Tax        float64   `json:"tax"`
	NetProfit  float64   `json:"net_profit"`
}

// EquityPoint is the account value at the close of one session:
// cash plus shares marked to the bar's close.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// Report summarizes a backtest run. Ratio metrics resolve to sentinel 0
// when undefined (no trades, no losses, flat equity) rather than erroring.
type Report struct {
	Symbol           string  `json:"symbol"`
	Strategy         string  `json:"strategy"`
	InitialCapital   float64 `json:"initial_capital"`
	FinalEquity      float64 `json:"final_equity"`
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	BuyHoldReturn    float64 `json:"buy_hold_return"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	WinRate          float64 `json:"win_rate"`
	ProfitLossRatio  float64 `json:"profit_loss_ratio"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	TradeCount       int     `json:"trade_count"`
	BarCount         int     `json:"bar_count"`

	Trades []Trade       `json:"trades,omitempty"`
	Equity []EquityPoint `json:"equity,omitempty"`
}
