package models

// Requests for HTTP endpoints. Defined in domain for consistency and reuse.

type BacktestRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,twsymbol"`
	Strategy string `query:"strategy" json:"strategy" default:"ma_cross" validate:"oneof=ma_cross rsi_reversal macd_cross bollinger_breakout foreign_flow"`
	From     string `query:"from" json:"from"`
	To       string `query:"to" json:"to"`

	InitialCapital float64 `query:"initial_capital" json:"initial_capital" default:"100000" validate:"gt=0"`
	FeeRate        float64 `query:"fee_rate" json:"fee_rate" default:"0.001425" validate:"gte=0,lt=1"`
	TaxRate        float64 `query:"tax_rate" json:"tax_rate" default:"0.003" validate:"gte=0,lt=1"`
	StopLoss       float64 `query:"stop_loss" json:"stop_loss" validate:"gte=0,lt=1"`
	TakeProfit     float64 `query:"take_profit" json:"take_profit" validate:"gte=0"`

	Params map[string]float64 `json:"params"`

	IncludeTrades bool `query:"include_trades" json:"include_trades"`
	IncludeEquity bool `query:"include_equity" json:"include_equity"`
}

type SweepRequest struct {
	Symbol   string `json:"symbol" validate:"required,twsymbol"`
	Strategy string `json:"strategy" default:"ma_cross" validate:"oneof=ma_cross rsi_reversal macd_cross bollinger_breakout foreign_flow"`
	From     string `json:"from"`
	To       string `json:"to"`

	InitialCapital float64 `json:"initial_capital" default:"100000" validate:"gt=0"`
	FeeRate        float64 `json:"fee_rate" default:"0.001425" validate:"gte=0,lt=1"`
	TaxRate        float64 `json:"tax_rate" default:"0.003" validate:"gte=0,lt=1"`

	// Grid maps a strategy parameter to the candidate values to sweep.
	Grid map[string][]float64 `json:"grid" validate:"required"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,twsymbol"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	N      int    `query:"n" json:"n" default:"120" validate:"gte=1,lte=5000"`
}

type FlowsRequest struct {
	Date string `query:"date" json:"date"`
	N    int    `query:"n" json:"n" default:"50" validate:"gte=1,lte=200"`
}

// SweepJob is the payload queued for asynchronous parameter sweeps.
type SweepJob struct {
	ID      string       `json:"id"`
	Request SweepRequest `json:"request"`
}

// SweepProgress is streamed to WebSocket subscribers while a sweep runs.
type SweepProgress struct {
	ID        string  `json:"id"`
	Done      int     `json:"done"`
	Total     int     `json:"total"`
	Best      *Report `json:"best,omitempty"`
	Completed bool    `json:"completed"`
	Error     string  `json:"error,omitempty"`
}
