package models

import "time"

// InstitutionalFlow is one stock's daily three-institutional buy/sell
// breakdown from the TWSE T86 report. Quantities are in shares.
type InstitutionalFlow struct {
	Date        time.Time `json:"date"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	ForeignBuy  int64     `json:"foreign_buy"`
	ForeignSell int64     `json:"foreign_sell"`
	ForeignNet  int64     `json:"foreign_net"`
	TrustBuy    int64     `json:"trust_buy"`
	TrustSell   int64     `json:"trust_sell"`
	TrustNet    int64     `json:"trust_net"`
	DealerBuy   int64     `json:"dealer_buy"`
	DealerSell  int64     `json:"dealer_sell"`
	DealerNet   int64     `json:"dealer_net"`
	TotalNet    int64     `json:"total_net"`
}

// InstitutionalSummary is the market-wide three-institutional totals
// from the TWSE BFI82U report. Amounts are in TWD.
type InstitutionalSummary struct {
	Date       time.Time `json:"date"`
	Category   string    `json:"category"`
	BuyAmount  int64     `json:"buy_amount"`
	SellAmount int64     `json:"sell_amount"`
	NetAmount  int64     `json:"net_amount"`
}

// MarketTurnover is one session's market totals from FMTQIK.
type MarketTurnover struct {
	Date        time.Time `json:"date"`
	TradeVolume int64     `json:"trade_volume"`
	TradeValue  int64     `json:"trade_value"`
	Transaction int64     `json:"transaction"`
	Index       float64   `json:"index"`
	Change      float64   `json:"change"`
}

// FuturesOI is the TAIFEX institutional open interest snapshot for one
// contract class and institution category.
type FuturesOI struct {
	Date         time.Time `json:"date"`
	Contract     string    `json:"contract"`
	Category     string    `json:"category"`
	LongOI       int64     `json:"long_oi"`
	ShortOI      int64     `json:"short_oi"`
	NetOI        int64     `json:"net_oi"`
	LongOIValue  int64     `json:"long_oi_value"`
	ShortOIValue int64     `json:"short_oi_value"`
}

// FxRate is a bank USD/TWD quote.
type FxRate struct {
	Date     time.Time `json:"date"`
	Currency string    `json:"currency"`
	SpotBuy  float64   `json:"spot_buy"`
	SpotSell float64   `json:"spot_sell"`
	CashBuy  float64   `json:"cash_buy"`
	CashSell float64   `json:"cash_sell"`
}

// NetBuyRank is one row of a top-N institutional net buy/sell list.
type NetBuyRank struct {
	Rank   int    `json:"rank"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Net    int64  `json:"net"`
}

// CommonBuy is a stock bought by both foreign investors and investment
// trusts on the same session.
type CommonBuy struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	ForeignNet int64  `json:"foreign_net"`
	TrustNet   int64  `json:"trust_net"`
}

// DailySnapshot bundles everything fetched for one session. It is the
// unit of work the ingest pipeline publishes and stores.
type DailySnapshot struct {
	Date     time.Time              `json:"date"`
	Flows    []InstitutionalFlow    `json:"flows"`
	Summary  []InstitutionalSummary `json:"summary"`
	Turnover *MarketTurnover        `json:"turnover"`
	Futures  []FuturesOI            `json:"futures"`
	Fx       *FxRate                `json:"fx"`
	Bars     []Bar                  `json:"bars"`
}
