package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"TwQuant/internal/domain/models"
)

// scripted replays a fixed action per bar index; everything else is Hold.
type scripted struct {
	actions map[int]Action
	warmup  int
	name    string
}

func (s *scripted) Name() string {
	if s.name == "" {
		return "scripted"
	}
	return s.name
}
func (s *scripted) Validate() error { return nil }
func (s *scripted) Warmup() int     { return s.warmup }
func (s *scripted) Signals(bars []models.Bar) []Action {
	out := make([]Action, len(bars))
	for i, a := range s.actions {
		if i < len(out) {
			out[i] = a
		}
	}
	return out
}

func testBars(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Symbol: "2330",
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

// flatTail pads closes with value out to n bars total.
func flatTail(closes []float64, value float64, n int) []float64 {
	out := append([]float64{}, closes...)
	for len(out) < n {
		out = append(out, value)
	}
	return out
}

func defaultConfig() Config {
	return Config{
		InitialCapital: 100000,
		FeeRate:        0.001425,
		TaxRate:        0.003,
	}
}

func TestRunFullRoundTrip(t *testing.T) {
	// Buy at 100, sell at 110 with Taiwan-convention fees and tax.
	closes := flatTail([]float64{100, 105, 95, 110}, 90, 35)
	bars := testBars(closes)
	strat := &scripted{actions: map[int]Action{0: Buy, 3: Sell}}

	report, err := Run(bars, strat, defaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(report.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(report.Trades))
	}

	buy := report.Trades[0]
	if buy.Kind != models.TradeBuy || buy.Shares != 998 {
		t.Fatalf("buy = %+v, want 998 shares", buy)
	}
	if !close2(buy.Fee, 99800*0.001425) {
		t.Fatalf("entry fee = %v", buy.Fee)
	}

	sell := report.Trades[1]
	if sell.Kind != models.TradeSell {
		t.Fatalf("second trade kind = %v", sell.Kind)
	}
	if !close2(sell.GrossValue, 109780) {
		t.Fatalf("proceeds = %v", sell.GrossValue)
	}
	if !close2(sell.Fee, 109780*0.001425) {
		t.Fatalf("exit fee = %v", sell.Fee)
	}
	if !close2(sell.Tax, 109780*0.003) {
		t.Fatalf("tax = %v", sell.Tax)
	}
	wantNet := (110.0-100.0)*998 - 109780*0.001425 - 109780*0.003
	if !close2(sell.NetProfit, wantNet) {
		t.Fatalf("net profit = %v, want %v", sell.NetProfit, wantNet)
	}

	wantFinal := 100000 - 100.0*998*1.001425 + 109780 - 109780*0.001425 - 109780*0.003
	if !close2(report.FinalEquity, wantFinal) {
		t.Fatalf("final equity = %v, want %v", report.FinalEquity, wantFinal)
	}
}

func TestRunStopLossPrecedesSellSignal(t *testing.T) {
	// Bar 2 both breaches the stop and carries a Sell signal: exactly
	// one exit trade is recorded and its kind is stop_loss.
	closes := flatTail([]float64{100, 95, 85}, 85, 35)
	bars := testBars(closes)
	strat := &scripted{actions: map[int]Action{0: Buy, 2: Sell}}

	cfg := defaultConfig()
	cfg.StopLoss = 0.10

	report, err := Run(bars, strat, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(report.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(report.Trades))
	}
	if report.Trades[1].Kind != models.TradeStopLoss {
		t.Fatalf("exit kind = %v, want stop_loss", report.Trades[1].Kind)
	}
}

func TestRunTakeProfit(t *testing.T) {
	closes := flatTail([]float64{100, 125}, 125, 35)
	bars := testBars(closes)
	strat := &scripted{actions: map[int]Action{0: Buy}}

	cfg := defaultConfig()
	cfg.TakeProfit = 0.20

	report, err := Run(bars, strat, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Trades[1].Kind != models.TradeTakeProfit {
		t.Fatalf("exit kind = %v, want take_profit", report.Trades[1].Kind)
	}
}

func TestRunForcedCloseAtEnd(t *testing.T) {
	closes := flatTail([]float64{100}, 104, 35)
	bars := testBars(closes)
	strat := &scripted{actions: map[int]Action{0: Buy}}

	report, err := Run(bars, strat, defaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	last := report.Trades[len(report.Trades)-1]
	if last.Kind != models.TradeForcedClose {
		t.Fatalf("last trade kind = %v, want forced_close", last.Kind)
	}
	// After simulation the account is always flat; final equity is cash
	// net of the forced close's fee and tax.
	if !close2(report.FinalEquity, report.Equity[len(report.Equity)-1].Equity) {
		t.Fatalf("final equity mismatch")
	}
}

func TestRunCannotAffordOneShare(t *testing.T) {
	closes := flatTail([]float64{100}, 100, 35)
	bars := testBars(closes)
	strat := &scripted{actions: map[int]Action{0: Buy}}

	cfg := defaultConfig()
	cfg.InitialCapital = 50

	report, err := Run(bars, strat, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Trades) != 0 {
		t.Fatalf("trades = %d, want 0", len(report.Trades))
	}
	if !close2(report.FinalEquity, 50) {
		t.Fatalf("final equity = %v, want 50", report.FinalEquity)
	}
}

func TestRunInsufficientData(t *testing.T) {
	bars := testBars(flatTail(nil, 100, 10))
	strat := &scripted{warmup: 20}

	_, err := Run(bars, strat, defaultConfig())
	var dataErr *InsufficientDataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if dataErr.Required != 50 || dataErr.Available != 10 {
		t.Fatalf("counts = %d/%d", dataErr.Required, dataErr.Available)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	bars := testBars(flatTail(nil, 100, 35))
	strat := &scripted{}

	cfg := defaultConfig()
	cfg.InitialCapital = 0

	_, err := Run(bars, strat, cfg)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestRunEquityInvariants(t *testing.T) {
	closes := flatTail([]float64{100, 90, 120, 80, 130}, 110, 40)
	bars := testBars(closes)
	strat := &scripted{actions: map[int]Action{0: Buy, 2: Sell, 3: Buy}}

	report, err := Run(bars, strat, defaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(report.Equity) != len(bars) {
		t.Fatalf("equity length %d, want %d", len(report.Equity), len(bars))
	}
	for i, p := range report.Equity {
		if p.Equity < 0 {
			t.Fatalf("negative equity at %d: %v", i, p.Equity)
		}
	}

	// Feeding the equity curve back through the drawdown formula must
	// reproduce the reported figure exactly.
	if dd := MaxDrawdown(report.Equity); dd != report.MaxDrawdown {
		t.Fatalf("drawdown round trip: %v != %v", dd, report.MaxDrawdown)
	}
	if report.MaxDrawdown > 0 {
		t.Fatalf("drawdown must be non-positive: %v", report.MaxDrawdown)
	}
}

func TestReportSentinelZeros(t *testing.T) {
	// No trades at all: ratio metrics resolve to 0.
	bars := testBars(flatTail(nil, 100, 35))
	report, err := Run(bars, &scripted{}, defaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.WinRate != 0 || report.ProfitLossRatio != 0 || report.SharpeRatio != 0 {
		t.Fatalf("sentinels: %+v", report)
	}
	if report.TotalReturn != 0 {
		t.Fatalf("flat run total return = %v", report.TotalReturn)
	}
}

func TestBuyHoldBenchmark(t *testing.T) {
	closes := flatTail([]float64{100}, 110, 35)
	report, err := Run(testBars(closes), &scripted{}, defaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !close2(report.BuyHoldReturn, 0.10) {
		t.Fatalf("buy and hold = %v, want 0.10", report.BuyHoldReturn)
	}
}

func close2(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
