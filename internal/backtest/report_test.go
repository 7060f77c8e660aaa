package backtest

import (
	"math"
	"testing"
	"time"

	"TwQuant/internal/domain/models"
)

func equityCurve(values ...float64) []models.EquityPoint {
	points := make([]models.EquityPoint, len(values))
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		points[i] = models.EquityPoint{Date: day.AddDate(0, 0, i), Equity: v}
	}
	return points
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []models.EquityPoint
		want   float64
	}{
		{"monotonic rise", equityCurve(100, 110, 120), 0},
		{"single dip", equityCurve(100, 80, 120), -0.20},
		{"deepest trough after later peak", equityCurve(100, 120, 90, 130, 65), -0.50},
		{"flat", equityCurve(100, 100, 100), 0},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.equity)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("MaxDrawdown = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTradeStats(t *testing.T) {
	trades := []models.Trade{
		{Kind: models.TradeBuy},
		{Kind: models.TradeSell, NetProfit: 300},
		{Kind: models.TradeBuy},
		{Kind: models.TradeStopLoss, NetProfit: -100},
		{Kind: models.TradeBuy},
		{Kind: models.TradeTakeProfit, NetProfit: 100},
	}

	winRate, plRatio := tradeStats(trades)
	// Entries do not count: 2 winners out of 3 exits.
	if math.Abs(winRate-2.0/3.0) > 1e-12 {
		t.Fatalf("win rate = %v", winRate)
	}
	// Mean win 200 over mean loss 100.
	if math.Abs(plRatio-2.0) > 1e-12 {
		t.Fatalf("p/l ratio = %v", plRatio)
	}
}

func TestTradeStatsNoLosers(t *testing.T) {
	trades := []models.Trade{
		{Kind: models.TradeBuy},
		{Kind: models.TradeSell, NetProfit: 500},
	}
	winRate, plRatio := tradeStats(trades)
	if winRate != 1 {
		t.Fatalf("win rate = %v, want 1", winRate)
	}
	if plRatio != 0 {
		t.Fatalf("p/l ratio sentinel = %v, want 0", plRatio)
	}
}

func TestSharpe(t *testing.T) {
	if got := sharpe(equityCurve(100, 101)); got != 0 {
		t.Fatalf("single return sharpe = %v, want 0", got)
	}
	if got := sharpe(equityCurve(100, 100, 100, 100)); got != 0 {
		t.Fatalf("flat sharpe = %v, want 0", got)
	}

	// Alternating +10% / -10% daily returns: mean is negative, so the
	// ratio must be negative too.
	if got := sharpe(equityCurve(100, 110, 99, 108.9, 98.01)); got >= 0 {
		t.Fatalf("alternating sharpe = %v, want negative", got)
	}
}
