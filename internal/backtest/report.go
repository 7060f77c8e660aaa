package backtest

import (
	"math"

	"TwQuant/internal/domain/models"
)

// buildReport reduces the trade log and equity curve into summary
// metrics. Undefined ratios (no trades, no losers, flat equity) resolve
// to 0 rather than erroring; they are valid outcomes.
func buildReport(bars []models.Bar, trades []models.Trade, equity []models.EquityPoint, cfg Config) *models.Report {
	r := &models.Report{
		Symbol:         bars[0].Symbol,
		InitialCapital: cfg.InitialCapital,
		TradeCount:     len(trades),
		BarCount:       len(bars),
		Trades:         trades,
		Equity:         equity,
	}

	final := equity[len(equity)-1].Equity
	r.FinalEquity = final
	r.TotalReturn = final/cfg.InitialCapital - 1

	elapsed := bars[len(bars)-1].Date.Sub(bars[0].Date).Hours() / 24
	if elapsed > 0 {
		r.AnnualizedReturn = math.Pow(1+r.TotalReturn, 365/elapsed) - 1
	}

	if first := bars[0].Close; first > 0 {
		r.BuyHoldReturn = bars[len(bars)-1].Close/first - 1
	}

	r.MaxDrawdown = MaxDrawdown(equity)
	r.WinRate, r.ProfitLossRatio = tradeStats(trades)
	r.SharpeRatio = sharpe(equity)
	return r
}

// MaxDrawdown returns the largest peak-to-trough equity decline as a
// non-positive fraction of the running peak.
func MaxDrawdown(equity []models.EquityPoint) float64 {
	var dd float64
	peak := math.Inf(-1)
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if d := p.Equity/peak - 1; d < dd {
				dd = d
			}
		}
	}
	return dd
}

// tradeStats computes win rate over exit trades and the mean-win to
// mean-loss ratio. Either side empty yields sentinel 0 for the ratio.
func tradeStats(trades []models.Trade) (winRate, plRatio float64) {
	var exits, wins int
	var winSum, lossSum float64
	var winCount, lossCount int

	for _, t := range trades {
		if !t.Kind.IsExit() {
			continue
		}
		exits++
		switch {
		case t.NetProfit > 0:
			wins++
			winSum += t.NetProfit
			winCount++
		case t.NetProfit < 0:
			lossSum += t.NetProfit
			lossCount++
		}
	}

	if exits > 0 {
		winRate = float64(wins) / float64(exits)
	}
	if winCount > 0 && lossCount > 0 {
		meanWin := winSum / float64(winCount)
		meanLoss := lossSum / float64(lossCount)
		plRatio = meanWin / math.Abs(meanLoss)
	}
	return winRate, plRatio
}

// sharpe annualizes the mean daily equity return over its sample
// standard deviation by sqrt(252) trading days.
func sharpe(equity []models.EquityPoint) float64 {
	returns := make([]float64, 0, len(equity))
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, equity[i].Equity/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	sd := math.Sqrt(variance)
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(252)
}
