// Package backtest simulates a single-position, full-allocation trading
// account over a daily bar series and reduces the result into summary
// statistics. A run is a pure computation: it owns all of its state, so
// any number of runs may execute concurrently on the same bar slice.
package backtest

import (
	"time"

	"TwQuant/internal/domain/models"
)

// Run simulates strat over bars with cfg and returns the full report.
// Configuration is rejected before any simulation starts.
func Run(bars []models.Bar, strat Strategy, cfg Config) (*models.Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := strat.Validate(); err != nil {
		return nil, err
	}

	warmup := strat.Warmup()
	if len(bars)-warmup < MinValidBars {
		return nil, &InsufficientDataError{
			Required:  warmup + MinValidBars,
			Available: len(bars),
		}
	}

	actions := strat.Signals(bars)

	acct := account{cash: cfg.InitialCapital}
	trades := make([]models.Trade, 0, 8)
	equity := make([]models.EquityPoint, 0, len(bars))

	for i, bar := range bars {
		price := bar.Close

		switch {
		case acct.open():
			// Stop-loss and take-profit take priority over the
			// strategy's own exit. A triggered close consumes the
			// whole bar, including any coinciding Sell signal.
			if kind, hit := acct.riskExit(price, cfg); hit {
				trades = append(trades, acct.close(bar.Date, price, kind, cfg))
			} else if actions[i] == Sell {
				trades = append(trades, acct.close(bar.Date, price, models.TradeSell, cfg))
			}
		case actions[i] == Buy:
			if t, ok := acct.enter(bar.Date, price, cfg); ok {
				trades = append(trades, t)
			}
		}

		equity = append(equity, models.EquityPoint{
			Date:   bar.Date,
			Equity: acct.value(price),
		})
	}

	// The backtest never ends holding an unrealized position.
	if acct.open() {
		last := bars[len(bars)-1]
		trades = append(trades, acct.close(last.Date, last.Close, models.TradeForcedClose, cfg))
		equity[len(equity)-1].Equity = acct.value(last.Close)
	}

	report := buildReport(bars, trades, equity, cfg)
	report.Strategy = strat.Name()
	return report, nil
}

// account is the mutable simulation state: cash, an optional open
// position, and nothing else.
type account struct {
	cash   float64
	shares int64
	entry  float64
}

func (a *account) open() bool { return a.shares > 0 }

func (a *account) value(price float64) float64 {
	return a.cash + float64(a.shares)*price
}

// riskExit checks stop-loss before take-profit against the entry price.
func (a *account) riskExit(price float64, cfg Config) (models.TradeKind, bool) {
	if cfg.StopLoss > 0 && price <= a.entry*(1-cfg.StopLoss) {
		return models.TradeStopLoss, true
	}
	if cfg.TakeProfit > 0 && price >= a.entry*(1+cfg.TakeProfit) {
		return models.TradeTakeProfit, true
	}
	return "", false
}

// enter buys as many whole shares as cash covers including the entry
// fee. Too little cash for one share is a quiet no-op, not an error.
func (a *account) enter(date time.Time, price float64, cfg Config) (models.Trade, bool) {
	shares := int64(a.cash / (price * (1 + cfg.FeeRate)))
	if shares <= 0 {
		return models.Trade{}, false
	}

	gross := price * float64(shares)
	fee := gross * cfg.FeeRate
	a.cash -= gross + fee
	a.shares = shares
	a.entry = price

	return models.Trade{
		Date:       date,
		Kind:       models.TradeBuy,
		Price:      price,
		Shares:     shares,
		GrossValue: gross,
		Fee:        fee,
	}, true
}

// close sells the whole position, charging the exit fee and the
// sell-side transaction tax. NetProfit excludes the entry fee.
func (a *account) close(date time.Time, price float64, kind models.TradeKind, cfg Config) models.Trade {
	gross := price * float64(a.shares)
	fee := gross * cfg.FeeRate
	tax := gross * cfg.TaxRate
	net := (price-a.entry)*float64(a.shares) - fee - tax

	a.cash += gross - fee - tax
	t := models.Trade{
		Date:       date,
		Kind:       kind,
		Price:      price,
		Shares:     a.shares,
		GrossValue: gross,
		Fee:        fee,
		Tax:        tax,
		NetProfit:  net,
	}
	a.shares = 0
	a.entry = 0
	return t
}
