package usecase

import (
	"context"
	"fmt"
	"time"

	"TwQuant/internal/backtest"
	"TwQuant/internal/domain/models"
	domrepo "TwQuant/internal/domain/repository"
	"TwQuant/internal/strategy"
	"TwQuant/pkg/util"
)

// BacktestUseCase loads history and runs one strategy simulation.
type BacktestUseCase struct {
	store   domrepo.BarStore
	metrics domrepo.Metrics
}

func NewBacktestUseCase(store domrepo.BarStore, metrics domrepo.Metrics) *BacktestUseCase {
	return &BacktestUseCase{store: store, metrics: metrics}
}

// Run executes the requested backtest. The report carries trades and
// the equity curve only when the request asks for them.
func (uc *BacktestUseCase) Run(ctx context.Context, req models.BacktestRequest) (*models.Report, error) {
	from, to, err := resolveRange(req.From, req.To)
	if err != nil {
		return nil, err
	}

	strat, err := strategy.New(req.Strategy, req.Params)
	if err != nil {
		uc.metrics.RecordBacktest(req.Strategy, "config_error")
		return nil, err
	}

	bars, err := uc.store.Bars(ctx, req.Symbol, from, to)
	if err != nil {
		uc.metrics.RecordError("bar_store")
		return nil, fmt.Errorf("load bars %s: %w", req.Symbol, err)
	}
	if len(bars) == 0 {
		return nil, domrepo.ErrDataUnavailable
	}

	cfg := backtest.Config{
		InitialCapital: req.InitialCapital,
		FeeRate:        req.FeeRate,
		TaxRate:        req.TaxRate,
		StopLoss:       req.StopLoss,
		TakeProfit:     req.TakeProfit,
	}

	start := time.Now()
	report, err := backtest.Run(bars, strat, cfg)
	if err != nil {
		uc.metrics.RecordBacktest(req.Strategy, "error")
		return nil, err
	}
	uc.metrics.RecordBacktest(req.Strategy, "ok")
	uc.metrics.RecordLatency("backtest_run_seconds", time.Since(start).Seconds())

	if !req.IncludeTrades {
		report.Trades = nil
	}
	if !req.IncludeEquity {
		report.Equity = nil
	}
	return report, nil
}

// resolveRange parses the from/to strings. Defaults cover the year up
// to the current Taipei session.
func resolveRange(from, to string) (time.Time, time.Time, error) {
	end := util.TradingDay(time.Now().In(util.Taipei))
	if to != "" {
		t, ok := util.ParseDate(to)
		if !ok {
			return time.Time{}, time.Time{}, &backtest.ConfigError{Reason: fmt.Sprintf("bad to date %q", to)}
		}
		end = t
	}

	start := end.AddDate(-1, 0, 0)
	if from != "" {
		t, ok := util.ParseDate(from)
		if !ok {
			return time.Time{}, time.Time{}, &backtest.ConfigError{Reason: fmt.Sprintf("bad from date %q", from)}
		}
		start = t
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, &backtest.ConfigError{Reason: "from is after to"}
	}
	return start, end, nil
}
