package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"TwQuant/internal/backtest"
	"TwQuant/internal/domain/models"
)

// memBarStore serves a fixed bar slice.
type memBarStore struct {
	bars []models.Bar
}

func (s *memBarStore) Init(ctx context.Context) error   { return nil }
func (s *memBarStore) Health(ctx context.Context) error { return nil }
func (s *memBarStore) Close() error                     { return nil }

func (s *memBarStore) StoreBars(ctx context.Context, bars []models.Bar) error {
	s.bars = append(s.bars, bars...)
	return nil
}

func (s *memBarStore) Bars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	var out []models.Bar
	for _, b := range s.bars {
		if b.Symbol == symbol && !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memBarStore) LatestBars(ctx context.Context, symbol string, n int) ([]models.Bar, error) {
	var out []models.Bar
	for _, b := range s.bars {
		if b.Symbol == symbol {
			out = append(out, b)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// nopMetrics satisfies the Metrics interface.
type nopMetrics struct{}

func (nopMetrics) RecordRowsIngested(backend, dataset string, n int)  {}
func (nopMetrics) RecordError(kind string)                            {}
func (nopMetrics) RecordLastClose(symbol string, price float64)       {}
func (nopMetrics) RecordLatency(op string, seconds float64)           {}
func (nopMetrics) RecordBacktest(strategy, outcome string)            {}
func (nopMetrics) RecordCacheEvent(op, result string)                 {}

// capturingQueue records published messages.
type capturingQueue struct {
	types    []string
	payloads []interface{}
}

func (q *capturingQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

func storeWithTrend(symbol string, n int) *memBarStore {
	bars := make([]models.Bar, n)
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		// Down leg then up leg so crossing strategies trade.
		c := 100.0 - float64(i)
		if i > n/2 {
			c = 100.0 - float64(n/2) + 2*float64(i-n/2)
		}
		bars[i] = models.Bar{
			Symbol: symbol,
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return &memBarStore{bars: bars}
}

func TestBacktestUseCaseRun(t *testing.T) {
	store := storeWithTrend("2330", 80)
	uc := NewBacktestUseCase(store, nopMetrics{})

	req := models.BacktestRequest{
		Symbol:         "2330",
		Strategy:       "ma_cross",
		From:           "2023-01-02",
		To:             "2023-06-30",
		InitialCapital: 100000,
		FeeRate:        0.001425,
		TaxRate:        0.003,
		Params:         map[string]float64{"short": 3, "long": 10},
		IncludeEquity:  true,
	}

	report, err := uc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Strategy != "ma_cross" || report.BarCount != 80 {
		t.Fatalf("report = %+v", report)
	}
	if report.Trades != nil {
		t.Fatalf("trades included without include_trades")
	}
	if len(report.Equity) != 80 {
		t.Fatalf("equity points = %d", len(report.Equity))
	}
}

func TestBacktestUseCaseBadDate(t *testing.T) {
	uc := NewBacktestUseCase(storeWithTrend("2330", 40), nopMetrics{})
	_, err := uc.Run(context.Background(), models.BacktestRequest{
		Symbol:         "2330",
		Strategy:       "ma_cross",
		From:           "not-a-date",
		InitialCapital: 100000,
	})
	var cfgErr *backtest.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestExpandGrid(t *testing.T) {
	combos := ExpandGrid(map[string][]float64{
		"short": {2, 3},
		"long":  {10, 20},
	})
	if len(combos) != 4 {
		t.Fatalf("combos = %d, want 4", len(combos))
	}
	// Deterministic key order: long varies slowest.
	if combos[0]["long"] != 10 || combos[0]["short"] != 2 {
		t.Fatalf("first combo = %v", combos[0])
	}
	if combos[3]["long"] != 20 || combos[3]["short"] != 3 {
		t.Fatalf("last combo = %v", combos[3])
	}

	if got := ExpandGrid(nil); got != nil {
		t.Fatalf("nil grid expanded to %v", got)
	}
	if got := ExpandGrid(map[string][]float64{"short": {}}); got != nil {
		t.Fatalf("empty values expanded to %v", got)
	}
}

func TestSweepSubmitQueuesJob(t *testing.T) {
	q := &capturingQueue{}
	uc := NewSweepUseCase(storeWithTrend("2330", 80), q, NewSweepHub(), nopMetrics{}, nil, 2, time.Minute)

	id, err := uc.Submit(context.Background(), models.SweepRequest{
		Symbol:         "2330",
		Strategy:       "ma_cross",
		InitialCapital: 100000,
		Grid:           map[string][]float64{"short": {2, 3}, "long": {10}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(q.types) != 1 || q.types[0] != SweepMessageType {
		t.Fatalf("queued types = %v", q.types)
	}

	p, ok := uc.Progress(id)
	if !ok || p.Total != 2 || p.Done != 0 {
		t.Fatalf("initial progress = %+v", p)
	}
}

func TestSweepSubmitRejectsUnknownStrategy(t *testing.T) {
	uc := NewSweepUseCase(storeWithTrend("2330", 80), &capturingQueue{}, nil, nopMetrics{}, nil, 2, time.Minute)
	_, err := uc.Submit(context.Background(), models.SweepRequest{
		Symbol:   "2330",
		Strategy: "nope",
		Grid:     map[string][]float64{"short": {2}},
	})
	var cfgErr *backtest.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestSweepExecute(t *testing.T) {
	hub := NewSweepHub()
	uc := NewSweepUseCase(storeWithTrend("2330", 80), &capturingQueue{}, hub, nopMetrics{}, nil, 2, time.Minute)

	job := models.SweepJob{
		ID: "sweep-test",
		Request: models.SweepRequest{
			Symbol:         "2330",
			Strategy:       "ma_cross",
			From:           "2023-01-02",
			To:             "2023-06-30",
			InitialCapital: 100000,
			FeeRate:        0.001425,
			TaxRate:        0.003,
			// short=20 > long=10 is invalid and must not sink the sweep.
			Grid: map[string][]float64{"short": {3, 20}, "long": {10}},
		},
	}
	uc.setProgress(&models.SweepProgress{ID: job.ID, Total: 2})

	if err := uc.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}

	p, ok := uc.Progress(job.ID)
	if !ok {
		t.Fatalf("progress missing")
	}
	if !p.Completed || p.Done != 2 {
		t.Fatalf("final progress = %+v", p)
	}
	if p.Best == nil {
		t.Fatalf("no best report despite one valid combination")
	}
	if p.Best.Trades != nil || p.Best.Equity != nil {
		t.Fatalf("progress carries bulky report data")
	}
	if math.IsNaN(p.Best.TotalReturn) {
		t.Fatalf("best total return NaN")
	}
}

func TestSweepHubDeliversAndCancels(t *testing.T) {
	hub := NewSweepHub()
	ch, cancel := hub.Subscribe("s1")

	hub.Publish(models.SweepProgress{ID: "s1", Done: 1, Total: 2})
	hub.Publish(models.SweepProgress{ID: "other", Done: 9, Total: 9})

	select {
	case p := <-ch:
		if p.ID != "s1" || p.Done != 1 {
			t.Fatalf("got %+v", p)
		}
	default:
		t.Fatalf("no update delivered")
	}
	select {
	case p := <-ch:
		t.Fatalf("unexpected cross-id delivery: %+v", p)
	default:
	}

	cancel()
	if _, open := <-ch; open {
		t.Fatalf("channel still open after cancel")
	}
	// Publishing after cancel must not panic.
	hub.Publish(models.SweepProgress{ID: "s1"})
}
