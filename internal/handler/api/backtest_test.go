package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"TwQuant/internal/domain/models"
	"TwQuant/internal/usecase"
	applogger "TwQuant/pkg/logger"
)

type stubBarStore struct {
	bars []models.Bar
}

func (s *stubBarStore) Init(ctx context.Context) error                         { return nil }
func (s *stubBarStore) StoreBars(ctx context.Context, bars []models.Bar) error { return nil }
func (s *stubBarStore) Health(ctx context.Context) error                       { return nil }
func (s *stubBarStore) Close() error                                           { return nil }

func (s *stubBarStore) Bars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	var out []models.Bar
	for _, b := range s.bars {
		if b.Symbol == symbol && !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubBarStore) LatestBars(ctx context.Context, symbol string, n int) ([]models.Bar, error) {
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

type testMetrics struct{}

func (testMetrics) RecordRowsIngested(backend, dataset string, n int) {}
func (testMetrics) RecordError(kind string)                           {}
func (testMetrics) RecordLastClose(symbol string, price float64)      {}
func (testMetrics) RecordLatency(op string, seconds float64)          {}
func (testMetrics) RecordBacktest(strategy, outcome string)           {}
func (testMetrics) RecordCacheEvent(op, result string)                {}

func trendStore(n int) *stubBarStore {
	bars := make([]models.Bar, n)
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 100.0 - float64(i)
		if i > n/2 {
			c = 100.0 - float64(n/2) + 2*float64(i-n/2)
		}
		bars[i] = models.Bar{
			Symbol: "2330",
			Date:   day.AddDate(0, 0, i),
			Open:   c, High: c + 1, Low: c - 1, Close: c,
			Volume: 1000,
		}
	}
	return &stubBarStore{bars: bars}
}

func newBacktestHandler(store *stubBarStore) *BacktestHandler {
	l := applogger.NewNop()
	bt := usecase.NewBacktestUseCase(store, testMetrics{})
	return NewBacktestHandler(l, bt, nil, nil)
}

func doRequest(h echo.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = h(c)
	return rec
}

func TestRunEndpoint(t *testing.T) {
	h := newBacktestHandler(trendStore(80))

	req := httptest.NewRequest(http.MethodGet,
		"/api/backtest/run?symbol=2330&strategy=ma_cross&from=2023-01-02&to=2023-06-30", nil)
	rec := doRequest(h.Run, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Status int            `json:"status"`
		Data   *models.Report `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != http.StatusOK || env.Data == nil {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Data.Strategy != "ma_cross" || env.Data.BarCount != 80 {
		t.Fatalf("report = %+v", env.Data)
	}
}

func TestRunEndpointMissingSymbol(t *testing.T) {
	h := newBacktestHandler(trendStore(80))

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/run?strategy=ma_cross", nil)
	rec := doRequest(h.Run, req)

	// Validation failures ride the envelope status, not the HTTP code.
	var env struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != http.StatusBadRequest {
		t.Fatalf("envelope status = %d", env.Status)
	}
}

func TestRunEndpointInsufficientData(t *testing.T) {
	h := newBacktestHandler(trendStore(10))

	req := httptest.NewRequest(http.MethodGet,
		"/api/backtest/run?symbol=2330&strategy=ma_cross&from=2023-01-02&to=2023-06-30", nil)
	rec := doRequest(h.Run, req)

	var env struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != http.StatusUnprocessableEntity {
		t.Fatalf("envelope status = %d, body %s", env.Status, rec.Body.String())
	}
}

func TestRunEndpointNoBars(t *testing.T) {
	h := newBacktestHandler(&stubBarStore{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/backtest/run?symbol=9999&strategy=ma_cross&from=2023-01-02&to=2023-06-30", nil)
	rec := doRequest(h.Run, req)

	var env struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != http.StatusNotFound {
		t.Fatalf("envelope status = %d", env.Status)
	}
}

func TestSweepStatusUnknown(t *testing.T) {
	store := trendStore(80)
	l := applogger.NewNop()
	sweep := usecase.NewSweepUseCase(store, nil, nil, testMetrics{}, nil, 2, time.Minute)
	h := NewBacktestHandler(l, nil, sweep, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/backtest/sweep/sweep-missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("sweep-missing")
	_ = h.SweepStatus(c)

	var env struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != http.StatusNotFound {
		t.Fatalf("envelope status = %d", env.Status)
	}
}

func TestCandlesEndpointBadIndicator(t *testing.T) {
	l := applogger.NewNop()
	h := NewCandlesHandler(l, usecase.NewCandlesUseCase(trendStore(40)))

	req := httptest.NewRequest(http.MethodGet, "/api/candles?symbol=2330&indicators=vwap_3", nil)
	rec := doRequest(h.Candles, req)

	var env struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != http.StatusBadRequest {
		t.Fatalf("envelope status = %d, body %s", env.Status, rec.Body.String())
	}
}

func TestCandlesEndpoint(t *testing.T) {
	l := applogger.NewNop()
	h := NewCandlesHandler(l, usecase.NewCandlesUseCase(trendStore(40)))

	req := httptest.NewRequest(http.MethodGet, "/api/candles?symbol=2330&n=20&indicators=sma_5,rsi_14", nil)
	rec := doRequest(h.Candles, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`"sma_5"`, `"rsi_14"`, `"count":20`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %s: %s", want, body)
		}
	}
}
