package repository

import (
	"context"
	"errors"
	"time"

	"TwQuant/internal/domain/models"
)

// ErrDataUnavailable is returned when an upstream source has no rows for
// the requested session, typically a holiday or a not-yet-published report.
var ErrDataUnavailable = errors.New("market data unavailable")

// HistorySource fetches market data from the exchanges.
type HistorySource interface {
	MonthlyBars(ctx context.Context, symbol string, month time.Time) ([]models.Bar, error)
	InstitutionalFlows(ctx context.Context, date time.Time) ([]models.InstitutionalFlow, error)
	InstitutionalSummary(ctx context.Context, date time.Time) ([]models.InstitutionalSummary, error)
	Turnover(ctx context.Context, date time.Time) (*models.MarketTurnover, error)
	FuturesOI(ctx context.Context, date time.Time) ([]models.FuturesOI, error)
	FxRate(ctx context.Context) (*models.FxRate, error)
}

// Publisher ships daily snapshots to the message backend.
type Publisher interface {
	PublishSnapshot(ctx context.Context, s *models.DailySnapshot) error
	Close() error
}

// BarStore persists and serves daily OHLCV bars.
type BarStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreBars(ctx context.Context, bars []models.Bar) error
	Bars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
	LatestBars(ctx context.Context, symbol string, n int) ([]models.Bar, error)
	Health(ctx context.Context) error
	Close() error
}

// MarketStore persists and serves the market-wide daily datasets.
type MarketStore interface {
	Init(ctx context.Context) error
	StoreSnapshot(ctx context.Context, s *models.DailySnapshot) error
	Flows(ctx context.Context, date time.Time) ([]models.InstitutionalFlow, error)
	Summary(ctx context.Context, date time.Time) ([]models.InstitutionalSummary, error)
	Turnover(ctx context.Context, from, to time.Time) ([]models.MarketTurnover, error)
	FuturesOI(ctx context.Context, date time.Time) ([]models.FuturesOI, error)
	Fx(ctx context.Context, date time.Time) (*models.FxRate, error)
	LatestSessionDate(ctx context.Context) (time.Time, error)
	Close() error
}

// Metrics abstracts operational counters so usecases stay backend-agnostic.
type Metrics interface {
	RecordRowsIngested(backend, dataset string, n int)
	RecordError(kind string)
	RecordLastClose(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordBacktest(strategy, outcome string)
	RecordCacheEvent(op, result string)
}
