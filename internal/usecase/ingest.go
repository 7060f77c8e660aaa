package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TwQuant/internal/domain/models"
	domrepo "TwQuant/internal/domain/repository"
	"TwQuant/internal/service/export"
	"TwQuant/internal/service/ratelimit"
	pkgcache "TwQuant/pkg/cache"
	applogger "TwQuant/pkg/logger"
	"TwQuant/pkg/util"
)

// Backend selects where a fetched snapshot goes.
const (
	BackendKafka  = "kafka"
	BackendDirect = "clickhouse"
)

// ErrIngestRunning is returned when another node holds the daily
// ingest lock.
var ErrIngestRunning = errors.New("daily ingest already running")

const ingestLockKey = "ingest:daily"

// IngestUseCase runs the daily fetch: institutional flows, summary,
// turnover, futures OI, the FX quote and per-symbol monthly bars, then
// ships the snapshot to Kafka or straight into the stores.
type IngestUseCase struct {
	source      domrepo.HistorySource
	publisher   domrepo.Publisher
	barStore    domrepo.BarStore
	marketStore domrepo.MarketStore
	exporter    *export.Exporter
	limiter     *ratelimit.Limiter
	locker      pkgcache.Service
	metrics     domrepo.Metrics
	l           *applogger.Logger

	backend  string
	symbols  []string
	lookback int
}

type IngestConfig struct {
	Backend  string
	Symbols  []string
	Lookback int
}

func NewIngestUseCase(
	source domrepo.HistorySource,
	publisher domrepo.Publisher,
	barStore domrepo.BarStore,
	marketStore domrepo.MarketStore,
	exporter *export.Exporter,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg IngestConfig,
) *IngestUseCase {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 5
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendKafka
	}
	return &IngestUseCase{
		source:      source,
		publisher:   publisher,
		barStore:    barStore,
		marketStore: marketStore,
		exporter:    exporter,
		limiter:     ratelimit.New(),
		metrics:     metrics,
		l:           l,
		backend:     cfg.Backend,
		symbols:     cfg.Symbols,
		lookback:    cfg.Lookback,
	}
}

// SetLocker installs a cache used to hold the daily-run lock, so two
// nodes sharing Redis do not fetch the same session concurrently.
func (uc *IngestUseCase) SetLocker(c pkgcache.Service) { uc.locker = c }

// RunDaily fetches the latest published session and ships it. It is
// safe to re-run: stores deduplicate by session date.
func (uc *IngestUseCase) RunDaily(ctx context.Context) (*models.DailySnapshot, error) {
	if uc.locker != nil {
		ok, err := uc.locker.TryLock(ctx, ingestLockKey, 10*time.Minute)
		if err == nil && !ok {
			return nil, ErrIngestRunning
		}
		if err == nil {
			defer func() { _ = uc.locker.Unlock(ctx, ingestLockKey) }()
		}
	}

	start := time.Now()
	snap, err := uc.FetchLatest(ctx)
	if err != nil {
		uc.metrics.RecordError("ingest_fetch")
		return nil, err
	}

	if err := uc.ship(ctx, snap); err != nil {
		uc.metrics.RecordError("ingest_ship")
		return nil, err
	}

	if uc.exporter != nil && len(snap.Bars) > 0 {
		if err := uc.exporter.WriteBars(snap.Bars); err != nil {
			// Export is best effort; the snapshot already shipped.
			uc.metrics.RecordError("ingest_export")
			if uc.l != nil {
				uc.l.Warn("parquet export failed", applogger.Error(err))
			}
		}
	}

	uc.metrics.RecordLatency("ingest_daily_seconds", time.Since(start).Seconds())
	if uc.l != nil {
		uc.l.Info("daily ingest done",
			applogger.String("session", snap.Date.Format("2006-01-02")),
			applogger.String("backend", uc.backend),
			applogger.Int("flows", len(snap.Flows)),
			applogger.Int("bars", len(snap.Bars)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return snap, nil
}

// FetchLatest walks back up to lookback calendar days until a session
// with published flow data is found, then fetches the remaining
// datasets for it.
func (uc *IngestUseCase) FetchLatest(ctx context.Context) (*models.DailySnapshot, error) {
	day := util.TradingDay(time.Now().In(util.Taipei))
	for i := 0; i < uc.lookback; i++ {
		snap, err := uc.FetchSession(ctx, day)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, domrepo.ErrDataUnavailable) {
			return nil, err
		}
		if uc.l != nil {
			uc.l.Debug("session not published, walking back",
				applogger.String("date", day.Format("2006-01-02")),
			)
		}
		day = day.AddDate(0, 0, -1)
	}
	return nil, domrepo.ErrDataUnavailable
}

// FetchSession fetches every dataset for one session. A missing flows
// report means the session is not published and aborts the fetch; the
// other datasets are optional and recorded when present.
func (uc *IngestUseCase) FetchSession(ctx context.Context, date time.Time) (*models.DailySnapshot, error) {
	uc.wait(ctx, "twse")
	flows, err := uc.source.InstitutionalFlows(ctx, date)
	if err != nil {
		return nil, err
	}
	uc.metrics.RecordRowsIngested("source", "flows", len(flows))

	snap := &models.DailySnapshot{Date: date, Flows: flows}

	uc.wait(ctx, "twse")
	if summary, err := uc.source.InstitutionalSummary(ctx, date); err == nil {
		snap.Summary = summary
		uc.metrics.RecordRowsIngested("source", "summary", len(summary))
	}

	uc.wait(ctx, "twse")
	if turnover, err := uc.source.Turnover(ctx, date); err == nil {
		snap.Turnover = turnover
		uc.metrics.RecordRowsIngested("source", "turnover", 1)
	}

	uc.wait(ctx, "taifex")
	if futures, err := uc.source.FuturesOI(ctx, date); err == nil {
		snap.Futures = futures
		uc.metrics.RecordRowsIngested("source", "futures", len(futures))
	}

	uc.wait(ctx, "fx")
	if fx, err := uc.source.FxRate(ctx); err == nil {
		snap.Fx = fx
		uc.metrics.RecordRowsIngested("source", "fx", 1)
	}

	for _, symbol := range uc.symbols {
		uc.wait(ctx, "twse")
		bars, err := uc.source.MonthlyBars(ctx, symbol, util.MonthStart(date))
		if err != nil {
			if errors.Is(err, domrepo.ErrDataUnavailable) {
				continue
			}
			return nil, fmt.Errorf("monthly bars %s: %w", symbol, err)
		}
		snap.Bars = append(snap.Bars, bars...)
		uc.metrics.RecordRowsIngested("source", "bars", len(bars))
		if len(bars) > 0 {
			last := bars[len(bars)-1]
			uc.metrics.RecordLastClose(last.Symbol, last.Close)
		}
	}

	return snap, nil
}

// ship publishes the snapshot to Kafka, or writes it to the stores
// directly when running without a broker.
func (uc *IngestUseCase) ship(ctx context.Context, snap *models.DailySnapshot) error {
	if uc.backend == BackendKafka && uc.publisher != nil {
		if err := uc.publisher.PublishSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("publish snapshot: %w", err)
		}
		uc.metrics.RecordRowsIngested("kafka", "snapshot", 1)
		return nil
	}

	if err := uc.marketStore.StoreSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	if len(snap.Bars) > 0 {
		if err := uc.barStore.StoreBars(ctx, snap.Bars); err != nil {
			return fmt.Errorf("store bars: %w", err)
		}
	}
	uc.metrics.RecordRowsIngested("clickhouse", "snapshot", 1)
	return nil
}

// wait throttles upstream calls: roughly one request per second per
// host, with short bursts allowed.
func (uc *IngestUseCase) wait(ctx context.Context, key string) {
	for !uc.limiter.Allow(key, 3, 1) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
}
