package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TwQuant/internal/domain/models"
	domrepo "TwQuant/internal/domain/repository"
	pkgch "TwQuant/pkg/clickhouse"
	applogger "TwQuant/pkg/logger"
)

// CHMarketStore implements MarketStore backed by ClickHouse. One table
// per daily dataset, all keyed by session date on ReplacingMergeTree so
// re-running an ingest for a session overwrites instead of duplicating.
type CHMarketStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHMarketStore(ch *pkgch.Client) *CHMarketStore {
	return &CHMarketStore{ch: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHMarketStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHMarketStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS inst_flows (
            date         Date,
            symbol       LowCardinality(String),
            name         String,
            foreign_buy  Int64,
            foreign_sell Int64,
            foreign_net  Int64,
            trust_buy    Int64,
            trust_sell   Int64,
            trust_net    Int64,
            dealer_buy   Int64,
            dealer_sell  Int64,
            dealer_net   Int64,
            total_net    Int64
        ) ENGINE = ReplacingMergeTree()
        ORDER BY (date, symbol)`,
		`CREATE TABLE IF NOT EXISTS inst_summary (
            date        Date,
            category    LowCardinality(String),
            buy_amount  Int64,
            sell_amount Int64,
            net_amount  Int64
        ) ENGINE = ReplacingMergeTree()
        ORDER BY (date, category)`,
		`CREATE TABLE IF NOT EXISTS market_turnover (
            date         Date,
            trade_volume Int64,
            trade_value  Int64,
            transaction  Int64,
            index        Float64,
            change       Float64
        ) ENGINE = ReplacingMergeTree()
        ORDER BY date`,
		`CREATE TABLE IF NOT EXISTS futures_oi (
            date           Date,
            contract       LowCardinality(String),
            category       LowCardinality(String),
            long_oi        Int64,
            short_oi       Int64,
            net_oi         Int64,
            long_oi_value  Int64,
            short_oi_value Int64
        ) ENGINE = ReplacingMergeTree()
        ORDER BY (date, contract, category)`,
		`CREATE TABLE IF NOT EXISTS fx_rates (
            date      Date,
            currency  LowCardinality(String),
            spot_buy  Float64,
            spot_sell Float64,
            cash_buy  Float64,
            cash_sell Float64
        ) ENGINE = ReplacingMergeTree()
        ORDER BY (date, currency)`,
	}
	return s.ch.InitSchema(ctx, stmts)
}

func (s *CHMarketStore) StoreSnapshot(ctx context.Context, snap *models.DailySnapshot) error {
	start := time.Now()

	if err := s.storeFlows(ctx, snap.Flows); err != nil {
		return err
	}
	if err := s.storeSummary(ctx, snap.Summary); err != nil {
		return err
	}
	if snap.Turnover != nil {
		const q = `INSERT INTO market_turnover (date, trade_volume, trade_value, transaction, index, change) VALUES (?, ?, ?, ?, ?, ?)`
		t := snap.Turnover
		if _, err := s.db.ExecContext(ctx, q, t.Date, t.TradeVolume, t.TradeValue, t.Transaction, t.Index, t.Change); err != nil {
			return fmt.Errorf("store turnover: %w", err)
		}
	}
	if err := s.storeFutures(ctx, snap.Futures); err != nil {
		return err
	}
	if snap.Fx != nil {
		const q = `INSERT INTO fx_rates (date, currency, spot_buy, spot_sell, cash_buy, cash_sell) VALUES (?, ?, ?, ?, ?, ?)`
		f := snap.Fx
		if _, err := s.db.ExecContext(ctx, q, f.Date, f.Currency, f.SpotBuy, f.SpotSell, f.CashBuy, f.CashSell); err != nil {
			return fmt.Errorf("store fx: %w", err)
		}
	}

	if s.l != nil {
		s.l.Info("clickhouse store_snapshot ok",
			applogger.String("date", snap.Date.Format("2006-01-02")),
			applogger.Int("flows", len(snap.Flows)),
			applogger.Int("futures", len(snap.Futures)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHMarketStore) storeFlows(ctx context.Context, flows []models.InstitutionalFlow) error {
	if len(flows) == 0 {
		return nil
	}
	const chunkSize = 2000
	for lo := 0; lo < len(flows); lo += chunkSize {
		hi := lo + chunkSize
		if hi > len(flows) {
			hi = len(flows)
		}
		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*13)
		for _, f := range flows[lo:hi] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, f.Date, f.Symbol, f.Name,
				f.ForeignBuy, f.ForeignSell, f.ForeignNet,
				f.TrustBuy, f.TrustSell, f.TrustNet,
				f.DealerBuy, f.DealerSell, f.DealerNet,
				f.TotalNet)
		}
		q := "INSERT INTO inst_flows (date, symbol, name, foreign_buy, foreign_sell, foreign_net, trust_buy, trust_sell, trust_net, dealer_buy, dealer_sell, dealer_net, total_net) VALUES " + strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store flows: %w", err)
		}
	}
	return nil
}

func (s *CHMarketStore) storeSummary(ctx context.Context, rows []models.InstitutionalSummary) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*5)
	for _, r := range rows {
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, r.Date, r.Category, r.BuyAmount, r.SellAmount, r.NetAmount)
	}
	q := "INSERT INTO inst_summary (date, category, buy_amount, sell_amount, net_amount) VALUES " + strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	return nil
}

func (s *CHMarketStore) storeFutures(ctx context.Context, rows []models.FuturesOI) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*8)
	for _, r := range rows {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, r.Date, r.Contract, r.Category, r.LongOI, r.ShortOI, r.NetOI, r.LongOIValue, r.ShortOIValue)
	}
	q := "INSERT INTO futures_oi (date, contract, category, long_oi, short_oi, net_oi, long_oi_value, short_oi_value) VALUES " + strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store futures: %w", err)
	}
	return nil
}

func (s *CHMarketStore) Flows(ctx context.Context, date time.Time) ([]models.InstitutionalFlow, error) {
	const q = `
        SELECT date, symbol, name, foreign_buy, foreign_sell, foreign_net,
               trust_buy, trust_sell, trust_net, dealer_buy, dealer_sell, dealer_net, total_net
        FROM inst_flows FINAL
        WHERE date = ?
        ORDER BY symbol ASC
    `
	rows, err := s.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, fmt.Errorf("get flows: %w", err)
	}
	defer rows.Close()

	out := make([]models.InstitutionalFlow, 0, 1024)
	for rows.Next() {
		var f models.InstitutionalFlow
		if err := rows.Scan(&f.Date, &f.Symbol, &f.Name,
			&f.ForeignBuy, &f.ForeignSell, &f.ForeignNet,
			&f.TrustBuy, &f.TrustSell, &f.TrustNet,
			&f.DealerBuy, &f.DealerSell, &f.DealerNet,
			&f.TotalNet); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *CHMarketStore) Summary(ctx context.Context, date time.Time) ([]models.InstitutionalSummary, error) {
	const q = `
        SELECT date, category, buy_amount, sell_amount, net_amount
        FROM inst_summary FINAL
        WHERE date = ?
        ORDER BY category ASC
    `
	rows, err := s.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	defer rows.Close()

	out := make([]models.InstitutionalSummary, 0, 8)
	for rows.Next() {
		var r models.InstitutionalSummary
		if err := rows.Scan(&r.Date, &r.Category, &r.BuyAmount, &r.SellAmount, &r.NetAmount); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *CHMarketStore) Turnover(ctx context.Context, from, to time.Time) ([]models.MarketTurnover, error) {
	const q = `
        SELECT date, trade_volume, trade_value, transaction, index, change
        FROM market_turnover FINAL
        WHERE date >= ? AND date <= ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("get turnover: %w", err)
	}
	defer rows.Close()

	out := make([]models.MarketTurnover, 0, 32)
	for rows.Next() {
		var t models.MarketTurnover
		if err := rows.Scan(&t.Date, &t.TradeVolume, &t.TradeValue, &t.Transaction, &t.Index, &t.Change); err != nil {
			return nil, fmt.Errorf("scan turnover: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *CHMarketStore) FuturesOI(ctx context.Context, date time.Time) ([]models.FuturesOI, error) {
	const q = `
        SELECT date, contract, category, long_oi, short_oi, net_oi, long_oi_value, short_oi_value
        FROM futures_oi FINAL
        WHERE date = ?
        ORDER BY contract, category ASC
    `
	rows, err := s.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, fmt.Errorf("get futures oi: %w", err)
	}
	defer rows.Close()

	out := make([]models.FuturesOI, 0, 16)
	for rows.Next() {
		var r models.FuturesOI
		if err := rows.Scan(&r.Date, &r.Contract, &r.Category, &r.LongOI, &r.ShortOI, &r.NetOI, &r.LongOIValue, &r.ShortOIValue); err != nil {
			return nil, fmt.Errorf("scan futures oi: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Fx returns the USD quote recorded for the session, or the most recent
// one at or before it.
func (s *CHMarketStore) Fx(ctx context.Context, date time.Time) (*models.FxRate, error) {
	const q = `
        SELECT date, currency, spot_buy, spot_sell, cash_buy, cash_sell
        FROM fx_rates FINAL
        WHERE currency = 'USD' AND date <= ?
        ORDER BY date DESC
        LIMIT 1
    `
	var f models.FxRate
	err := s.db.QueryRowContext(ctx, q, date).Scan(&f.Date, &f.Currency, &f.SpotBuy, &f.SpotSell, &f.CashBuy, &f.CashSell)
	if err == sql.ErrNoRows {
		return nil, domrepo.ErrDataUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("get fx: %w", err)
	}
	return &f, nil
}

// LatestSessionDate reports the most recent session with flow data, or
// ErrDataUnavailable when nothing has been ingested yet.
func (s *CHMarketStore) LatestSessionDate(ctx context.Context) (time.Time, error) {
	const q = `SELECT max(date) FROM inst_flows`
	var d time.Time
	if err := s.db.QueryRowContext(ctx, q).Scan(&d); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, domrepo.ErrDataUnavailable
		}
		return time.Time{}, fmt.Errorf("latest session: %w", err)
	}
	if d.IsZero() || d.Year() < 1971 {
		return time.Time{}, domrepo.ErrDataUnavailable
	}
	return d, nil
}

func (s *CHMarketStore) Close() error {
	return nil // Managed by pkg
}
