package usecase

import (
	"context"
	"sort"
	"time"

	"TwQuant/internal/domain/models"
	domrepo "TwQuant/internal/domain/repository"
	pkgcache "TwQuant/pkg/cache"
	applogger "TwQuant/pkg/logger"
	"TwQuant/pkg/util"
)

// Institution selects which net-buy column a ranking reads.
type Institution string

const (
	InstitutionForeign Institution = "foreign"
	InstitutionTrust   Institution = "trust"
)

// MarketUseCase serves the daily market datasets: institutional
// rankings, the common-buy join, summary, turnover and futures OI.
// Published sessions never change, so responses cache aggressively.
type MarketUseCase struct {
	store    domrepo.MarketStore
	cache    pkgcache.Service
	metrics  domrepo.Metrics
	l        *applogger.Logger
	cacheTTL time.Duration
}

func NewMarketUseCase(store domrepo.MarketStore, cache pkgcache.Service, metrics domrepo.Metrics, l *applogger.Logger, cacheTTL time.Duration) *MarketUseCase {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &MarketUseCase{
		store:    store,
		cache:    cache,
		metrics:  metrics,
		l:        l,
		cacheTTL: cacheTTL,
	}
}

// ResolveSession maps a requested date to the session actually served.
// A zero date means the latest ingested session.
func (uc *MarketUseCase) ResolveSession(ctx context.Context, date time.Time) (time.Time, error) {
	if !date.IsZero() {
		return date, nil
	}
	latest, err := uc.store.LatestSessionDate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return latest, nil
}

// TopNetBuy returns the top-N buy and sell lists for one institution on
// one session. Stocks with zero net are excluded from both lists.
func (uc *MarketUseCase) TopNetBuy(ctx context.Context, inst Institution, date time.Time, n int) (buy, sell []models.NetBuyRank, session time.Time, err error) {
	session, err = uc.ResolveSession(ctx, date)
	if err != nil {
		return nil, nil, time.Time{}, err
	}

	key := pkgcache.GenerateKeyWithParams("market:top_net_buy", string(inst), session.Format("2006-01-02"), n)
	var cached struct {
		Buy  []models.NetBuyRank `json:"buy"`
		Sell []models.NetBuyRank `json:"sell"`
	}
	if uc.cacheGet(ctx, key, &cached) {
		return cached.Buy, cached.Sell, session, nil
	}

	flows, err := uc.store.Flows(ctx, session)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	if len(flows) == 0 {
		return nil, nil, time.Time{}, domrepo.ErrDataUnavailable
	}

	buy, sell = rankFlows(flows, inst, n)
	cached.Buy, cached.Sell = buy, sell
	uc.cacheSet(ctx, key, &cached)
	return buy, sell, session, nil
}

func rankFlows(flows []models.InstitutionalFlow, inst Institution, n int) (buy, sell []models.NetBuyRank) {
	type row struct {
		symbol string
		name   string
		net    int64
	}
	rows := make([]row, 0, len(flows))
	for _, f := range flows {
		net := f.ForeignNet
		if inst == InstitutionTrust {
			net = f.TrustNet
		}
		if net == 0 {
			continue
		}
		rows = append(rows, row{symbol: f.Symbol, name: f.Name, net: net})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].net > rows[j].net })
	for i := 0; i < len(rows) && i < n; i++ {
		if rows[i].net <= 0 {
			break
		}
		buy = append(buy, models.NetBuyRank{Rank: i + 1, Symbol: rows[i].symbol, Name: rows[i].name, Net: rows[i].net})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].net < rows[j].net })
	for i := 0; i < len(rows) && i < n; i++ {
		if rows[i].net >= 0 {
			break
		}
		sell = append(sell, models.NetBuyRank{Rank: i + 1, Symbol: rows[i].symbol, Name: rows[i].name, Net: rows[i].net})
	}
	return buy, sell
}

// CommonBuy joins foreign and trust flows and keeps stocks both bought
// net-positive, sorted by trust net descending.
func (uc *MarketUseCase) CommonBuy(ctx context.Context, date time.Time) ([]models.CommonBuy, time.Time, error) {
	session, err := uc.ResolveSession(ctx, date)
	if err != nil {
		return nil, time.Time{}, err
	}

	key := pkgcache.GenerateKeyWithParams("market:common_buy", session.Format("2006-01-02"))
	var cached []models.CommonBuy
	if uc.cacheGet(ctx, key, &cached) {
		return cached, session, nil
	}

	flows, err := uc.store.Flows(ctx, session)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(flows) == 0 {
		return nil, time.Time{}, domrepo.ErrDataUnavailable
	}

	out := make([]models.CommonBuy, 0, 64)
	for _, f := range flows {
		if f.ForeignNet < 0 || f.TrustNet < 0 || (f.ForeignNet == 0 && f.TrustNet == 0) {
			continue
		}
		out = append(out, models.CommonBuy{
			Symbol:     f.Symbol,
			Name:       f.Name,
			ForeignNet: f.ForeignNet,
			TrustNet:   f.TrustNet,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrustNet > out[j].TrustNet })

	uc.cacheSet(ctx, key, out)
	return out, session, nil
}

// Summary returns the BFI82U market-wide totals for the session.
func (uc *MarketUseCase) Summary(ctx context.Context, date time.Time) ([]models.InstitutionalSummary, time.Time, error) {
	session, err := uc.ResolveSession(ctx, date)
	if err != nil {
		return nil, time.Time{}, err
	}
	rows, err := uc.store.Summary(ctx, session)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(rows) == 0 {
		return nil, time.Time{}, domrepo.ErrDataUnavailable
	}
	return rows, session, nil
}

// Turnover returns market totals for the trailing window ending at the
// session.
func (uc *MarketUseCase) Turnover(ctx context.Context, date time.Time, days int) ([]models.MarketTurnover, error) {
	session, err := uc.ResolveSession(ctx, date)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 30
	}
	rows, err := uc.store.Turnover(ctx, session.AddDate(0, 0, -days), session)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domrepo.ErrDataUnavailable
	}
	return rows, nil
}

// FuturesOI returns the TX institutional open interest for the session.
func (uc *MarketUseCase) FuturesOI(ctx context.Context, date time.Time) ([]models.FuturesOI, time.Time, error) {
	session, err := uc.ResolveSession(ctx, date)
	if err != nil {
		return nil, time.Time{}, err
	}
	rows, err := uc.store.FuturesOI(ctx, session)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(rows) == 0 {
		return nil, time.Time{}, domrepo.ErrDataUnavailable
	}
	return rows, session, nil
}

// Fx returns the USD/TWD quote at or before the session.
func (uc *MarketUseCase) Fx(ctx context.Context, date time.Time) (*models.FxRate, error) {
	if date.IsZero() {
		date = util.TradingDay(time.Now().In(util.Taipei))
	}
	return uc.store.Fx(ctx, date)
}

func (uc *MarketUseCase) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if uc.cache == nil {
		return false
	}
	if err := uc.cache.Get(ctx, key, dest); err != nil {
		uc.metrics.RecordCacheEvent("market_get", "miss")
		return false
	}
	uc.metrics.RecordCacheEvent("market_get", "hit")
	return true
}

func (uc *MarketUseCase) cacheSet(ctx context.Context, key string, value interface{}) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Set(ctx, key, value, uc.cacheTTL); err != nil && uc.l != nil {
		uc.l.Warn("market cache set failed", applogger.String("key", key), applogger.Error(err))
	}
}
