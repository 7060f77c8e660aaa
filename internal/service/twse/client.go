// Package twse fetches Taiwan market data: TWSE daily-report JSON
// endpoints, the TAIFEX futures CSV download, and the Bank of Taiwan
// exchange-rate CSV. All endpoints are unauthenticated but rate-limited
// and reject the default Go user agent.
package twse

import (
	"context"
	"fmt"
	"time"

	"TwQuant/internal/domain/models"
	domrepo "TwQuant/internal/domain/repository"
	pkghttp "TwQuant/pkg/http"
	applogger "TwQuant/pkg/logger"
	"TwQuant/pkg/util"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Config holds the upstream endpoints and retry policy.
type Config struct {
	BaseURL    string
	TaifexURL  string
	FxURL      string
	Timeout    time.Duration
	RetryMax   int
	RetryDelay time.Duration
}

// Client implements HistorySource against the public exchange endpoints.
type Client struct {
	http      *pkghttp.Client
	baseURL   string
	taifexURL string
	fxURL     string
	l         *applogger.Logger
}

func New(cfg Config) *Client {
	return &Client{
		http: pkghttp.NewClient(
			pkghttp.WithTimeout(cfg.Timeout),
			pkghttp.WithRetry(cfg.RetryMax, cfg.RetryDelay),
			pkghttp.WithUserAgent(defaultUserAgent),
		),
		baseURL:   cfg.BaseURL,
		taifexURL: cfg.TaifexURL,
		fxURL:     cfg.FxURL,
	}
}

// SetLogger injects a structured logger.
func (c *Client) SetLogger(l *applogger.Logger) { c.l = l }

// dailyReport is the envelope every TWSE rwd JSON endpoint shares.
// Rows are string matrices ordered by the fields header; numbers carry
// thousands separators and "--" placeholders.
type dailyReport struct {
	Stat   string     `json:"stat"`
	Date   string     `json:"date"`
	Title  string     `json:"title"`
	Total  int        `json:"total"`
	Fields []string   `json:"fields"`
	Data   [][]string `json:"data"`
}

func (r *dailyReport) ok() bool {
	return r.Stat == "OK" && len(r.Data) > 0
}

func (c *Client) fetchReport(ctx context.Context, url string, query map[string][]string) (*dailyReport, error) {
	var report dailyReport
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         url,
		QueryParams: query,
	}, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// MonthlyBars fetches the STOCK_DAY report: every daily OHLCV bar of
// the month containing the given date. Suspended sessions publish "--"
// prices and are skipped.
func (c *Client) MonthlyBars(ctx context.Context, symbol string, month time.Time) ([]models.Bar, error) {
	start := time.Now()
	report, err := c.fetchReport(ctx, c.baseURL+"/rwd/zh/afterTrading/STOCK_DAY", map[string][]string{
		"date":     {util.TWSEDate(month)},
		"stockNo":  {symbol},
		"response": {"json"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch monthly bars %s: %w", symbol, err)
	}
	if !report.ok() {
		return nil, domrepo.ErrDataUnavailable
	}

	bars := make([]models.Bar, 0, len(report.Data))
	for _, row := range report.Data {
		b, ok := barFromRow(symbol, row)
		if !ok {
			continue
		}
		bars = append(bars, b)
	}
	if c.l != nil {
		c.l.Info("twse monthly_bars ok",
			applogger.String("symbol", symbol),
			applogger.String("month", util.ROCMonth(month)),
			applogger.Int("rows", len(bars)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return bars, nil
}

// STOCK_DAY row layout: date(ROC), volume, value, open, high, low,
// close, change, transactions.
func barFromRow(symbol string, row []string) (models.Bar, bool) {
	if len(row) < 7 {
		return models.Bar{}, false
	}
	date, err := util.ParseROCDate(row[0])
	if err != nil {
		return models.Bar{}, false
	}
	b := models.Bar{
		Symbol: symbol,
		Date:   date,
		Volume: util.ParseTWSEInt(row[1]),
		Open:   util.ParseTWSEFloat(row[3]),
		High:   util.ParseTWSEFloat(row[4]),
		Low:    util.ParseTWSEFloat(row[5]),
		Close:  util.ParseTWSEFloat(row[6]),
	}
	if b.Validate() != nil {
		return models.Bar{}, false
	}
	return b, true
}

// InstitutionalFlows fetches the T86 per-stock three-institutional
// breakdown for one session.
func (c *Client) InstitutionalFlows(ctx context.Context, date time.Time) ([]models.InstitutionalFlow, error) {
	report, err := c.fetchReport(ctx, c.baseURL+"/rwd/zh/fund/T86", map[string][]string{
		"date":       {util.TWSEDate(date)},
		"selectType": {"ALL"},
		"response":   {"json"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch flows: %w", err)
	}
	if !report.ok() || report.Total == 0 {
		return nil, domrepo.ErrDataUnavailable
	}

	flows := make([]models.InstitutionalFlow, 0, len(report.Data))
	for _, row := range report.Data {
		f, ok := flowFromRow(date, row)
		if !ok {
			continue
		}
		flows = append(flows, f)
	}
	return flows, nil
}

// T86 row layout (selectType=ALL): symbol, name, foreign buy/sell/net
// (ex dealer), foreign-dealer buy/sell/net, trust buy/sell/net, dealer
// net, dealer self buy/sell/net, dealer hedge buy/sell/net, total net.
func flowFromRow(date time.Time, row []string) (models.InstitutionalFlow, bool) {
	if len(row) < 19 {
		return models.InstitutionalFlow{}, false
	}
	f := models.InstitutionalFlow{
		Date:        date,
		Symbol:      util.CleanNumber(row[0]),
		Name:        row[1],
		ForeignBuy:  util.ParseTWSEInt(row[2]),
		ForeignSell: util.ParseTWSEInt(row[3]),
		ForeignNet:  util.ParseTWSEInt(row[4]),
		TrustBuy:    util.ParseTWSEInt(row[8]),
		TrustSell:   util.ParseTWSEInt(row[9]),
		TrustNet:    util.ParseTWSEInt(row[10]),
		DealerNet:   util.ParseTWSEInt(row[11]),
		DealerBuy:   util.ParseTWSEInt(row[12]) + util.ParseTWSEInt(row[15]),
		DealerSell:  util.ParseTWSEInt(row[13]) + util.ParseTWSEInt(row[16]),
		TotalNet:    util.ParseTWSEInt(row[18]),
	}
	if f.Symbol == "" {
		return models.InstitutionalFlow{}, false
	}
	return f, true
}

// InstitutionalSummary fetches the BFI82U market-wide totals. The
// endpoint always serves the latest published session; the requested
// date is recorded on the rows.
func (c *Client) InstitutionalSummary(ctx context.Context, date time.Time) ([]models.InstitutionalSummary, error) {
	report, err := c.fetchReport(ctx, c.baseURL+"/rwd/zh/fund/BFI82U", map[string][]string{
		"response": {"json"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch summary: %w", err)
	}
	if !report.ok() {
		return nil, domrepo.ErrDataUnavailable
	}

	rows := make([]models.InstitutionalSummary, 0, len(report.Data))
	for _, row := range report.Data {
		if len(row) < 4 {
			continue
		}
		rows = append(rows, models.InstitutionalSummary{
			Date:       date,
			Category:   row[0],
			BuyAmount:  util.ParseTWSEInt(row[1]),
			SellAmount: util.ParseTWSEInt(row[2]),
			NetAmount:  util.ParseTWSEInt(row[3]),
		})
	}
	return rows, nil
}

// Turnover fetches FMTQIK and picks the row for the requested session.
// The report covers the whole month, so a missing row means the session
// has not been published yet.
func (c *Client) Turnover(ctx context.Context, date time.Time) (*models.MarketTurnover, error) {
	report, err := c.fetchReport(ctx, c.baseURL+"/rwd/zh/afterTrading/FMTQIK", map[string][]string{
		"date":     {util.TWSEDate(date)},
		"response": {"json"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch turnover: %w", err)
	}
	if !report.ok() {
		return nil, domrepo.ErrDataUnavailable
	}

	want := date.Format("2006-01-02")
	for _, row := range report.Data {
		if len(row) < 6 {
			continue
		}
		d, err := util.ParseROCDate(row[0])
		if err != nil || d.Format("2006-01-02") != want {
			continue
		}
		return &models.MarketTurnover{
			Date:        d,
			TradeVolume: util.ParseTWSEInt(row[1]),
			TradeValue:  util.ParseTWSEInt(row[2]),
			Transaction: util.ParseTWSEInt(row[3]),
			Index:       util.ParseTWSEFloat(row[4]),
			Change:      util.ParseTWSEFloat(row[5]),
		}, nil
	}
	return nil, domrepo.ErrDataUnavailable
}
