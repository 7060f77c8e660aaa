// Package export writes ingested bars and backtest results to Parquet
// files on disk for offline analysis.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"TwQuant/internal/domain/models"
)

// Exporter writes Parquet files under a data directory.
// Layout:
//
//	<Dir>/bars/<SYMBOL>/<YYYY>.parquet
//	<Dir>/backtests/<SYMBOL>/<strategy>-<YYYYMMDD>.parquet
type Exporter struct {
	Dir string
}

func New(dir string) *Exporter {
	return &Exporter{Dir: dir}
}

// barRecord is the on-disk schema for daily bars.
type barRecord struct {
	Symbol string  `parquet:"symbol"`
	Date   int64   `parquet:"date,timestamp(millisecond)"`
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume int64   `parquet:"volume"`
}

// tradeRecord is the on-disk schema for one backtest trade event.
type tradeRecord struct {
	Date      int64   `parquet:"date,timestamp(millisecond)"`
	Kind      string  `parquet:"kind"`
	Price     float64 `parquet:"price"`
	Shares    int64   `parquet:"shares"`
	Gross     float64 `parquet:"gross_value"`
	Fee       float64 `parquet:"fee"`
	Tax       float64 `parquet:"tax"`
	NetProfit float64 `parquet:"net_profit"`
}

// WriteBars appends bars to the per-symbol year files, deduplicating by
// date so re-exporting a month is idempotent.
func (e *Exporter) WriteBars(bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]barRecord)
	for _, b := range bars {
		k := key{symbol: b.Symbol, year: b.Date.Year()}
		groups[k] = append(groups[k], barRecord{
			Symbol: b.Symbol,
			Date:   b.Date.UnixMilli(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}

	for k, records := range groups {
		path := e.barPath(k.symbol, k.year)
		existing, _ := readParquetFile[barRecord](path)
		merged := mergeBarRecords(existing, records)
		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars loads exported bars for symbol within [from, to].
func (e *Exporter) ReadBars(symbol string, from, to time.Time) ([]models.Bar, error) {
	var bars []models.Bar
	for year := from.Year(); year <= to.Year(); year++ {
		records, err := readParquetFile[barRecord](e.barPath(symbol, year))
		if err != nil {
			// No file for this year.
			continue
		}
		for _, r := range records {
			d := time.UnixMilli(r.Date).UTC()
			if d.Before(from) || d.After(to) {
				continue
			}
			bars = append(bars, models.Bar{
				Symbol: r.Symbol,
				Date:   d,
				Open:   r.Open,
				High:   r.High,
				Low:    r.Low,
				Close:  r.Close,
				Volume: r.Volume,
			})
		}
	}
	return bars, nil
}

// WriteReport exports a backtest's trade log. The file is keyed by
// symbol, strategy and run date, so repeated runs overwrite.
func (e *Exporter) WriteReport(report *models.Report, runDate time.Time) (string, error) {
	records := make([]tradeRecord, 0, len(report.Trades))
	for _, t := range report.Trades {
		records = append(records, tradeRecord{
			Date:      t.Date.UnixMilli(),
			Kind:      string(t.Kind),
			Price:     t.Price,
			Shares:    t.Shares,
			Gross:     t.GrossValue,
			Fee:       t.Fee,
			Tax:       t.Tax,
			NetProfit: t.NetProfit,
		})
	}

	name := fmt.Sprintf("%s-%s.parquet", report.Strategy, runDate.Format("20060102"))
	path := filepath.Join(e.Dir, "backtests", report.Symbol, name)
	if err := writeParquetFile(path, records); err != nil {
		return "", fmt.Errorf("writing report %s/%s: %w", report.Symbol, report.Strategy, err)
	}
	return path, nil
}

func (e *Exporter) barPath(symbol string, year int) string {
	return filepath.Join(e.Dir, "bars", symbol, fmt.Sprintf("%d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeBarRecords deduplicates by (symbol, date), preferring incoming
// records, and returns rows sorted by date.
func mergeBarRecords(existing, incoming []barRecord) []barRecord {
	type key struct {
		symbol string
		date   int64
	}
	seen := make(map[key]barRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Date}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Date}] = r
	}

	merged := make([]barRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date < merged[j].Date
	})
	return merged
}
