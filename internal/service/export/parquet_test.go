package export

import (
	"testing"
	"time"

	"TwQuant/internal/domain/models"
)

func day(d int) time.Time {
	return time.Date(2023, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestWriteBarsMergeAndReadBack(t *testing.T) {
	e := New(t.TempDir())

	first := []models.Bar{
		{Symbol: "2330", Date: day(1), Open: 570, High: 575, Low: 568, Close: 571, Volume: 10000},
		{Symbol: "2330", Date: day(2), Open: 571, High: 578, Low: 570, Close: 575, Volume: 12000},
	}
	if err := e.WriteBars(first); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Overlapping re-export: day 2 corrected, day 3 appended.
	second := []models.Bar{
		{Symbol: "2330", Date: day(2), Open: 571, High: 578, Low: 570, Close: 576, Volume: 12000},
		{Symbol: "2330", Date: day(3), Open: 576, High: 580, Low: 574, Close: 579, Volume: 9000},
	}
	if err := e.WriteBars(second); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	bars, err := e.ReadBars("2330", day(1), day(3))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("bars = %d, want 3", len(bars))
	}
	if bars[1].Close != 576 {
		t.Fatalf("corrected close = %v, want 576", bars[1].Close)
	}
	if !bars[0].Date.Before(bars[1].Date) || !bars[1].Date.Before(bars[2].Date) {
		t.Fatalf("bars not sorted by date")
	}
}

func TestReadBarsRangeFilter(t *testing.T) {
	e := New(t.TempDir())
	bars := []models.Bar{
		{Symbol: "2317", Date: day(1), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		{Symbol: "2317", Date: day(2), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		{Symbol: "2317", Date: day(3), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
	}
	if err := e.WriteBars(bars); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := e.ReadBars("2317", day(2), day(2))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || !got[0].Date.Equal(day(2)) {
		t.Fatalf("got = %+v", got)
	}
}

func TestWriteReport(t *testing.T) {
	e := New(t.TempDir())
	report := &models.Report{
		Symbol:   "2330",
		Strategy: "ma_cross",
		Trades: []models.Trade{
			{Date: day(1), Kind: models.TradeBuy, Price: 100, Shares: 998, GrossValue: 99800, Fee: 142.215},
			{Date: day(5), Kind: models.TradeSell, Price: 110, Shares: 998, GrossValue: 109780, Fee: 156.4365, Tax: 329.34, NetProfit: 9494.2235},
		},
	}

	path, err := e.WriteReport(report, day(6))
	if err != nil {
		t.Fatalf("write report: %v", err)
	}

	records, err := readParquetFile[tradeRecord](path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[1].Kind != "sell" || records[1].NetProfit != 9494.2235 {
		t.Fatalf("exit record = %+v", records[1])
	}
}
