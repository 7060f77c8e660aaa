package strategy

import (
	"errors"
	"testing"
	"time"

	"TwQuant/internal/backtest"
	"TwQuant/internal/domain/models"
)

func barsFromCloses(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Symbol: "2330",
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New("momentum", nil)
	var cfgErr *backtest.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	s, err := New(MACrossID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mc := s.(*MACross)
	if mc.Short != 5 || mc.Long != 20 {
		t.Fatalf("defaults not applied: %+v", mc)
	}
}

func TestMACrossRejectsInvertedWindows(t *testing.T) {
	s := &MACross{Short: 20, Long: 10}
	var cfgErr *backtest.ConfigError
	if err := s.Validate(); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestMACrossSignals(t *testing.T) {
	// Falling then rising: short MA crosses above long MA once.
	closes := []float64{10, 9, 8, 7, 6, 5, 6, 8, 10, 12, 14}
	s := &MACross{Short: 2, Long: 3}
	actions := s.Signals(barsFromCloses(closes))

	var buys, sells int
	var buyIdx int
	for i, a := range actions {
		switch a {
		case backtest.Buy:
			buys++
			buyIdx = i
		case backtest.Sell:
			sells++
		}
	}
	if buys != 1 || sells != 0 {
		t.Fatalf("buys=%d sells=%d, want 1/0: %v", buys, sells, actions)
	}
	if buyIdx < s.Warmup()-1 {
		t.Fatalf("buy inside warmup at %d", buyIdx)
	}
}

func TestMACrossDeterministic(t *testing.T) {
	closes := []float64{10, 9, 8, 7, 6, 5, 6, 8, 10, 12, 14, 12, 10, 8}
	bars := barsFromCloses(closes)
	s := &MACross{Short: 2, Long: 3}

	a := s.Signals(bars)
	b := s.Signals(bars)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic signal at %d", i)
		}
	}
}

func TestRSIReversalFiresOncePerZoneVisit(t *testing.T) {
	// Down into oversold, rebound (one Buy), run into overbought,
	// fall back through (one Sell). No repeats while inside a zone.
	closes := []float64{100, 98, 96, 94, 95, 96, 97, 96}
	s := &RSIReversal{Period: 2, Oversold: 30, Overbought: 70}
	if err := s.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	actions := s.Signals(barsFromCloses(closes))

	var buys, sells []int
	for i, a := range actions {
		switch a {
		case backtest.Buy:
			buys = append(buys, i)
		case backtest.Sell:
			sells = append(sells, i)
		}
	}
	if len(buys) != 1 || buys[0] != 4 {
		t.Fatalf("buys = %v, want [4]", buys)
	}
	if len(sells) != 1 || sells[0] != 7 {
		t.Fatalf("sells = %v, want [7]", sells)
	}
}

func TestRSIReversalRejectsInvertedThresholds(t *testing.T) {
	s := &RSIReversal{Period: 14, Oversold: 70, Overbought: 30}
	var cfgErr *backtest.ConfigError
	if err := s.Validate(); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestMACDCrossRejectsInvertedSpans(t *testing.T) {
	s := &MACDCross{Fast: 26, Slow: 12, Signal: 9}
	var cfgErr *backtest.ConfigError
	if err := s.Validate(); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestMACDCrossHoldsDuringWarmup(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	s := &MACDCross{Fast: 3, Slow: 6, Signal: 3}
	actions := s.Signals(barsFromCloses(closes))

	for i := 0; i < s.Warmup(); i++ {
		if actions[i] != backtest.Hold {
			t.Fatalf("signal inside warmup at %d", i)
		}
	}
}

func TestBollingerBreakoutSignals(t *testing.T) {
	s := &BollingerBreakout{Period: 5, StdMult: 1}

	// Flat run then a sharp drop through the lower band: Buy.
	down := []float64{100, 100, 100, 100, 100, 99}
	actions := s.Signals(barsFromCloses(down))
	if actions[5] != backtest.Buy {
		t.Fatalf("drop through lower band should Buy: %v", actions)
	}

	// Flat run then a spike through the upper band: Sell.
	up := []float64{100, 100, 100, 100, 100, 101}
	actions = s.Signals(barsFromCloses(up))
	if actions[5] != backtest.Sell {
		t.Fatalf("spike through upper band should Sell: %v", actions)
	}
}

func TestForeignFlowVolumeRatio(t *testing.T) {
	bars := barsFromCloses([]float64{100, 100, 100, 100, 100})
	bars[3].Volume = 4000 // 4000 / avg(1000, 4000) = 1.6
	bars[4].Volume = 100  // 100 / avg(4000, 100) ≈ 0.05

	s := &ForeignFlow{Window: 2, BuyRatio: 1.5, SellRatio: 0.5}
	actions := s.Signals(bars)

	if actions[3] != backtest.Buy {
		t.Fatalf("volume surge should Buy: %v", actions)
	}
	if actions[4] != backtest.Sell {
		t.Fatalf("volume collapse should Sell: %v", actions)
	}
}
