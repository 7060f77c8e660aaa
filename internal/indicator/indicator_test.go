package indicator

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := SMA(values, 3)

	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("warmup positions should be NaN: %v", got)
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if !almostEqual(got[i+2], w) {
			t.Fatalf("sma[%d] = %v, want %v", i+2, got[i+2], w)
		}
	}
}

func TestSMAShortSeries(t *testing.T) {
	got := SMA([]float64{1, 2}, 5)
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Fatalf("position %d should be NaN", i)
		}
	}
}

func TestEMASeedAndSmoothing(t *testing.T) {
	values := []float64{2, 4, 6, 8, 10}
	got := EMA(values, 3)

	// seed = SMA(2,4,6) = 4, alpha = 0.5
	if !almostEqual(got[2], 4) {
		t.Fatalf("seed = %v, want 4", got[2])
	}
	if !almostEqual(got[3], 6) { // 0.5*8 + 0.5*4
		t.Fatalf("ema[3] = %v, want 6", got[3])
	}
	if !almostEqual(got[4], 8) { // 0.5*10 + 0.5*6
		t.Fatalf("ema[4] = %v, want 8", got[4])
	}
}

func TestRSIAllGains(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7}
	got := RSI(values, 3)
	if !math.IsNaN(got[2]) {
		t.Fatalf("rsi[2] should be NaN")
	}
	if !almostEqual(got[3], 100) {
		t.Fatalf("rsi with only gains = %v, want 100", got[3])
	}
}

func TestRSIFlatSeries(t *testing.T) {
	// Zero average loss resolves to 100, never a division error.
	values := []float64{5, 5, 5, 5, 5, 5}
	got := RSI(values, 3)
	if !almostEqual(got[5], 100) {
		t.Fatalf("flat series rsi = %v, want 100", got[5])
	}
}

func TestRSIRollingWindow(t *testing.T) {
	values := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83}
	got := RSI(values, 6)
	// window deltas: +0.34 -0.25 +0.06 -0.54 +0.72 +0.50
	// avg gain = 1.62/6, avg loss = 0.79/6
	want := 100 - 100/(1+1.62/0.79)
	if !almostEqual(got[6], want) {
		t.Fatalf("rsi = %v, want %v", got[6], want)
	}
}

func TestMACDCrossZero(t *testing.T) {
	// Rising series: MACD line should end positive and histogram defined.
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	macd, sig, hist := MACD(values, 12, 26, 9)

	last := len(values) - 1
	if math.IsNaN(macd[last]) || math.IsNaN(sig[last]) || math.IsNaN(hist[last]) {
		t.Fatalf("tail values should be defined")
	}
	if macd[last] <= 0 {
		t.Fatalf("macd on rising series = %v, want > 0", macd[last])
	}
	if !almostEqual(hist[last], macd[last]-sig[last]) {
		t.Fatalf("histogram mismatch")
	}
	if !math.IsNaN(macd[24]) {
		t.Fatalf("macd before slow warmup should be NaN")
	}
}

func TestBollingerBands(t *testing.T) {
	values := []float64{2, 2, 2, 2, 2}
	upper, middle, lower := Bollinger(values, 5, 2)

	// Constant series: zero deviation, all bands collapse to the mean.
	if !almostEqual(upper[4], 2) || !almostEqual(middle[4], 2) || !almostEqual(lower[4], 2) {
		t.Fatalf("constant series bands: %v %v %v", upper[4], middle[4], lower[4])
	}

	values = []float64{1, 2, 3, 4, 5}
	upper, middle, lower = Bollinger(values, 5, 2)
	if !almostEqual(middle[4], 3) {
		t.Fatalf("middle = %v, want 3", middle[4])
	}
	sd := math.Sqrt(2) // population stddev of 1..5
	if !almostEqual(upper[4], 3+2*sd) || !almostEqual(lower[4], 3-2*sd) {
		t.Fatalf("bands: %v %v", upper[4], lower[4])
	}
}

func TestStochastic(t *testing.T) {
	highs := []float64{10, 11, 12, 13, 14}
	lows := []float64{8, 9, 10, 11, 12}
	closes := []float64{11, 10, 11, 12, 14}

	k, d := Stochastic(highs, lows, closes, 3, 3)
	if !math.IsNaN(k[3]) {
		t.Fatalf("k before smoothing warmup should be NaN")
	}
	// RSV: 75 (11 vs 8..12), 75 (12 vs 9..13), 100 (14 is the period high)
	if !almostEqual(k[4], (75.0+75.0+100.0)/3) {
		t.Fatalf("k[4] = %v", k[4])
	}
	// D needs three K observations; none available yet.
	for i := range d {
		if !math.IsNaN(d[i]) {
			t.Fatalf("d[%d] should be NaN", i)
		}
	}
}

func TestStochasticZeroRange(t *testing.T) {
	flat := []float64{5, 5, 5, 5, 5}
	k, _ := Stochastic(flat, flat, flat, 3, 1)
	// Zero high-low range resolves RSV to 50.
	if !almostEqual(k[2], 50) {
		t.Fatalf("k on flat series = %v, want 50", k[2])
	}
}
