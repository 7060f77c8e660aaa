package indicator

import (
	"math"
	"testing"
	"time"

	"TwQuant/internal/domain/models"
)

func setBars(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{Symbol: "2330", Date: day.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

func TestComputeNamedSeries(t *testing.T) {
	bars := setBars([]float64{2, 4, 6, 8, 10})
	set, err := Compute(bars, []string{"sma_3", "bb_3_1", "kd_3", "macd_2_3_2"})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	sma := set["sma_3"]
	if len(sma) != 5 || !math.IsNaN(sma[1]) || sma[2] != 4 || sma[4] != 8 {
		t.Fatalf("sma_3 = %v", sma)
	}
	for _, key := range []string{"bb_3_1_upper", "bb_3_1_middle", "bb_3_1_lower", "kd_3_k", "kd_3_d", "macd_2_3_2", "macd_2_3_2_signal", "macd_2_3_2_hist"} {
		series, ok := set[key]
		if !ok {
			t.Fatalf("missing series %q", key)
		}
		if len(series) != len(bars) {
			t.Fatalf("series %q length %d", key, len(series))
		}
	}
}

func TestComputeDefaults(t *testing.T) {
	set, err := Compute(setBars(make([]float64, 3)), nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if _, ok := set["rsi_14"]; !ok {
		t.Fatalf("default set missing rsi_14: %v", set)
	}
}

func TestComputeRejectsUnknown(t *testing.T) {
	for _, name := range []string{"vwap_3", "sma", "sma_zero", "bb_20", "rsi_0"} {
		if _, err := Compute(setBars([]float64{1, 2, 3}), []string{name}); err == nil {
			t.Fatalf("name %q accepted", name)
		}
	}
}
