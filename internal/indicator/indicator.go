// Package indicator implements the technical indicators used by the
// trading strategies. All functions are pure: they take price series and
// return series of the same length, with math.NaN() filling the positions
// before the indicator has enough history.
package indicator

import "math"

// SMA computes the simple moving average over period.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average with alpha = 2/(period+1).
// The first period values seed the average with an SMA.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[period-1] = seed

	alpha := 2.0 / float64(period+1)
	prev := seed
	for i := period; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

// RSI computes the relative strength index over a rolling window of
// day-over-day deltas. A zero average loss yields 100, not an error.
func RSI(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	for i := period; i < len(values); i++ {
		var gains, losses float64
		for j := i - period + 1; j <= i; j++ {
			diff := values[j] - values[j-1]
			if diff > 0 {
				gains += diff
			} else {
				losses -= diff
			}
		}
		avgGain := gains / float64(period)
		avgLoss := losses / float64(period)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD computes the moving average convergence divergence line, its
// signal line, and the histogram.
func MACD(values []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	n := len(values)
	macd = nanSlice(n)
	sig = nanSlice(n)
	hist = nanSlice(n)
	if fast <= 0 || slow <= fast || signal <= 0 || n < slow {
		return macd, sig, hist
	}

	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	for i := slow - 1; i < n; i++ {
		macd[i] = emaFast[i] - emaSlow[i]
	}

	// Signal line is an EMA over the defined part of the MACD line.
	defined := macd[slow-1:]
	sigPart := EMA(defined, signal)
	for i, v := range sigPart {
		idx := slow - 1 + i
		sig[idx] = v
		if !math.IsNaN(v) {
			hist[idx] = macd[idx] - v
		}
	}
	return macd, sig, hist
}

// Bollinger computes the middle band (SMA) with upper/lower bands at
// stdMult population standard deviations.
func Bollinger(values []float64, period int, stdMult float64) (upper, middle, lower []float64) {
	n := len(values)
	upper = nanSlice(n)
	middle = SMA(values, period)
	lower = nanSlice(n)
	if period <= 0 || n < period {
		return upper, middle, lower
	}

	for i := period - 1; i < n; i++ {
		mean := middle[i]
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = mean + stdMult*sd
		lower[i] = mean - stdMult*sd
	}
	return upper, middle, lower
}

// Stochastic computes the KD oscillator. RSV compares the close against
// the rolling low/high range; K smooths RSV and D smooths K, both with a
// simple moving average. A zero range yields RSV 50.
func Stochastic(highs, lows, closes []float64, period, smoothing int) (k, d []float64) {
	n := len(closes)
	k = nanSlice(n)
	d = nanSlice(n)
	if period <= 0 || smoothing <= 0 || n < period || len(highs) != n || len(lows) != n {
		return k, d
	}

	rsv := nanSlice(n)
	for i := period - 1; i < n; i++ {
		hi, lo := highs[i], lows[i]
		for j := i - period + 1; j <= i; j++ {
			if highs[j] > hi {
				hi = highs[j]
			}
			if lows[j] < lo {
				lo = lows[j]
			}
		}
		if hi > lo {
			rsv[i] = (closes[i] - lo) / (hi - lo) * 100
		} else {
			rsv[i] = 50
		}
	}

	copyDefined(k, SMA(rsv[period-1:], smoothing), period-1)
	start := period - 1 + smoothing - 1
	if start < n {
		copyDefined(d, SMA(k[start:], smoothing), start)
	}
	return k, d
}

// copyDefined writes src into dst starting at offset.
func copyDefined(dst, src []float64, offset int) {
	for i, v := range src {
		dst[offset+i] = v
	}
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
