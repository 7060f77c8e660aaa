package indicator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"TwQuant/internal/domain/models"
)

// ErrBadName reports an indicator name the grammar cannot parse.
var ErrBadName = errors.New("bad indicator name")

// Set holds named indicator series aligned with the source bars.
type Set map[string][]float64

// DefaultNames is the series the candles API serves when the request
// does not name any.
var DefaultNames = []string{"sma_5", "sma_20", "ema_12", "rsi_14", "macd_12_26_9", "bb_20_2", "kd_9"}

// Compute evaluates the named indicators over bars. Names encode the
// parameters: sma_N, ema_N, rsi_N, macd_F_S_G, bb_N_K, kd_N. Compound
// indicators emit one entry per line (macd/signal/hist, upper/middle/
// lower, k/d) suffixed onto the request name.
func Compute(bars []models.Bar, names []string) (Set, error) {
	if len(names) == 0 {
		names = DefaultNames
	}
	closes := models.Closes(bars)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}

	set := make(Set, len(names))
	for _, name := range names {
		kind, args, err := splitName(name)
		if err != nil {
			return nil, err
		}
		switch kind {
		case "sma":
			p, err := intArgs(name, args, 1)
			if err != nil {
				return nil, err
			}
			set[name] = SMA(closes, p[0])
		case "ema":
			p, err := intArgs(name, args, 1)
			if err != nil {
				return nil, err
			}
			set[name] = EMA(closes, p[0])
		case "rsi":
			p, err := intArgs(name, args, 1)
			if err != nil {
				return nil, err
			}
			set[name] = RSI(closes, p[0])
		case "macd":
			p, err := intArgs(name, args, 3)
			if err != nil {
				return nil, err
			}
			macd, sig, hist := MACD(closes, p[0], p[1], p[2])
			set[name] = macd
			set[name+"_signal"] = sig
			set[name+"_hist"] = hist
		case "bb":
			if len(args) != 2 {
				return nil, fmt.Errorf("indicator %q: want period and multiplier: %w", name, ErrBadName)
			}
			period, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, fmt.Errorf("indicator %q: bad period: %w", name, ErrBadName)
			}
			mult, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return nil, fmt.Errorf("indicator %q: bad multiplier: %w", name, ErrBadName)
			}
			upper, middle, lower := Bollinger(closes, period, mult)
			set[name+"_upper"] = upper
			set[name+"_middle"] = middle
			set[name+"_lower"] = lower
		case "kd":
			p, err := intArgs(name, args, 1)
			if err != nil {
				return nil, err
			}
			k, d := Stochastic(highs, lows, closes, p[0], 3)
			set[name+"_k"] = k
			set[name+"_d"] = d
		default:
			return nil, fmt.Errorf("unknown indicator %q: %w", name, ErrBadName)
		}
	}
	return set, nil
}

func splitName(name string) (kind string, args []string, err error) {
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return "", nil, fmt.Errorf("indicator %q: want name_params: %w", name, ErrBadName)
	}
	return parts[0], parts[1:], nil
}

func intArgs(name string, args []string, want int) ([]int, error) {
	if len(args) != want {
		return nil, fmt.Errorf("indicator %q: want %d parameters: %w", name, want, ErrBadName)
	}
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("indicator %q: bad parameter %q: %w", name, a, ErrBadName)
		}
		out[i] = v
	}
	return out, nil
}
