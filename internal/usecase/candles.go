package usecase

import (
	"context"
	"fmt"
	"time"

	"TwQuant/internal/domain/models"
	domrepo "TwQuant/internal/domain/repository"
	"TwQuant/internal/indicator"
)

// CandlesUseCase serves daily bars with indicator overlays.
type CandlesUseCase struct {
	store domrepo.BarStore
}

func NewCandlesUseCase(store domrepo.BarStore) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

type GetCandlesParams struct {
	Symbol     string
	From       time.Time
	To         time.Time
	N          int
	Indicators []string
}

type GetCandlesResult struct {
	Symbol     string               `json:"symbol"`
	From       time.Time            `json:"from"`
	To         time.Time            `json:"to"`
	Count      int                  `json:"count"`
	Bars       []models.Bar         `json:"bars"`
	Indicators map[string][]float64 `json:"indicators"`
}

// GetCandles loads bars for the range, or the latest N when no range is
// given, and computes the requested indicator series over them.
func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.N <= 0 {
		p.N = 120
	}
	if p.N > 5000 {
		p.N = 5000
	}

	var bars []models.Bar
	var err error
	if p.From.IsZero() && p.To.IsZero() {
		bars, err = uc.store.LatestBars(ctx, p.Symbol, p.N)
	} else {
		if p.From.After(p.To) {
			return nil, fmt.Errorf("from must be <= to")
		}
		bars, err = uc.store.Bars(ctx, p.Symbol, p.From, p.To)
	}
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, domrepo.ErrDataUnavailable
	}

	set, err := indicator.Compute(bars, p.Indicators)
	if err != nil {
		return nil, err
	}

	return &GetCandlesResult{
		Symbol:     p.Symbol,
		From:       bars[0].Date,
		To:         bars[len(bars)-1].Date,
		Count:      len(bars),
		Bars:       bars,
		Indicators: set,
	}, nil
}
