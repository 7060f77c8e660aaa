package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"TwQuant/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordRowsIngested(backend, dataset string, n int) {}
func (nopMetrics) RecordError(kind string)                           {}
func (nopMetrics) RecordLastClose(symbol string, price float64)      {}
func (nopMetrics) RecordLatency(op string, seconds float64)          {}
func (nopMetrics) RecordBacktest(strategy, outcome string)           {}
func (nopMetrics) RecordCacheEvent(op, result string)                {}

func snapshot(date time.Time) *models.DailySnapshot {
	return &models.DailySnapshot{
		Date:  date,
		Flows: []models.InstitutionalFlow{{Date: date, Symbol: "2330", ForeignNet: 1000}},
	}
}

func TestProcessSuppressesDuplicates(t *testing.T) {
	var stored int
	sink := SinkFunc(func(ctx context.Context, s *models.DailySnapshot) error {
		stored++
		return nil
	})
	p := NewSnapshotPipeline(sink, nopMetrics{})

	day := time.Date(2023, 6, 28, 0, 0, 0, 0, time.UTC)
	if err := p.Process(context.Background(), snapshot(day)); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if err := p.Process(context.Background(), snapshot(day)); err != nil {
		t.Fatalf("duplicate process: %v", err)
	}
	if stored != 1 {
		t.Fatalf("stored = %d, want 1", stored)
	}

	// A different session is not a duplicate.
	if err := p.Process(context.Background(), snapshot(day.AddDate(0, 0, 1))); err != nil {
		t.Fatalf("next session: %v", err)
	}
	if stored != 2 {
		t.Fatalf("stored = %d, want 2", stored)
	}
}

func TestProcessRejectsBadSnapshots(t *testing.T) {
	sink := SinkFunc(func(ctx context.Context, s *models.DailySnapshot) error { return nil })
	p := NewSnapshotPipeline(sink, nopMetrics{})

	cases := []*models.DailySnapshot{
		nil,
		{},
		{Date: time.Date(2023, 6, 28, 0, 0, 0, 0, time.UTC)},
	}
	for i, s := range cases {
		if err := p.Process(context.Background(), s); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestProcessBuffersOnStoreError(t *testing.T) {
	fail := true
	var stored int
	sink := SinkFunc(func(ctx context.Context, s *models.DailySnapshot) error {
		if fail {
			return errors.New("clickhouse down")
		}
		stored++
		return nil
	})
	p := NewSnapshotPipeline(sink, nopMetrics{}, WithBufferSize(4))

	day := time.Date(2023, 6, 28, 0, 0, 0, 0, time.UTC)
	if err := p.Process(context.Background(), snapshot(day)); err == nil {
		t.Fatalf("expected store error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("buffer depth = %d, want 1", len(p.bufCh))
	}

	// The failed session is not remembered as stored, so an immediate
	// retry from the caller goes through.
	fail = false
	if err := p.Process(context.Background(), snapshot(day)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if stored != 1 {
		t.Fatalf("stored = %d, want 1", stored)
	}
}
