package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"TwQuant/internal/backtest"
	"TwQuant/internal/domain/models"
	domrepo "TwQuant/internal/domain/repository"
	"TwQuant/internal/strategy"
	applogger "TwQuant/pkg/logger"
	"TwQuant/pkg/queue"
)

// SweepMessageType routes sweep jobs through the Redis queue.
const SweepMessageType = "backtest.sweep"

// SweepUseCase runs parameter-grid sweeps: every combination is an
// independent backtest, fanned out over a bounded worker pool. Progress
// is kept for polling and broadcast to WebSocket subscribers.
type SweepUseCase struct {
	store   domrepo.BarStore
	queue   queue.QueueService
	hub     *SweepHub
	metrics domrepo.Metrics
	l       *applogger.Logger

	workers int
	timeout time.Duration

	mu       sync.RWMutex
	progress map[string]*models.SweepProgress
}

func NewSweepUseCase(store domrepo.BarStore, q queue.QueueService, hub *SweepHub, metrics domrepo.Metrics, l *applogger.Logger, workers int, timeout time.Duration) *SweepUseCase {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &SweepUseCase{
		store:    store,
		queue:    q,
		hub:      hub,
		metrics:  metrics,
		l:        l,
		workers:  workers,
		timeout:  timeout,
		progress: make(map[string]*models.SweepProgress),
	}
}

// Submit validates the request, queues the sweep and returns its id.
func (uc *SweepUseCase) Submit(ctx context.Context, req models.SweepRequest) (string, error) {
	combos := ExpandGrid(req.Grid)
	if len(combos) == 0 {
		return "", &backtest.ConfigError{Reason: "empty parameter grid"}
	}
	// Reject bad strategy ids before queuing; per-combination parameter
	// validation happens inside the sweep.
	if _, err := strategy.New(req.Strategy, nil); err != nil {
		return "", err
	}

	id := fmt.Sprintf("sweep-%d", time.Now().UnixNano())
	uc.setProgress(&models.SweepProgress{ID: id, Total: len(combos)})

	job := models.SweepJob{ID: id, Request: req}
	if err := uc.queue.PublishMessage(ctx, SweepMessageType, job); err != nil {
		uc.clearProgress(id)
		return "", fmt.Errorf("enqueue sweep: %w", err)
	}
	return id, nil
}

// Progress returns the last known state of a sweep.
func (uc *SweepUseCase) Progress(id string) (*models.SweepProgress, bool) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	p, ok := uc.progress[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// Execute runs a queued sweep to completion. Bars load once; every
// combination simulates over the same slice with private state.
func (uc *SweepUseCase) Execute(ctx context.Context, job models.SweepJob) error {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	req := job.Request
	from, to, err := resolveRange(req.From, req.To)
	if err != nil {
		return uc.fail(job.ID, err)
	}
	bars, err := uc.store.Bars(ctx, req.Symbol, from, to)
	if err != nil {
		return uc.fail(job.ID, fmt.Errorf("load bars %s: %w", req.Symbol, err))
	}
	if len(bars) == 0 {
		return uc.fail(job.ID, domrepo.ErrDataUnavailable)
	}

	cfg := backtest.Config{
		InitialCapital: req.InitialCapital,
		FeeRate:        req.FeeRate,
		TaxRate:        req.TaxRate,
	}

	combos := ExpandGrid(req.Grid)
	type result struct {
		report *models.Report
		err    error
	}

	jobs := make(chan map[string]float64)
	results := make(chan result)

	var wg sync.WaitGroup
	for w := 0; w < uc.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for params := range jobs {
				strat, err := strategy.New(req.Strategy, params)
				if err != nil {
					results <- result{err: err}
					continue
				}
				report, err := backtest.Run(bars, strat, cfg)
				results <- result{report: report, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, params := range combos {
			select {
			case <-ctx.Done():
				return
			case jobs <- params:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var best *models.Report
	done := 0
	for r := range results {
		done++
		if r.err != nil {
			// One bad combination does not sink the sweep.
			uc.metrics.RecordBacktest(req.Strategy, "sweep_error")
		} else {
			uc.metrics.RecordBacktest(req.Strategy, "sweep_ok")
			if best == nil || r.report.TotalReturn > best.TotalReturn {
				best = r.report
			}
		}
		uc.publish(&models.SweepProgress{
			ID:    job.ID,
			Done:  done,
			Total: len(combos),
			Best:  slim(best),
		})
	}

	if err := ctx.Err(); err != nil {
		return uc.fail(job.ID, err)
	}

	final := &models.SweepProgress{
		ID:        job.ID,
		Done:      done,
		Total:     len(combos),
		Best:      slim(best),
		Completed: true,
	}
	uc.publish(final)
	if uc.l != nil {
		uc.l.Info("sweep completed",
			applogger.String("id", job.ID),
			applogger.String("symbol", req.Symbol),
			applogger.String("strategy", req.Strategy),
			applogger.Int("combinations", len(combos)),
		)
	}
	return nil
}

func (uc *SweepUseCase) fail(id string, err error) error {
	uc.publish(&models.SweepProgress{ID: id, Completed: true, Error: err.Error()})
	return err
}

func (uc *SweepUseCase) publish(p *models.SweepProgress) {
	uc.setProgress(p)
	if uc.hub != nil {
		uc.hub.Publish(*p)
	}
}

func (uc *SweepUseCase) setProgress(p *models.SweepProgress) {
	uc.mu.Lock()
	uc.progress[p.ID] = p
	uc.mu.Unlock()
}

func (uc *SweepUseCase) clearProgress(id string) {
	uc.mu.Lock()
	delete(uc.progress, id)
	uc.mu.Unlock()
}

// slim strips the bulky per-bar data from a report carried in progress
// updates.
func slim(r *models.Report) *models.Report {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Trades = nil
	cp.Equity = nil
	return &cp
}

// ExpandGrid produces the cartesian product of the parameter grid in
// deterministic key order.
func ExpandGrid(grid map[string][]float64) []map[string]float64 {
	keys := make([]string, 0, len(grid))
	for k, vs := range grid {
		if len(vs) == 0 {
			return nil
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	combos := []map[string]float64{{}}
	for _, k := range keys {
		next := make([]map[string]float64, 0, len(combos)*len(grid[k]))
		for _, base := range combos {
			for _, v := range grid[k] {
				combo := make(map[string]float64, len(base)+1)
				for bk, bv := range base {
					combo[bk] = bv
				}
				combo[k] = v
				next = append(next, combo)
			}
		}
		combos = next
	}
	return combos
}

// SweepJobRunner adapts the sweep to the Redis queue's Job interface.
type SweepJobRunner struct {
	uc *SweepUseCase
}

func NewSweepJobRunner(uc *SweepUseCase) *SweepJobRunner {
	return &SweepJobRunner{uc: uc}
}

func (j *SweepJobRunner) Name() string { return "sweep_runner" }
func (j *SweepJobRunner) Type() string { return SweepMessageType }

func (j *SweepJobRunner) Handle(ctx context.Context, payload interface{}) error {
	job, err := queue.ParsePayload[models.SweepJob](payload)
	if err != nil {
		return fmt.Errorf("parse sweep job: %w", err)
	}
	return j.uc.Execute(ctx, *job)
}

var _ queue.Job = (*SweepJobRunner)(nil)
