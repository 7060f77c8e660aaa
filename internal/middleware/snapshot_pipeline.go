package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TwQuant/internal/domain/models"
	domrepo "TwQuant/internal/domain/repository"
)

// Sink is the minimal store interface the pipeline needs.
type Sink interface {
	Store(ctx context.Context, s *models.DailySnapshot) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, s *models.DailySnapshot) error

func (f SinkFunc) Store(ctx context.Context, s *models.DailySnapshot) error { return f(ctx, s) }

// SnapshotPipeline sits between the message consumer and ClickHouse.
// It validates snapshots, drops duplicate deliveries of the same
// session, and buffers when the store is unavailable.
type SnapshotPipeline struct {
	sink    Sink
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *models.DailySnapshot
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	// per-session last accepted time, for duplicate suppression
	lastSeen map[string]time.Time
	dedupFor time.Duration
}

type PipelineOption func(*SnapshotPipeline)

// WithBufferSize sets the temporary buffer size when the store is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithDedupWindow sets how long a session is considered a duplicate
// after a successful store. Zero disables duplicate suppression.
func WithDedupWindow(d time.Duration) PipelineOption {
	return func(p *SnapshotPipeline) { p.dedupFor = d }
}

// NewSnapshotPipeline creates a new pipeline.
func NewSnapshotPipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *SnapshotPipeline {
	p := &SnapshotPipeline{
		sink:     sink,
		metrics:  metrics,
		bufSize:  64,
		bufCh:    make(chan *models.DailySnapshot, 64),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
		dedupFor: time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.DailySnapshot, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered snapshots.
func (p *SnapshotPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case s := <-p.bufCh:
				if s == nil {
					continue
				}
				if err := p.sink.Store(ctx, s); err != nil {
					// exponential backoff with cap
					if backoff < 10*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- s:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *SnapshotPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and stores a snapshot, buffering on store errors.
// Re-deliveries of a session stored moments ago are dropped; the store
// is idempotent, so suppression only saves the round trip.
func (p *SnapshotPipeline) Process(ctx context.Context, s *models.DailySnapshot) error {
	start := time.Now()
	if err := validateSnapshot(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	session := s.Date.Format("2006-01-02")
	if p.duplicate(session, start) {
		p.metrics.RecordError("pipeline_duplicate")
		return nil
	}

	if err := p.sink.Store(ctx, s); err != nil {
		p.metrics.RecordError("pipeline_store")
		p.forget(session)
		// buffer non-blocking
		select {
		case p.bufCh <- s:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline store: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateSnapshot(s *models.DailySnapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot nil")
	}
	if s.Date.IsZero() {
		return fmt.Errorf("snapshot date zero")
	}
	if len(s.Flows) == 0 && len(s.Bars) == 0 {
		return fmt.Errorf("snapshot empty")
	}
	return nil
}

func (p *SnapshotPipeline) duplicate(session string, now time.Time) bool {
	if p.dedupFor <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.lastSeen[session]; ok && now.Sub(last) < p.dedupFor {
		return true
	}
	p.lastSeen[session] = now
	return false
}

func (p *SnapshotPipeline) forget(session string) {
	p.mu.Lock()
	delete(p.lastSeen, session)
	p.mu.Unlock()
}
