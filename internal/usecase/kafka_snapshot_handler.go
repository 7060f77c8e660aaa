package usecase

import (
	"context"
	"encoding/json"
	"time"

	"TwQuant/internal/domain/models"
	domrepo "TwQuant/internal/domain/repository"
	"TwQuant/internal/middleware"
	pkgkafka "TwQuant/pkg/kafka"
)

// KafkaSnapshotHandler consumes daily snapshots and writes them to the
// ClickHouse stores through the snapshot pipeline, which buffers and
// retries when ClickHouse is unavailable.
type KafkaSnapshotHandler struct {
	topic       string
	barStore    domrepo.BarStore
	marketStore domrepo.MarketStore
	metrics     domrepo.Metrics
	pipe        *middleware.SnapshotPipeline
}

func NewKafkaSnapshotHandler(topic string, barStore domrepo.BarStore, marketStore domrepo.MarketStore, metrics domrepo.Metrics, opts ...middleware.PipelineOption) *KafkaSnapshotHandler {
	h := &KafkaSnapshotHandler{topic: topic, barStore: barStore, marketStore: marketStore, metrics: metrics}
	h.pipe = middleware.NewSnapshotPipeline(middleware.SinkFunc(h.store), metrics, opts...)
	return h
}

func (h *KafkaSnapshotHandler) Topic() string { return h.topic }

// Start launches the pipeline's retry flusher.
func (h *KafkaSnapshotHandler) Start(ctx context.Context) { h.pipe.Start(ctx) }

// Stop stops the pipeline.
func (h *KafkaSnapshotHandler) Stop() { h.pipe.Stop() }

func (h *KafkaSnapshotHandler) Handle(ctx context.Context, b []byte) error {
	var snap models.DailySnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	return h.pipe.Process(ctx, &snap)
}

func (h *KafkaSnapshotHandler) store(ctx context.Context, snap *models.DailySnapshot) error {
	start := time.Now()
	if err := h.marketStore.StoreSnapshot(ctx, snap); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	if len(snap.Bars) > 0 {
		if err := h.barStore.StoreBars(ctx, snap.Bars); err != nil {
			h.metrics.RecordError("consumer_store")
			return err
		}
	}
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	h.metrics.RecordRowsIngested("clickhouse", "flows", len(snap.Flows))
	h.metrics.RecordRowsIngested("clickhouse", "bars", len(snap.Bars))
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotHandler)(nil)
