package repository

import (
	"context"

	"TwQuant/internal/domain/models"
	"TwQuant/internal/domain/repository"
	pkgkafka "TwQuant/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Snapshots are keyed by
// session date so a re-ingested session lands on the same partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishSnapshot(ctx context.Context, s *models.DailySnapshot) error {
	key := []byte(s.Date.Format("2006-01-02"))
	return p.producer.Publish(ctx, p.topic, key, s)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
