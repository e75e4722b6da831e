package producer

import (
	"context"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/teerapatch/line-webhook/internal/config"
)

// Producer publishes raw webhook deliveries to the audit topic.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	producer := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)

	return &Producer{
		Client:   producer,
		strategy: s,
	}
}

// Produce sends one raw delivery payload to Kafka. The destination id
// is used as the message key for partitioning.
func (p *Producer) Produce(ctx context.Context, destination string, payload []byte) error {
	if err := p.Client.SendWithRetry(ctx, p.strategy, []byte(destination), payload); err != nil {
		return fmt.Errorf("failed to publish audit event: %v", err)
	}

	return nil
}
