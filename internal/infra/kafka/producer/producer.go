// Package producer publishes image lifecycle events to Kafka. It is wired in
// only when eventing is enabled; the service treats a nil producer as "no
// events".
package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/image-hosting/internal/config"
	"github.com/aliskhannn/image-hosting/internal/model"
)

// Producer sends lifecycle events to a single topic.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
}

// New creates a Producer for the configured brokers and topic, retrying
// sends with strategy s.
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	return &Producer{
		Client:   wbfkafka.NewProducer(cfg.Brokers, cfg.Topic),
		strategy: s,
	}
}

// Produce serializes event to JSON and sends it, keyed by the image ID so
// events for one image stay ordered within a partition.
func (p *Producer) Produce(ctx context.Context, event model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := []byte(event.ImageID.String())

	if err := p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	return nil
}
