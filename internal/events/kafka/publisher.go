// Package kafka publishes account events to a Kafka broker.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/cardbank/ledger/internal/interfaces"
)

// Publisher writes JSON-encoded events. The topic comes from the Publish
// call, so one writer serves all event kinds.
type Publisher struct {
	writer *kafka.Writer
}

var _ interfaces.EventPublisher = (*Publisher)(nil)

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Publisher) Publish(topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
