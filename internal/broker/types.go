// Package broker moves message envelopes over Kafka or RabbitMQ.
package broker

import (
	"context"

	"actiontag/pkg/models"
)

// Producer publishes to a topic. For RabbitMQ the topic is the routing key
// on the configured exchange.
type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

// Consumer blocks in Consume until ctx is done, calling handler for every
// decoded envelope.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error
