// Package bootstrap holds the wiring shared by the serve command.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"actiontag/internal/broker"
	"actiontag/internal/config"
	"actiontag/internal/logger"
	"actiontag/pkg/metrics"
)

// Base owns the broker side of the service. Producer and Consumer stay nil
// when no broker is configured.
type Base struct {
	Config      *config.Config
	Logger      logger.Logger
	Producer    broker.Producer
	Consumer    broker.Consumer
	InputTopic  string
	OutputTopic string
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// BrokerEnabled reports whether a broker type is configured. Without one
// the service only answers HTTP.
func (b *Base) BrokerEnabled() bool {
	return b.Config.Broker.Type != ""
}

// InitBroker connects producer and consumer and resolves the topics they
// use. It does nothing when no broker is configured.
func (b *Base) InitBroker(ctx context.Context, serviceName string) error {
	if !b.BrokerEnabled() {
		return nil
	}
	metrics.RegisterBrokerMetrics()

	producer, err := broker.NewProducer(ctx, b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}

	consumer, err := broker.NewConsumer(ctx, b.Config.Broker, b.Logger)
	if err != nil {
		producer.Close()
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	if serviceName != "" {
		consumer.SetServiceName(serviceName)
	}

	b.Producer = producer
	b.Consumer = consumer
	b.InputTopic, b.OutputTopic = broker.Topics(b.Config.Broker)
	return nil
}

// ShutdownBroker closes the consumer first; in-flight handlers still need
// the producer.
func (b *Base) ShutdownBroker() error {
	var errs []error

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	errs := []error{b.ShutdownBroker()}
	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown errors: %w", err)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
