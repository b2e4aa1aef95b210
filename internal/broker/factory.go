package broker

import (
	"context"
	"fmt"

	"actiontag/internal/config"
	"actiontag/internal/constants"
	"actiontag/internal/logger"
)

func NewProducer(ctx context.Context, cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case constants.BrokerTypeKafka:
		return NewKafkaProducer(cfg.Kafka, log), nil
	case constants.BrokerTypeRabbitMQ:
		return NewRabbitMQProducer(ctx, cfg.RabbitMQ, log)
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

func NewConsumer(ctx context.Context, cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case constants.BrokerTypeKafka:
		return NewKafkaConsumer(cfg.Kafka, log), nil
	case constants.BrokerTypeRabbitMQ:
		return NewRabbitMQConsumer(ctx, cfg.RabbitMQ, log)
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

// Topics returns where documents are read from and where classified ones
// go. For RabbitMQ these are routing keys.
func Topics(cfg config.BrokerConfig) (input, output string) {
	switch cfg.Type {
	case constants.BrokerTypeRabbitMQ:
		return cfg.RabbitMQ.InputKey, cfg.RabbitMQ.OutputKey
	default:
		return cfg.Kafka.InputTopic, cfg.Kafka.OutputTopic
	}
}
