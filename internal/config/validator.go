package config

import (
	"fmt"

	"actiontag/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateClassification(cfg.Classification); err != nil {
		errors = append(errors, err)
	}

	if err := validateStore(cfg.Store, cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateLastSeen(cfg.LastSeen, cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "":
		return nil
	case constants.BrokerTypeKafka:
		return validateKafka(cfg.Kafka)
	case constants.BrokerTypeRabbitMQ:
		return validateRabbitMQ(cfg.RabbitMQ)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka, rabbitmq)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.InputTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.input_topic",
			Message: "input topic is required",
		}
	}

	return validateRetry("broker.kafka.retry", cfg.Retry)
}

func validateRabbitMQ(cfg RabbitMQConfig) error {
	if cfg.URL == "" {
		return &ValidationError{
			Field:   "broker.rabbitmq.url",
			Message: "RabbitMQ URL is required",
		}
	}

	if cfg.Exchange == "" {
		return &ValidationError{
			Field:   "broker.rabbitmq.exchange",
			Message: "exchange is required",
		}
	}

	if cfg.InputQueue == "" {
		return &ValidationError{
			Field:   "broker.rabbitmq.input_queue",
			Message: "input queue is required",
		}
	}

	if cfg.Prefetch < 0 {
		return &ValidationError{
			Field:   "broker.rabbitmq.prefetch",
			Message: "prefetch must be non-negative",
		}
	}

	return validateRetry("broker.rabbitmq.retry", cfg.Retry)
}

func validateRetry(prefix string, cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{
			Field:   prefix + ".max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.InitialInterval < 0 {
		return &ValidationError{
			Field:   prefix + ".initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.MaxInterval < 0 {
		return &ValidationError{
			Field:   prefix + ".max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   prefix + ".max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{
			Field:   prefix + ".multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateClassification(cfg ClassificationConfig) error {
	switch cfg.Fallback.OnError {
	case "", constants.FallbackAllow, constants.FallbackDeny, constants.FallbackError:
		return nil
	default:
		return &ValidationError{
			Field:   "classification.fallback.on_error",
			Message: fmt.Sprintf("must be one of allow, deny, error, got %q", cfg.Fallback.OnError),
		}
	}
}

func validateStore(cfg StoreConfig, db DatabaseConfig) error {
	switch cfg.Sink.Type {
	case constants.SinkTypeFile:
		if cfg.Sink.Dir == "" {
			return &ValidationError{
				Field:   "store.sink.dir",
				Message: "sink directory is required for file sink",
			}
		}
	case constants.SinkTypeMongoDB:
		if db.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "database.mongodb.uri",
				Message: "MongoDB URI is required for mongodb sink",
			}
		}
	default:
		return &ValidationError{
			Field:   "store.sink.type",
			Message: fmt.Sprintf("unknown sink type: %s (supported: file, mongodb)", cfg.Sink.Type),
		}
	}

	return nil
}

func validateLastSeen(cfg LastSeenConfig, db DatabaseConfig) error {
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Backend {
	case constants.LastSeenBackendMemory:
	case constants.LastSeenBackendRedis:
		if db.Redis.Host == "" {
			return &ValidationError{
				Field:   "database.redis.host",
				Message: "Redis host is required for redis last_seen backend",
			}
		}
	default:
		return &ValidationError{
			Field:   "last_seen.backend",
			Message: fmt.Sprintf("unknown backend: %s (supported: memory, redis)", cfg.Backend),
		}
	}

	if cfg.TTLSeconds < 0 {
		return &ValidationError{
			Field:   "last_seen.ttl_seconds",
			Message: "ttl must be non-negative",
		}
	}

	return nil
}
