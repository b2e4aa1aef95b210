package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"actiontag/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.SetConfigFile(configFile)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return decode(v)
}

// Defaults returns the configuration used when no file is given.
func Defaults() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVariables(v)

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(v, &cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 10)
	v.SetDefault("server.write_timeout_seconds", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("classification.fallback.on_error", constants.FallbackError)

	v.SetDefault("store.source_dir", ".")
	v.SetDefault("store.sink.type", constants.SinkTypeFile)
	v.SetDefault("store.sink.dir", ".")

	v.SetDefault("last_seen.backend", constants.LastSeenBackendMemory)
	v.SetDefault("last_seen.ttl_seconds", constants.DefaultLastSeenTTLSeconds)

	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.mongodb.database", constants.DefaultMongoDBName)
	v.SetDefault("database.mongodb.collection", constants.DefaultMongoCollection)

	v.SetDefault("broker.kafka.input_topic", constants.DefaultInputTopic)
	v.SetDefault("broker.kafka.output_topic", constants.DefaultOutputTopic)
	v.SetDefault("broker.kafka.retry.multiplier", 2.0)
	v.SetDefault("broker.rabbitmq.exchange", constants.DefaultExchange)
	v.SetDefault("broker.rabbitmq.input_queue", constants.DefaultInputQueue)
	v.SetDefault("broker.rabbitmq.input_key", constants.DefaultInputTopic)
	v.SetDefault("broker.rabbitmq.output_key", constants.DefaultOutputTopic)
	v.SetDefault("broker.rabbitmq.prefetch", 10)
	v.SetDefault("broker.rabbitmq.dial_retries", 5)
	v.SetDefault("broker.rabbitmq.retry.multiplier", 2.0)

	v.SetDefault("rate_limit.rps", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.cleanup_interval", 300)
	v.SetDefault("rate_limit.max_age", 600)
}

func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("broker.type", "BROKER_TYPE")
	v.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	v.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	v.BindEnv("broker.kafka.input_topic", "BROKER_KAFKA_INPUT_TOPIC")
	v.BindEnv("broker.kafka.output_topic", "BROKER_KAFKA_OUTPUT_TOPIC")
	v.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")
	v.BindEnv("broker.rabbitmq.url", "BROKER_RABBITMQ_URL")

	v.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	v.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	v.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	v.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	v.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	v.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	v.BindEnv("store.source_dir", "STORE_SOURCE_DIR")
	v.BindEnv("store.sink.type", "STORE_SINK_TYPE")
	v.BindEnv("store.sink.dir", "STORE_SINK_DIR")
	v.BindEnv("store.sink.overwrite", "STORE_SINK_OVERWRITE")

	v.BindEnv("classification.filter", "CLASSIFICATION_FILTER")

	v.BindEnv("server.port", "SERVER_PORT")

	v.BindEnv("logging.level", "LOGGING_LEVEL")
	v.BindEnv("logging.format", "LOGGING_FORMAT")

	v.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	v.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

// Comma separated broker lists arrive from the environment as one string.
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if brokersEnv := v.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}
}
