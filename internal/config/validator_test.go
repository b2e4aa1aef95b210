package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"actiontag/internal/constants"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, ReadTimeoutSeconds: 5, WriteTimeoutSeconds: 5},
		Store: StoreConfig{
			Sink: SinkConfig{Type: constants.SinkTypeFile, Dir: "."},
		},
	}
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:      "bad port",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantField: "server.port",
		},
		{
			name: "kafka without group",
			mutate: func(c *Config) {
				c.Broker.Type = constants.BrokerTypeKafka
				c.Broker.Kafka = KafkaConfig{Brokers: []string{"k:9092"}, InputTopic: "in", Retry: RetryConfig{Multiplier: 2}}
			},
			wantField: "broker.kafka.group_id",
		},
		{
			name: "kafka retry intervals inverted",
			mutate: func(c *Config) {
				c.Broker.Type = constants.BrokerTypeKafka
				c.Broker.Kafka = KafkaConfig{
					Brokers:    []string{"k:9092"},
					GroupID:    "g",
					InputTopic: "in",
					Retry:      RetryConfig{Multiplier: 2, InitialInterval: time.Second, MaxInterval: time.Millisecond},
				}
			},
			wantField: "broker.kafka.retry.max_interval",
		},
		{
			name: "rabbitmq without url",
			mutate: func(c *Config) {
				c.Broker.Type = constants.BrokerTypeRabbitMQ
			},
			wantField: "broker.rabbitmq.url",
		},
		{
			name:      "bad fallback",
			mutate:    func(c *Config) { c.Classification.Fallback.OnError = "maybe" },
			wantField: "classification.fallback.on_error",
		},
		{
			name:      "mongodb sink without uri",
			mutate:    func(c *Config) { c.Store.Sink.Type = constants.SinkTypeMongoDB },
			wantField: "database.mongodb.uri",
		},
		{
			name: "redis last seen without host",
			mutate: func(c *Config) {
				c.LastSeen = LastSeenConfig{Enabled: true, Backend: constants.LastSeenBackendRedis}
			},
			wantField: "database.redis.host",
		},
		{
			name: "disabled last seen is not checked",
			mutate: func(c *Config) {
				c.LastSeen = LastSeenConfig{Backend: "bogus"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantField)
			}
		})
	}
}
