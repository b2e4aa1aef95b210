package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actiontag/internal/constants"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Kafka(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
broker:
  type: kafka
  kafka:
    brokers: ["localhost:9092"]
    group_id: actiontag
    retry:
      max_attempts: 5
      initial_interval: 500ms
logging:
  level: debug
classification:
  filter: 'action != "quiet"'
  fallback:
    on_error: deny
store:
  sink:
    dir: /tmp/out
    overwrite: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout())
	assert.Equal(t, []string{"localhost:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, constants.DefaultInputTopic, cfg.Broker.Kafka.InputTopic)
	assert.Equal(t, constants.DefaultOutputTopic, cfg.Broker.Kafka.OutputTopic)
	assert.Equal(t, 5, cfg.Broker.Kafka.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Broker.Kafka.Retry.InitialInterval)
	assert.Equal(t, 2.0, cfg.Broker.Kafka.Retry.Multiplier)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, `action != "quiet"`, cfg.Classification.Filter)
	assert.Equal(t, constants.FallbackDeny, cfg.Classification.Fallback.OnError)
	assert.Equal(t, constants.SinkTypeFile, cfg.Store.Sink.Type)
	assert.Equal(t, "/tmp/out", cfg.Store.Sink.Dir)
	assert.True(t, cfg.Store.Sink.Overwrite)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
broker:
  type: kafka
  kafka:
    brokers: ["localhost:9092"]
    group_id: actiontag
`)
	t.Setenv("BROKER_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidBroker(t *testing.T) {
	path := writeConfig(t, `
broker:
  type: nats
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker.type")
}

func TestDefaults(t *testing.T) {
	cfg, err := Defaults()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Empty(t, cfg.Broker.Type)
	assert.Equal(t, ".", cfg.Store.SourceDir)
	assert.Equal(t, constants.LastSeenBackendMemory, cfg.LastSeen.Backend)
	assert.Equal(t, constants.FallbackError, cfg.Classification.Fallback.OnError)
}
