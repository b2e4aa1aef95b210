//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actiontag/internal/broker"
	"actiontag/internal/classification"
	"actiontag/internal/config"
	"actiontag/internal/constants"
	"actiontag/pkg/models"
)

// runPipeline consumes input, classifies and republishes to output, and
// returns the envelopes seen on output.
func runPipeline(t *testing.T, ctx context.Context, producer broker.Producer, consumer broker.Consumer, outConsumer broker.Consumer, input, output string, send []models.MessageEnvelope) []models.MessageEnvelope {
	t.Helper()

	svc, err := classification.NewService(nil, config.ClassificationConfig{}, nil, createTestLogger())
	require.NoError(t, err)

	go consumer.Consume(ctx, input, func(ctx context.Context, msg models.MessageEnvelope) error {
		_, forward, err := svc.Classify(ctx, &msg)
		if err != nil || !forward {
			return err
		}
		return producer.Publish(ctx, output, msg)
	})

	received := make(chan models.MessageEnvelope, len(send))
	go outConsumer.Consume(ctx, output, func(_ context.Context, msg models.MessageEnvelope) error {
		received <- msg
		return nil
	})

	// give consumers time to join and bind before publishing
	time.Sleep(2 * time.Second)

	for _, msg := range send {
		require.NoError(t, producer.Publish(ctx, input, msg))
	}

	out := make([]models.MessageEnvelope, 0, len(send))
	timeout := time.After(receiveTimeout)
	for len(out) < len(send) {
		select {
		case msg := <-received:
			out = append(out, msg)
		case <-timeout:
			t.Fatalf("received %d of %d messages", len(out), len(send))
		}
	}
	return out
}

func actionsByID(msgs []models.MessageEnvelope) map[string]interface{} {
	out := make(map[string]interface{}, len(msgs))
	for _, msg := range msgs {
		out[msg.ID] = msg.Payload["action"]
	}
	return out
}

func TestKafkaPipeline(t *testing.T) {
	infra := SetupTestInfra(t, InfraOptions{Kafka: true})
	CreateKafkaTopics(t, infra.KafkaBrokers, "raw_documents", "classified_documents")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.KafkaConfig{Brokers: infra.KafkaBrokers, GroupID: "actiontag-test", Retry: fastRetry()}
	outCfg := cfg
	outCfg.GroupID = "actiontag-test-out"

	producer := broker.NewKafkaProducer(cfg, createTestLogger())
	consumer := broker.NewKafkaConsumer(cfg, createTestLogger())
	outConsumer := broker.NewKafkaConsumer(outCfg, createTestLogger())
	defer producer.Close()

	got := runPipeline(t, ctx, producer, consumer, outConsumer, "raw_documents", "classified_documents", []models.MessageEnvelope{
		createTestMessage("k-1", messageDocument()),
		createTestMessage("k-2", joinDocument()),
		createTestMessage("k-3", map[string]interface{}{"x": 1}),
	})

	assert.Equal(t, map[string]interface{}{
		"k-1": "messageSent",
		"k-2": "userJoin",
		"k-3": "quiet",
	}, actionsByID(got))

	cancel()
	consumer.Close()
	outConsumer.Close()
}

func TestRabbitMQPipeline(t *testing.T) {
	infra := SetupTestInfra(t, InfraOptions{RabbitMQ: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.RabbitMQConfig{
		URL:         infra.RabbitMQURL,
		Exchange:    constants.DefaultExchange,
		InputQueue:  "actiontag.test.in",
		DialRetries: 5,
		Retry:       fastRetry(),
	}
	outCfg := cfg
	outCfg.InputQueue = "actiontag.test.out"

	producer, err := broker.NewRabbitMQProducer(ctx, cfg, createTestLogger())
	require.NoError(t, err)
	defer producer.Close()

	consumer, err := broker.NewRabbitMQConsumer(ctx, cfg, createTestLogger())
	require.NoError(t, err)
	outConsumer, err := broker.NewRabbitMQConsumer(ctx, outCfg, createTestLogger())
	require.NoError(t, err)

	got := runPipeline(t, ctx, producer, consumer, outConsumer, "documents.raw", "documents.classified", []models.MessageEnvelope{
		createTestMessage("r-1", joinDocument()),
		createTestMessage("r-2", messageDocument()),
	})

	assert.Equal(t, map[string]interface{}{
		"r-1": "userJoin",
		"r-2": "messageSent",
	}, actionsByID(got))

	for _, msg := range got {
		require.NotNil(t, msg.Metadata.Classification)
	}

	cancel()
	consumer.Close()
	outConsumer.Close()
}
