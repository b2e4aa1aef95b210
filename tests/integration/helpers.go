//go:build integration

package integration

import (
	"time"

	"actiontag/internal/config"
	"actiontag/internal/logger"
	"actiontag/pkg/models"
)

const receiveTimeout = 30 * time.Second

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func fastRetry() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:     2,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
		Multiplier:      2,
	}
}

func createTestMessage(id string, payload map[string]interface{}) models.MessageEnvelope {
	return *models.NewMessageEnvelopeBuilder().
		WithID(id).
		WithSource("integration-test").
		WithDocument(payload).
		Build()
}

func joinDocument() map[string]interface{} {
	return map[string]interface{}{"user": "U", "date": "D2", "System/planet": "Mars"}
}

func messageDocument() map[string]interface{} {
	return map[string]interface{}{"author": "A", "date": "D1", "System/planet": "Earth", "messageSent": "hi"}
}
