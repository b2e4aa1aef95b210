package broker

import (
	"context"
	stderrors "errors"
	"time"

	"actiontag/internal/config"
	"actiontag/internal/logger"
	"actiontag/pkg/errors"
	"actiontag/pkg/metrics"
	"actiontag/pkg/models"
	"actiontag/pkg/retry"
)

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      cfg.Multiplier,
		MaxElapsedTime:  cfg.MaxElapsedTime,
	}.Merge(retry.DefaultPolicy())
}

// handleWithRetry runs handler under policy, turning panics into errors.
// Permanent errors such as TYPE_MISMATCH are not retried.
func handleWithRetry(ctx context.Context, log logger.Logger, policy retry.Policy, serviceName, topic string, envelope models.MessageEnvelope, handler HandlerFunc) error {
	return retry.RetryWithCallback(ctx, policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				log.ErrorwCtx(ctx, "Panic recovered during message processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, envelope)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(serviceName, topic).Inc()
		log.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}

// dlqEnvelope annotates a failed envelope with why and where it failed.
func dlqEnvelope(envelope models.MessageEnvelope, cause error, sourceTopic string) models.MessageEnvelope {
	extra := make(map[string]interface{}, len(envelope.Metadata.Extra)+4)
	for k, v := range envelope.Metadata.Extra {
		extra[k] = v
	}
	envelope.Metadata.Extra = extra

	envelope.SetExtra("dlq_reason", cause.Error())
	envelope.SetExtra("dlq_error_code", errors.Code(cause))
	envelope.SetExtra("dlq_source_topic", sourceTopic)
	envelope.SetExtra("dlq_timestamp", time.Now().UTC())
	return envelope
}

func dlqReason(err error) string {
	var retryable retry.RetryableError
	if stderrors.As(err, &retryable) && !retryable.IsRetryable() {
		return "permanent_error"
	}
	return "max_retries_exceeded"
}
