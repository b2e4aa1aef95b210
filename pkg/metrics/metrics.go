package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ClassifiedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classified_documents_total",
			Help: "Total number of documents classified, by resulting action (count)",
		},
		[]string{"action", "origin"},
	)

	ClassificationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classification_errors_total",
			Help: "Total number of documents that could not be classified (count)",
		},
		[]string{"code", "origin"},
	)

	ClassificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classification_duration_ms",
			Help:    "Time spent classifying and filtering a document in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"action"},
	)

	ClassificationFilteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classification_filtered_total",
			Help: "Total number of classified documents dropped by the output filter (count)",
		},
		[]string{"action"},
	)

	ClassificationRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "classification_rules",
			Help: "Number of rules in the active classification table (count)",
		},
	)

	SinkWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_writes_total",
			Help: "Total number of annotated documents written to a sink (count)",
		},
		[]string{"sink", "status"},
	)

	LastSeenWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "last_seen_writes_total",
			Help: "Total number of last-seen document updates (count)",
		},
		[]string{"backend", "status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	BrokerMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_read_total",
			Help: "Total number of messages read from the broker (count)",
		},
		[]string{"broker", "topic"},
	)

	BrokerMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_written_total",
			Help: "Total number of messages written to the broker (count)",
		},
		[]string{"broker", "topic"},
	)

	BrokerWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broker_write_duration_ms",
			Help:    "Duration of writing messages to the broker in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"broker", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)
)

var (
	classificationOnce sync.Once
	brokerOnce         sync.Once
	circuitBreakerOnce sync.Once
	apiOnce            sync.Once
)

func RegisterClassificationMetrics() {
	classificationOnce.Do(func() {
		prometheus.MustRegister(ClassifiedDocumentsTotal)
		prometheus.MustRegister(ClassificationErrorsTotal)
		prometheus.MustRegister(ClassificationDuration)
		prometheus.MustRegister(ClassificationFilteredTotal)
		prometheus.MustRegister(ClassificationRules)
		prometheus.MustRegister(SinkWritesTotal)
		prometheus.MustRegister(LastSeenWritesTotal)
		prometheus.MustRegister(FallbackUsageTotal)
	})
}

func RegisterBrokerMetrics() {
	brokerOnce.Do(func() {
		prometheus.MustRegister(RetryAttemptsTotal)
		prometheus.MustRegister(DLQMessagesTotal)
		prometheus.MustRegister(BrokerMessagesReadTotal)
		prometheus.MustRegister(BrokerMessagesWrittenTotal)
		prometheus.MustRegister(BrokerWriteDuration)
	})
}

func RegisterCircuitBreakerMetrics() {
	circuitBreakerOnce.Do(func() {
		prometheus.MustRegister(CircuitBreakerState)
		prometheus.MustRegister(CircuitBreakerRequests)
		prometheus.MustRegister(CircuitBreakerFailures)
	})
}

func RegisterAPIMetrics() {
	apiOnce.Do(func() {
		prometheus.MustRegister(RateLimitRequestsTotal)
	})
}

func ObserveClassification(action, origin string, duration time.Duration) {
	ClassifiedDocumentsTotal.WithLabelValues(action, origin).Inc()
	ClassificationDuration.WithLabelValues(action).Observe(float64(duration.Microseconds()) / 1000)
}

func IncClassified(action, origin string) {
	ClassifiedDocumentsTotal.WithLabelValues(action, origin).Inc()
}

func IncClassificationError(code, origin string) {
	ClassificationErrorsTotal.WithLabelValues(code, origin).Inc()
}

func SetClassificationRules(count int) {
	ClassificationRules.Set(float64(count))
}

func IncSinkWrite(sink, status string) {
	SinkWritesTotal.WithLabelValues(sink, status).Inc()
}

func IncLastSeenWrite(backend, status string) {
	LastSeenWritesTotal.WithLabelValues(backend, status).Inc()
}

func IncBrokerMessagesRead(broker, topic string) {
	BrokerMessagesReadTotal.WithLabelValues(broker, topic).Inc()
}

func ObserveBrokerWrite(broker, topic string, duration time.Duration) {
	BrokerMessagesWrittenTotal.WithLabelValues(broker, topic).Inc()
	BrokerWriteDuration.WithLabelValues(broker, topic).Observe(float64(duration.Milliseconds()))
}
