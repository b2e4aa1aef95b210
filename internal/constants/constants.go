package constants

import "time"

const (
	ServiceName = "actiontag"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	RabbitHandlerTimeout = 10 * time.Second
	RabbitMaxDialDelay   = 60 * time.Second
)

const (
	DefaultInputTopic  = "raw_documents"
	DefaultOutputTopic = "classified_documents"
	DefaultExchange    = "actiontag"
	DefaultInputQueue  = "actiontag.classify"
)

const (
	DefaultMongoDBName     = "actiontag"
	DefaultMongoCollection = "documents"
)

const (
	DatabaseConnectTimeout = 10 * time.Second
	DatabasePingAttempts   = 3
)

const (
	ShutdownTimeout    = 5 * time.Second
	HealthCheckTimeout = 5 * time.Second
)

const (
	MaxRequestBodyBytes = 1 << 20
)

const (
	CacheKeyLastSeen          = "actiontag:last_seen"
	DefaultLastSeenTTLSeconds = 3600
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
	FallbackError = "error"
)

const (
	SinkTypeFile    = "file"
	SinkTypeMongoDB = "mongodb"
)

const (
	LastSeenBackendMemory = "memory"
	LastSeenBackendRedis  = "redis"
)

const (
	BrokerTypeKafka    = "kafka"
	BrokerTypeRabbitMQ = "rabbitmq"
)

const (
	DocumentFileExt = ".json"
)
