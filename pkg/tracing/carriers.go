package tracing

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"actiontag/internal/constants"
)

// Broker messages carry W3C trace context in their headers so a document
// keeps one trace from producer through classification to the output topic.

func InjectKafkaHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &kafkaHeaderCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

// InjectAMQPHeaders allocates the table when headers is nil.
func InjectAMQPHeaders(ctx context.Context, headers amqp.Table) amqp.Table {
	if headers == nil {
		headers = amqp.Table{}
	}
	otel.GetTextMapPropagator().Inject(ctx, amqpHeaderCarrier(headers))
	return headers
}

func StartKafkaConsumeSpan(ctx context.Context, m kafka.Message) (context.Context, trace.Span) {
	return startConsumeSpan(ctx, "kafka.consume", &kafkaHeaderCarrier{headers: m.Headers},
		trace.WithAttributes(
			DestinationKey.String(m.Topic),
			MessageKey.String(string(m.Key)),
		),
	)
}

func StartAMQPConsumeSpan(ctx context.Context, d amqp.Delivery) (context.Context, trace.Span) {
	return startConsumeSpan(ctx, "rabbitmq.consume", amqpHeaderCarrier(d.Headers),
		trace.WithAttributes(
			DestinationKey.String(d.RoutingKey),
			MessageKey.String(d.MessageId),
		),
	)
}

func startConsumeSpan(ctx context.Context, name string, carrier propagation.TextMapCarrier, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	opts = append(opts, trace.WithSpanKind(trace.SpanKindConsumer))
	return GetTracer(constants.ServiceName+"-broker").Start(ctx, name, opts...)
}

// kafkaHeaderCarrier is used through a pointer so Set can grow the slice.
type kafkaHeaderCarrier struct {
	headers []kafka.Header
}

func (c *kafkaHeaderCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *kafkaHeaderCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *kafkaHeaderCarrier) Keys() []string {
	keys := make([]string, len(c.headers))
	for i, h := range c.headers {
		keys[i] = h.Key
	}
	return keys
}

type amqpHeaderCarrier amqp.Table

func (c amqpHeaderCarrier) Get(key string) string {
	v, _ := c[key].(string)
	return v
}

func (c amqpHeaderCarrier) Set(key, value string) {
	c[key] = value
}

func (c amqpHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
