package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"actiontag/internal/config"
	"actiontag/internal/constants"
	"actiontag/internal/logger"
	"actiontag/pkg/errors"
	"actiontag/pkg/logging"
	"actiontag/pkg/metrics"
	"actiontag/pkg/models"
	"actiontag/pkg/tracing"
)

const rabbitDialBaseDelay = time.Second

// dialRabbitMQ connects with exponential backoff capped at
// constants.RabbitMaxDialDelay, giving up early when ctx is done.
func dialRabbitMQ(ctx context.Context, cfg config.RabbitMQConfig, log logger.Logger) (*amqp.Connection, error) {
	attempts := cfg.DialRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.Dial(cfg.URL)
		if err == nil {
			if i > 1 {
				log.Infow("RabbitMQ connected", "attempt", i)
			}
			return conn, nil
		}
		lastErr = err

		if i == attempts {
			break
		}

		sleep := rabbitDialBaseDelay * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > constants.RabbitMaxDialDelay {
			sleep = constants.RabbitMaxDialDelay
		}
		log.Warnw("RabbitMQ dial failed",
			"attempt", i,
			"sleep", sleep,
			"error", err,
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("rabbitmq dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return nil
}

// RabbitMQProducer publishes persistent messages to a topic exchange and
// waits for the broker to confirm each one.
type RabbitMQProducer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	mu       sync.Mutex
	exchange string
	ownsConn bool
	logger   logger.Logger
}

func NewRabbitMQProducer(ctx context.Context, cfg config.RabbitMQConfig, log logger.Logger) (*RabbitMQProducer, error) {
	conn, err := dialRabbitMQ(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	p, err := newRabbitMQProducer(conn, cfg.Exchange, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.ownsConn = true
	return p, nil
}

func newRabbitMQProducer(conn *amqp.Connection, exchange string, log logger.Logger) (*RabbitMQProducer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &RabbitMQProducer{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		logger:   log,
	}, nil
}

func (p *RabbitMQProducer) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	if msg.Metadata.TraceID == "" {
		msg.Metadata.TraceID = tracing.TraceID(ctx)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     msg.ID,
		CorrelationId: msg.Metadata.TraceID,
		Timestamp:     time.Now(),
		Headers:       tracing.InjectAMQPHeaders(ctx, nil),
		Body:          body,
	}

	start := time.Now()

	p.mu.Lock()
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, topic, false, false, publishing)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish rabbitmq message: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to await rabbitmq confirm: %w", err)
	}
	if !acked {
		return errors.ErrServiceUnavailable.WithDetail("exchange", p.exchange).WithDetail("routing_key", topic)
	}

	metrics.ObserveBrokerWrite(constants.BrokerTypeRabbitMQ, topic, time.Since(start))
	return nil
}

func (p *RabbitMQProducer) Close() error {
	err := p.ch.Close()
	if p.ownsConn {
		if closeErr := p.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// RabbitMQConsumer reads from a durable queue bound to the exchange. The
// topic passed to Consume is the binding key.
type RabbitMQConsumer struct {
	cfg         config.RabbitMQConfig
	conn        *amqp.Connection
	ch          *amqp.Channel
	logger      logger.Logger
	dlqProducer Producer
	serviceName string
	wg          sync.WaitGroup
}

func NewRabbitMQConsumer(ctx context.Context, cfg config.RabbitMQConfig, log logger.Logger) (*RabbitMQConsumer, error) {
	conn, err := dialRabbitMQ(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareExchange(ch, cfg.Exchange); err != nil {
		conn.Close()
		return nil, err
	}

	consumer := &RabbitMQConsumer{
		cfg:         cfg,
		conn:        conn,
		ch:          ch,
		logger:      log,
		serviceName: constants.ServiceName,
	}

	if cfg.DLQKey != "" {
		dlq, err := newRabbitMQProducer(conn, cfg.Exchange, log)
		if err != nil {
			conn.Close()
			return nil, err
		}
		consumer.dlqProducer = dlq
	}

	return consumer, nil
}

func (c *RabbitMQConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *RabbitMQConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	deliveries, err := c.setupQueue(topic)
	if err != nil {
		return err
	}

	consumeCtx := logging.WithServiceName(ctx, c.serviceName)
	c.logger.InfowCtx(consumeCtx, "Started consuming",
		"queue", c.cfg.InputQueue,
		"routing_key", topic,
		"exchange", c.cfg.Exchange,
	)

	c.wg.Add(1)
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			c.logger.InfowCtx(consumeCtx, "Stopped consuming",
				"queue", c.cfg.InputQueue,
				"reason", "context canceled",
			)
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq delivery channel closed for queue %s", c.cfg.InputQueue)
			}
			metrics.IncBrokerMessagesRead(constants.BrokerTypeRabbitMQ, topic)
			c.handleDelivery(ctx, consumeCtx, d, topic, handler)
		}
	}
}

func (c *RabbitMQConsumer) setupQueue(topic string) (<-chan amqp.Delivery, error) {
	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	q, err := c.ch.QueueDeclare(c.cfg.InputQueue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", c.cfg.InputQueue, err)
	}
	if err := c.ch.QueueBind(q.Name, topic, c.cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue %s: %w", q.Name, err)
	}

	deliveries, err := c.ch.Consume(q.Name, c.serviceName, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume queue %s: %w", q.Name, err)
	}
	return deliveries, nil
}

func (c *RabbitMQConsumer) handleDelivery(ctx, consumeCtx context.Context, d amqp.Delivery, topic string, handler HandlerFunc) {
	decoded, err := models.DecodeEnvelope(d.Body)
	if err != nil {
		metrics.IncClassificationError(errors.ErrDecode.Code, "broker")
		c.logger.ErrorwCtx(consumeCtx, "Failed to decode message envelope",
			"error", err,
			"routing_key", d.RoutingKey,
		)
		_ = d.Nack(false, false)
		return
	}

	envelope := *decoded

	msgCtx, span := tracing.StartAMQPConsumeSpan(ctx, d)
	defer span.End()

	if envelope.Metadata.TraceID != "" {
		msgCtx = logging.WithTraceID(msgCtx, envelope.Metadata.TraceID)
	}
	msgCtx = logging.WithMessageID(msgCtx, envelope.ID)
	msgCtx = logging.WithServiceName(msgCtx, c.serviceName)

	err = handleWithRetry(msgCtx, c.logger, retryPolicy(c.cfg.Retry), c.serviceName, topic, envelope, handler)
	if err == nil {
		c.ack(msgCtx, d)
		return
	}

	span.RecordError(err)
	c.logger.ErrorwCtx(msgCtx, "Failed to process message after retries",
		"error", err,
		"routing_key", topic,
	)

	if c.dlqProducer == nil {
		// without a DLQ key the queue's own dead-lettering, if any, takes over
		_ = d.Nack(false, false)
		return
	}

	if dlqErr := c.sendToDLQ(msgCtx, envelope, err, topic); dlqErr != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to send message to DLQ, requeueing",
			"error", dlqErr,
			"routing_key", topic,
		)
		_ = d.Nack(false, true)
		return
	}
	c.ack(msgCtx, d)
}

func (c *RabbitMQConsumer) ack(ctx context.Context, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.logger.ErrorwCtx(ctx, "Failed to ack message",
			"error", err,
			"delivery_tag", d.DeliveryTag,
		)
	}
}

func (c *RabbitMQConsumer) sendToDLQ(ctx context.Context, envelope models.MessageEnvelope, originalErr error, sourceTopic string) error {
	if err := c.dlqProducer.Publish(ctx, c.cfg.DLQKey, dlqEnvelope(envelope, originalErr, sourceTopic)); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, sourceTopic, dlqReason(originalErr)).Inc()
	c.logger.InfowCtx(ctx, "Message sent to DLQ",
		"source_routing_key", sourceTopic,
		"dlq_routing_key", c.cfg.DLQKey,
		"reason", originalErr.Error(),
	)
	return nil
}

func (c *RabbitMQConsumer) Close() error {
	var err error
	if c.dlqProducer != nil {
		err = c.dlqProducer.Close()
	}
	if closeErr := c.ch.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	c.wg.Wait()
	if closeErr := c.conn.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
