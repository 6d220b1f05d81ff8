package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler processes one extraction request. A nil return acks the
// delivery; an error nacks it back onto the queue after a backoff delay.
// Handlers park unprocessable messages on the DLQ themselves, so a returned
// error always means the attempt is worth repeating.
type MessageHandler func(ctx context.Context, body []byte) error

// maxRequeueDelay caps the exponential backoff between redeliveries.
const maxRequeueDelay = 60 * time.Second

type ConsumerConfig struct {
	URL         string
	Queue       string
	Exchange    string
	DLQ         string
	StatusQueue string
	Prefetch    int
	WorkerCount int
	BaseDelayMs int
}

// Consumer drains the extraction queue into a pool of worker goroutines.
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	cfg       ConsumerConfig
	handler   MessageHandler
	logger    *zap.Logger
	baseDelay time.Duration
	wg        sync.WaitGroup
}

// NewConsumer dials the broker and sets up the telemetry topology: one topic
// exchange plus the extraction, status and dead-letter queues. Queue names
// double as routing keys.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		conn:      conn,
		channel:   ch,
		cfg:       cfg,
		handler:   handler,
		logger:    logger,
		baseDelay: time.Duration(cfg.BaseDelayMs) * time.Millisecond,
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg ConsumerConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	queues := []struct {
		name string
		bind bool
	}{
		{cfg.Queue, true},
		{cfg.StatusQueue, true},
		{cfg.DLQ, false}, // fed through the default exchange, no binding
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
		if !q.bind {
			continue
		}
		if err := ch.QueueBind(q.name, q.name, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q.name, err)
		}
	}
	return nil
}

// Start consumes until ctx is cancelled, then waits for in-flight work.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}

	c.logger.Info("starting worker pool",
		zap.Int("workers", c.cfg.WorkerCount),
		zap.String("queue", c.cfg.Queue),
	)

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			if err := c.handler(ctx, d.Body); err != nil {
				c.requeue(ctx, d, err, log)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// requeue nacks the delivery back onto the queue after an exponential delay
// derived from the broker's x-death count. Shutdown mid-delay requeues
// immediately; the redelivery carries the count, so the next consumer backs
// off again.
func (c *Consumer) requeue(ctx context.Context, d amqp.Delivery, cause error, log *zap.Logger) {
	attempt := deathCount(d.Headers)
	delay := c.backoff(attempt)
	log.Warn("extraction attempt failed, requeueing",
		zap.Error(cause),
		zap.Uint64("delivery_tag", d.DeliveryTag),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
	)

	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
	_ = d.Nack(false, true)
}

func (c *Consumer) backoff(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < attempt && delay < maxRequeueDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRequeueDelay)
}

func deathCount(headers amqp.Table) int {
	if headers == nil {
		return 1
	}
	deaths, ok := headers["x-death"].([]interface{})
	if !ok || len(deaths) == 0 {
		return 1
	}
	return len(deaths)
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
