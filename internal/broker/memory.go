package broker

import (
	"context"
	"sync"

	"monitorss/internal/config"
	"monitorss/internal/logger"
	"monitorss/pkg/models"
)

const memoryBufferSize = 256

// MemoryBroker delivers envelopes between producers and consumers of the
// same process. It backs local runs and tests; nothing survives a restart.
type MemoryBroker struct {
	mu          sync.Mutex
	subscribers map[string][]chan models.MessageEnvelope
	published   map[string][]models.MessageEnvelope
	closed      bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subscribers: make(map[string][]chan models.MessageEnvelope),
		published:   make(map[string][]models.MessageEnvelope),
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBrokerClosed
	}
	b.published[topic] = append(b.published[topic], msg)
	subs := append([]chan models.MessageEnvelope(nil), b.subscribers[topic]...)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Published returns a copy of every envelope written to topic.
func (b *MemoryBroker) Published(topic string) []models.MessageEnvelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.MessageEnvelope(nil), b.published[topic]...)
}

func (b *MemoryBroker) subscribe(topic string) chan models.MessageEnvelope {
	ch := make(chan models.MessageEnvelope, memoryBufferSize)
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()
	return ch
}

func (b *MemoryBroker) unsubscribe(topic string, ch chan models.MessageEnvelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[topic]
	for i, s := range subs {
		if s == ch {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// MemoryConsumer applies the same retry and dead letter handling as the
// Kafka consumer on top of a MemoryBroker.
type MemoryConsumer struct {
	broker      *MemoryBroker
	cfg         config.KafkaConfig
	logger      logger.Logger
	serviceName string
}

func NewMemoryConsumer(b *MemoryBroker, cfg config.KafkaConfig, log logger.Logger) *MemoryConsumer {
	return &MemoryConsumer{broker: b, cfg: cfg, logger: log, serviceName: defaultServiceName}
}

func (c *MemoryConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *MemoryConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	ch := c.broker.subscribe(topic)
	defer c.broker.unsubscribe(topic, ch)

	kc := &KafkaConsumer{cfg: c.cfg, logger: c.logger, serviceName: c.serviceName}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			err := kc.processMessageWithRetry(ctx, msg, handler, topic)
			if err == nil {
				continue
			}
			c.logger.ErrorwCtx(ctx, "Failed to process message after retries",
				"error", err,
				"topic", topic,
				"message_id", msg.ID,
			)
			if c.cfg.DLQTopic == "" {
				continue
			}
			markDeadLetter(&msg, err, topic)
			if dlqErr := c.broker.Publish(ctx, c.cfg.DLQTopic, msg); dlqErr != nil {
				c.logger.ErrorwCtx(ctx, "Failed to send message to DLQ",
					"error", dlqErr,
					"topic", topic,
				)
			}
		}
	}
}

func (c *MemoryConsumer) Close() error {
	return nil
}
