package broker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitorss/internal/config"
	"monitorss/internal/delivery"
	"monitorss/internal/logger"
	"monitorss/pkg/models"
)

func fastKafkaConfig() config.KafkaConfig {
	return config.KafkaConfig{
		DLQTopic: "dlq",
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
			Multiplier:      1,
		},
	}
}

func envelope(t *testing.T, id string) models.MessageEnvelope {
	t.Helper()
	env, err := models.NewMessageEnvelopeBuilder(models.TypeFeedArticles).
		WithID(id).
		WithPayload(models.FeedArticlesJob{FeedID: "feed-1"}).
		Build()
	require.NoError(t, err)
	return *env
}

func startConsumer(t *testing.T, b *MemoryBroker, topic string, handler HandlerFunc) context.CancelFunc {
	t.Helper()
	consumer := NewMemoryConsumer(b, fastKafkaConfig(), logger.NopLogger())
	consumer.SetServiceName("test")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Consume(ctx, topic, handler)
	}()
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.subscribers[topic]) == 1
	}, time.Second, time.Millisecond)
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestMemoryBroker_PublishConsume(t *testing.T) {
	b := NewMemoryBroker()
	received := make(chan models.MessageEnvelope, 1)
	startConsumer(t, b, "feed_articles", func(_ context.Context, msg models.MessageEnvelope) error {
		received <- msg
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "feed_articles", envelope(t, "msg-1")))

	select {
	case msg := <-received:
		assert.Equal(t, "msg-1", msg.ID)
		var job models.FeedArticlesJob
		require.NoError(t, msg.DecodePayload(&job))
		assert.Equal(t, "feed-1", job.FeedID)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
	assert.Len(t, b.Published("feed_articles"), 1)
}

func TestMemoryBroker_FailedMessageGoesToDLQ(t *testing.T) {
	b := NewMemoryBroker()
	var calls atomic.Int32
	startConsumer(t, b, "feed_articles", func(context.Context, models.MessageEnvelope) error {
		calls.Add(1)
		return errors.New("boom")
	})

	require.NoError(t, b.Publish(context.Background(), "feed_articles", envelope(t, "msg-1")))

	require.Eventually(t, func() bool {
		return len(b.Published("dlq")) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())

	dead := b.Published("dlq")[0]
	require.NotNil(t, dead.Metadata.DLQ)
	assert.Equal(t, "boom", dead.Metadata.DLQ.Reason)
	assert.Equal(t, "feed_articles", dead.Metadata.DLQ.SourceTopic)
}

func TestMemoryBroker_PanicIsRecovered(t *testing.T) {
	b := NewMemoryBroker()
	startConsumer(t, b, "feed_articles", func(context.Context, models.MessageEnvelope) error {
		panic("handler exploded")
	})

	require.NoError(t, b.Publish(context.Background(), "feed_articles", envelope(t, "msg-1")))

	require.Eventually(t, func() bool {
		return len(b.Published("dlq")) == 1
	}, time.Second, time.Millisecond)
}

func TestMemoryBroker_PublishAfterClose(t *testing.T) {
	b := NewMemoryBroker()
	require.NoError(t, b.Close())
	err := b.Publish(context.Background(), "topic", envelope(t, "msg-1"))
	assert.ErrorIs(t, err, ErrBrokerClosed)
}

func TestEventPublisher(t *testing.T) {
	b := NewMemoryBroker()
	pub := NewEventPublisher(b, "destination_events", "feed-service")
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := pub.Publish(context.Background(), delivery.Event{
		Type:          delivery.EventNotFound,
		FeedID:        "feed-1",
		DestinationID: "dest-1",
		ArticleID:     "a-1",
		Timestamp:     ts,
	})
	require.NoError(t, err)

	published := b.Published("destination_events")
	require.Len(t, published, 1)
	assert.Equal(t, models.TypeDestinationEvent, published[0].Type)
	assert.Equal(t, "feed-service", published[0].Source)
	assert.Equal(t, ts, published[0].Timestamp)

	var event delivery.Event
	require.NoError(t, published[0].DecodePayload(&event))
	assert.Equal(t, delivery.EventNotFound, event.Type)
	assert.Equal(t, "dest-1", event.DestinationID)
}

func TestFactory(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		wantErr bool
	}{
		{name: "kafka", typ: "kafka"},
		{name: "memory", typ: "memory"},
		{name: "unknown", typ: "rabbitmq", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.BrokerConfig{Type: tt.typ, Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}}}
			producer, err := NewProducer(cfg, logger.NopLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, producer)

			consumer, err := NewConsumer(cfg, logger.NopLogger())
			require.NoError(t, err)
			assert.NotNil(t, consumer)
		})
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	policy := retryPolicy(config.RetryConfig{})
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.InitialInterval)

	policy = retryPolicy(config.RetryConfig{MaxAttempts: 5, Multiplier: 1.5})
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 1.5, policy.Multiplier)
}
