//go:build integration

package broker

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitorss/internal/config"
	"monitorss/internal/logger"
	"monitorss/pkg/models"
	"monitorss/pkg/testinfra"
)

func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cconn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	}
	require.NoError(t, cconn.CreateTopics(configs...))
}

type collector struct {
	mu   sync.Mutex
	envs []models.MessageEnvelope
}

func (c *collector) add(env models.MessageEnvelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.envs)
}

func TestKafka_PublishConsumeAndDLQ(t *testing.T) {
	brokers := testinfra.Kafka(t)
	createTopics(t, brokers, "feed_articles", "feed_articles_dlq")

	cfg := config.KafkaConfig{
		Brokers:  brokers,
		GroupID:  "monitorss-test",
		DLQTopic: "feed_articles_dlq",
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     10 * time.Millisecond,
			Multiplier:      1,
		},
	}
	log := logger.NopLogger()

	producer := NewKafkaProducer(cfg, log)
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	require.NoError(t, producer.Publish(ctx, "feed_articles", envelope(t, "ok")))
	require.NoError(t, producer.Publish(ctx, "feed_articles", envelope(t, "poison")))

	handled := &collector{}
	consumer := NewKafkaConsumer(cfg, log)
	consumer.SetServiceName("integration")
	go func() {
		_ = consumer.Consume(ctx, "feed_articles", func(_ context.Context, env models.MessageEnvelope) error {
			if env.ID == "poison" {
				return errors.New("cannot process")
			}
			handled.add(env)
			return nil
		})
	}()

	dead := &collector{}
	dlqCfg := cfg
	dlqCfg.GroupID = "monitorss-test-dlq"
	dlqCfg.DLQTopic = ""
	dlqConsumer := NewKafkaConsumer(dlqCfg, log)
	go func() {
		_ = dlqConsumer.Consume(ctx, "feed_articles_dlq", func(_ context.Context, env models.MessageEnvelope) error {
			dead.add(env)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return handled.len() == 1 && dead.len() == 1 }, time.Minute, 100*time.Millisecond)

	assert.Equal(t, "ok", handled.envs[0].ID)
	require.NotNil(t, dead.envs[0].Metadata.DLQ)
	assert.Equal(t, "poison", dead.envs[0].ID)
	assert.Equal(t, "feed_articles", dead.envs[0].Metadata.DLQ.SourceTopic)
	assert.Contains(t, dead.envs[0].Metadata.DLQ.Reason, "cannot process")

	cancel()
	consumer.Close()
	dlqConsumer.Close()
}
