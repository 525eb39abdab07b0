package kafka

import (
	"context"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Client handles topic administration and consumption
type Client struct {
	config *Config
	logger *zap.Logger
}

func NewClient(config *Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: config,
		logger: logger,
	}
}

func (c *Client) newClusterAdmin() (sarama.ClusterAdmin, error) {
	saramaConfig, err := c.config.ToSaramaConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create sarama config: %w", err)
	}

	admin, err := sarama.NewClusterAdmin(c.config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster admin: %w", err)
	}

	return admin, nil
}

// ListTopics lists all topics
func (c *Client) ListTopics() (map[string]sarama.TopicDetail, error) {
	admin, err := c.newClusterAdmin()
	if err != nil {
		return nil, err
	}
	defer admin.Close()

	topics, err := admin.ListTopics()
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}

	return topics, nil
}

// EnsureTopics creates the named topics that do not exist yet, using the
// configured partitions, replicas and retention.
func (c *Client) EnsureTopics(names ...string) error {
	admin, err := c.newClusterAdmin()
	if err != nil {
		return err
	}
	defer admin.Close()

	return c.ensureTopics(admin, names)
}

func (c *Client) ensureTopics(admin sarama.ClusterAdmin, names []string) error {
	topics, err := admin.ListTopics()
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}

	for _, name := range names {
		if _, exists := topics[name]; exists {
			continue
		}

		retention := strconv.FormatInt(c.config.RetentionMS, 10)
		detail := &sarama.TopicDetail{
			NumPartitions:     c.config.Partitions,
			ReplicationFactor: c.config.Replicas,
			ConfigEntries: map[string]*string{
				"retention.ms": &retention,
			},
		}
		if err := admin.CreateTopic(name, detail, false); err != nil {
			return fmt.Errorf("failed to create topic %s: %w", name, err)
		}
		c.logger.Info("topic created",
			zap.String("topic", name),
			zap.Int32("partitions", detail.NumPartitions),
			zap.Int16("replicas", detail.ReplicationFactor))
	}
	return nil
}

// CreateConsumer creates a new Consumer
func (c *Client) CreateConsumer() (sarama.Consumer, error) {
	conf, err := c.config.ToSaramaConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create sarama config: %w", err)
	}

	consumer, err := sarama.NewConsumer(c.config.Brokers, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	return consumer, nil
}

// Tail consumes one partition of topic from the oldest offset and calls fn for
// every message until ctx is done or limit messages were handled (limit 0
// means no limit). It returns the number of messages handled.
func (c *Client) Tail(ctx context.Context, consumer sarama.Consumer, topic string, partition int32, limit int, fn func(*sarama.ConsumerMessage)) (int, error) {
	partitionConsumer, err := consumer.ConsumePartition(topic, partition, sarama.OffsetOldest)
	if err != nil {
		return 0, fmt.Errorf("failed to start consumer: %w", err)
	}
	defer func() {
		if err := partitionConsumer.Close(); err != nil {
			c.logger.Warn("failed to close partition consumer", zap.Error(err))
		}
	}()

	consumed := 0
ConsumerLoop:
	for limit == 0 || consumed < limit {
		select {
		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				break ConsumerLoop
			}
			c.logger.Debug("consumed message",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset))
			fn(msg)
			consumed++
		case cerr, ok := <-partitionConsumer.Errors():
			if !ok {
				break ConsumerLoop
			}
			c.logger.Error("consumer error", zap.Error(cerr))
		case <-ctx.Done():
			break ConsumerLoop
		}
	}

	c.logger.Info("consumption finished", zap.Int("consumed", consumed))
	return consumed, nil
}
