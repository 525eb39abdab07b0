package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdmin implements the parts of sarama.ClusterAdmin used by EnsureTopics.
type fakeAdmin struct {
	sarama.ClusterAdmin
	topics  map[string]sarama.TopicDetail
	created map[string]*sarama.TopicDetail
}

func (f *fakeAdmin) ListTopics() (map[string]sarama.TopicDetail, error) {
	return f.topics, nil
}

func (f *fakeAdmin) CreateTopic(topic string, detail *sarama.TopicDetail, _ bool) error {
	f.created[topic] = detail
	return nil
}

func TestEnsureTopics(t *testing.T) {
	cfg, err := DecodeConfig(map[string]any{"partitions": 3, "retentionMs": 1000})
	require.NoError(t, err)

	admin := &fakeAdmin{
		topics:  map[string]sarama.TopicDetail{"hello-world-topic": {}},
		created: map[string]*sarama.TopicDetail{},
	}
	c := NewClient(cfg, nil)
	require.NoError(t, c.ensureTopics(admin, []string{"hackernews-topic", "hello-world-topic"}))

	require.Len(t, admin.created, 1)
	detail := admin.created["hackernews-topic"]
	require.NotNil(t, detail)
	assert.Equal(t, int32(3), detail.NumPartitions)
	assert.Equal(t, int16(1), detail.ReplicationFactor)
	assert.Equal(t, "1000", *detail.ConfigEntries["retention.ms"])
}

func TestTail(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	pc := consumer.ExpectConsumePartition("hackernews-topic", 0, sarama.OffsetOldest)
	pc.YieldMessage(&sarama.ConsumerMessage{Value: []byte("a")})
	pc.YieldMessage(&sarama.ConsumerMessage{Value: []byte("b")})
	pc.YieldMessage(&sarama.ConsumerMessage{Value: []byte("c")})

	cfg, err := DecodeConfig(nil)
	require.NoError(t, err)

	var values []string
	n, err := NewClient(cfg, nil).Tail(context.Background(), consumer, "hackernews-topic", 0, 2, func(msg *sarama.ConsumerMessage) {
		values = append(values, string(msg.Value))
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b"}, values)
}

func TestTailStopsOnCancel(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	consumer.ExpectConsumePartition("hackernews-topic", 0, sarama.OffsetOldest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg, err := DecodeConfig(nil)
	require.NoError(t, err)
	n, err := NewClient(cfg, nil).Tail(ctx, consumer, "hackernews-topic", 0, 0, func(*sarama.ConsumerMessage) {})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
