package hnstream

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/edgeflare/hnstream/pkg/hackernews"
	"github.com/edgeflare/hnstream/pkg/pipeline"
	"github.com/edgeflare/hnstream/pkg/pipeline/peer/kafka"
	"github.com/edgeflare/hnstream/pkg/registry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	tailTopic     string
	tailPartition int32
	tailLimit     int
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Consume a topic partition from the oldest offset and log decoded rows",
	RunE:  runTail,
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	peer, err := cfg.Pipeline.SinkPeer()
	if err != nil {
		return err
	}
	kcfg, err := kafka.DecodeConfig(peer.Config)
	if err != nil {
		return err
	}
	client := kafka.NewClient(kcfg, logger)
	consumer, err := client.CreateConsumer()
	if err != nil {
		return &pipeline.BrokerUnavailableError{Brokers: kcfg.Brokers, Err: err}
	}
	defer consumer.Close()

	topic := tailTopic
	if topic == "" {
		topic = cfg.Topics.Hackernews
	}
	_, err = client.Tail(ctx, consumer, topic, tailPartition, tailLimit, func(msg *sarama.ConsumerMessage) {
		logger.Info("consumed",
			zap.Int64("offset", msg.Offset),
			zap.ByteString("key", msg.Key),
			rowField(msg.Value))
	})
	return err
}

func rowField(value []byte) zap.Field {
	if _, _, payload, err := registry.Unframe(value); err == nil {
		value = payload
	}
	if row, err := hackernews.Decode(value); err == nil {
		return zap.Any("row", row)
	}
	return zap.ByteString("value", value)
}

func init() {
	f := tailCmd.Flags()
	f.StringVarP(&tailTopic, "topic", "t", "", "topic to consume (default is the hackernews topic)")
	f.Int32VarP(&tailPartition, "partition", "p", 0, "partition to consume")
	f.IntVarP(&tailLimit, "limit", "n", 0, "stop after this many messages, 0 for no limit")
}
