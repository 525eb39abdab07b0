package hnstream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgeflare/hnstream/pkg/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	helloInterval time.Duration
	helloCount    int
)

var errInvalidInterval = errors.New("--interval must be positive")

var helloCmd = &cobra.Command{
	Use:   "hello",
	Short: "Publish timestamped Hello World! text messages",
	Long: `Publish "<time>: Hello World!" to the hello topic every interval, either count
times or until interrupted. Useful to check that the broker is reachable.`,
	RunE: runHello,
}

func runHello(cmd *cobra.Command, args []string) error {
	if helloInterval <= 0 {
		return fmt.Errorf("%w, got %s", errInvalidInterval, helloInterval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	peer, err := sinkPeer()
	if err != nil {
		return err
	}
	sink, err := peer.Open(logger)
	if err != nil {
		return err
	}
	defer sink.Disconnect()

	summary := sendHello(ctx, sink, cfg.Topics.Hello, helloInterval, helloCount, time.Now)
	logger.Info("hello finished",
		zap.Int("delivered", summary.Delivered),
		zap.Int("failed", summary.Failed))
	return nil
}

// sendHello publishes one text message per interval until count messages were
// attempted (count 0 means no limit) or ctx is done.
func sendHello(ctx context.Context, sink pipeline.Connector, topic string, interval time.Duration, count int, now func() time.Time) *pipeline.Summary {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	summary := &pipeline.Summary{Topic: topic}
	for {
		value := fmt.Sprintf("%s: Hello World!", now().Format(time.RFC3339))
		s := pipeline.Publish(sink, topic, "", [][]byte{[]byte(value)}, logger)
		summary.Delivered += s.Delivered
		summary.Failed += s.Failed
		summary.Statuses = append(summary.Statuses, s.Statuses...)

		if count > 0 && summary.Attempted() >= count {
			return summary
		}
		select {
		case <-ctx.Done():
			return summary
		case <-ticker.C:
		}
	}
}

func init() {
	f := helloCmd.Flags()
	f.DurationVar(&helloInterval, "interval", 2*time.Second, "time between messages")
	f.IntVarP(&helloCount, "count", "n", 0, "number of messages to send, 0 for no limit")
	f.StringP("topic", "t", "", "topic to publish to")
	f.BoolVar(&dryRun, "dry-run", false, "log messages instead of publishing them")
	bindFlag("topics.hello", f, "topic")
}
