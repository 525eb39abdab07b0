package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/edgeflare/hnstream/pkg/columnar"
	"github.com/edgeflare/hnstream/pkg/hackernews"
	"github.com/edgeflare/hnstream/pkg/metrics"
	"github.com/edgeflare/hnstream/pkg/registry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultKey is attached to every message unless Options.Key is set. A fixed
// key sends all messages to the same partition.
const DefaultKey = "hackernews"

var ErrFramingNeedsProtobuf = errors.New("schema registry framing requires the protobuf format")

// Summary reports the outcome of a publish loop. Statuses[i] belongs to the
// i-th payload.
type Summary struct {
	Topic     string
	Delivered int
	Failed    int
	Statuses  []DeliveryStatus
}

func (s *Summary) Attempted() int { return len(s.Statuses) }

// Publish sends every payload to topic through sink, one at a time, waiting
// for each delivery status before sending the next. Failures are logged and
// counted; the loop always runs to the end.
func Publish(sink Connector, topic, key string, payloads [][]byte, logger *zap.Logger) *Summary {
	if logger == nil {
		logger = zap.NewNop()
	}
	summary := &Summary{Topic: topic, Statuses: make([]DeliveryStatus, 0, len(payloads))}

	for i, payload := range payloads {
		start := time.Now()
		status := sink.Pub(Message{Topic: topic, Key: key, Value: payload})
		metrics.PublishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
		summary.Statuses = append(summary.Statuses, status)

		if !status.OK() {
			summary.Failed++
			metrics.PublishErrors.WithLabelValues(topic).Inc()
			logger.Error("delivery failed",
				zap.Int("message", i),
				zap.String("topic", topic),
				zap.Error(status.Err))
			continue
		}
		summary.Delivered++
		metrics.MessagesPublished.WithLabelValues(topic).Inc()
		logger.Info("delivered",
			zap.Int("message", i),
			zap.String("topic", topic),
			zap.Int32("partition", status.Partition),
			zap.Int64("offset", status.Offset))
	}
	return summary
}

// Options configures Run.
type Options struct {
	// Pattern is a glob matching the input Parquet files.
	Pattern string
	Topic   string
	// Key defaults to DefaultKey.
	Key    string
	Format hackernews.Format
	// SchemaID enables schema registry framing when positive.
	SchemaID int
	Logger   *zap.Logger
}

// Run reads, encodes and publishes every row matched by opts.Pattern. Errors
// in reading or encoding abort the run before anything is sent; delivery
// failures only show up in the Summary. ctx is honored until publishing
// starts.
func Run(ctx context.Context, sink Connector, opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run", uuid.NewString()))

	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.SchemaID > 0 && opts.Format == hackernews.FormatJSON {
		return nil, ErrFramingNeedsProtobuf
	}

	view, err := columnar.Scan(opts.Pattern)
	if err != nil {
		return nil, err
	}
	logger.Debug("scanned input", zap.Strings("files", view.Files()))

	table, err := hackernews.Materialize(ctx, view)
	if err != nil {
		return nil, err
	}
	logger.Info("read columns",
		zap.Strings("columns", table.ColumnNames()),
		zap.Int("rows", table.Len()))

	payloads, err := hackernews.Encoder{Format: opts.Format}.EncodeTable(table)
	if err != nil {
		return nil, err
	}
	metrics.RowsEncoded.Add(float64(len(payloads)))

	if opts.SchemaID > 0 {
		for i, p := range payloads {
			payloads[i] = registry.Frame(opts.SchemaID, []int{0}, p)
		}
	}

	return Publish(sink, opts.Topic, opts.Key, payloads, logger), nil
}
