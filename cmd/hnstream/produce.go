package hnstream

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgeflare/hnstream/pkg/hackernews"
	"github.com/edgeflare/hnstream/pkg/metrics"
	"github.com/edgeflare/hnstream/pkg/pipeline"
	"github.com/edgeflare/hnstream/pkg/registry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Register built-in connectors
	_ "github.com/edgeflare/hnstream/pkg/pipeline/peer/debug"
	_ "github.com/edgeflare/hnstream/pkg/pipeline/peer/http"
	_ "github.com/edgeflare/hnstream/pkg/pipeline/peer/kafka"
	_ "github.com/edgeflare/hnstream/pkg/pipeline/peer/nats"
)

var dryRun bool

var produceCmd = &cobra.Command{
	Use:     "produce",
	Aliases: []string{"p"},
	Short:   "Publish Parquet rows as protobuf messages",
	Long: `Read every file matching the input pattern, convert each row to a protobuf
message and publish the messages one by one, waiting for each acknowledgment.
A failed delivery is logged and the run continues.`,
	RunE: runProduce,
}

func runProduce(cmd *cobra.Command, args []string) error {
	format, err := hackernews.ParseFormat(cfg.Input.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := metrics.NewServer(cfg.Metrics.Addr, logger).Serve(metricsCtx); err != nil {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			cancelMetrics()
			<-done
		}()
	}

	var schemaID int
	if cfg.Registry.Frame {
		rc := registry.NewClient(cfg.Registry.URL, logger)
		rc.Username, rc.Password = cfg.Registry.Username, cfg.Registry.Password
		latest, err := rc.Latest(ctx, cfg.Registry.Subject)
		if err != nil {
			return fmt.Errorf("resolving schema id: %w", err)
		}
		schemaID = latest.ID
	}

	peer, err := sinkPeer()
	if err != nil {
		return err
	}
	sink, err := peer.Open(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Disconnect(); err != nil {
			logger.Warn("disconnect failed", zap.Error(err))
		}
	}()

	summary, err := pipeline.Run(ctx, sink, pipeline.Options{
		Pattern:  cfg.Input.Pattern,
		Topic:    cfg.Topics.Hackernews,
		Key:      cfg.Topics.Key,
		Format:   format,
		SchemaID: schemaID,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	logger.Info("run complete",
		zap.String("topic", summary.Topic),
		zap.Int("attempted", summary.Attempted()),
		zap.Int("delivered", summary.Delivered),
		zap.Int("failed", summary.Failed))
	return nil
}

// sinkPeer returns the configured sink, or a decoding debug peer for dry runs.
func sinkPeer() (*pipeline.Peer, error) {
	if dryRun {
		return &pipeline.Peer{
			Name:          "dry-run",
			ConnectorName: pipeline.ConnectorDebug,
			Config:        map[string]any{"decode": true},
		}, nil
	}
	return cfg.Pipeline.SinkPeer()
}

func init() {
	f := produceCmd.Flags()
	f.StringP("input", "i", "", "glob matching the input Parquet files")
	f.StringP("topic", "t", "", "topic to publish to")
	f.String("key", "", "key attached to every message")
	f.String("format", "", "message format (protobuf, json)")
	f.String("sink", "", "name of the configured peer to publish to")
	f.Bool("frame", false, "prefix messages with the schema registry header of the latest schema version")
	f.BoolVar(&dryRun, "dry-run", false, "log messages instead of publishing them")
	f.Bool("metrics", false, "Enable Prometheus metrics server")
	f.String("metrics-addr", ":9100", "Prometheus metrics server address")

	bindFlag("input.pattern", f, "input")
	bindFlag("topics.hackernews", f, "topic")
	bindFlag("topics.key", f, "key")
	bindFlag("input.format", f, "format")
	bindFlag("pipeline.sink", f, "sink")
	bindFlag("registry.frame", f, "frame")
	bindFlag("metrics.enabled", f, "metrics")
	bindFlag("metrics.addr", f, "metrics-addr")
}
