package kafka

import (
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"github.com/edgeflare/hnstream/pkg/pipeline"
	"go.uber.org/zap"
)

// PeerKafka implements the sink for Kafka
type PeerKafka struct {
	producer sarama.SyncProducer
	config   *Config
	logger   *zap.Logger

	mu    sync.Mutex
	state pipeline.State
}

// NewPeer wraps an already open producer, for instance a mocks.SyncProducer.
func NewPeer(producer sarama.SyncProducer, cfg *Config, logger *zap.Logger) *PeerKafka {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeerKafka{producer: producer, config: cfg, logger: logger, state: pipeline.StateConnected}
}

func (p *PeerKafka) Connect(config map[string]any, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := DecodeConfig(config)
	if err != nil {
		return err
	}
	saramaConfig, err := cfg.ToSaramaConfig()
	if err != nil {
		return err
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return &pipeline.BrokerUnavailableError{Brokers: cfg.Brokers, Err: err}
	}

	if len(cfg.CreateTopics) > 0 {
		if err := NewClient(cfg, logger).EnsureTopics(cfg.CreateTopics...); err != nil {
			producer.Close()
			return fmt.Errorf("failed to ensure topics: %w", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.producer = producer
	p.config = cfg
	p.logger = logger
	p.state = pipeline.StateConnected

	logger.Info("connected to kafka",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("clientID", cfg.ClientID),
		zap.Duration("ackTimeout", cfg.AckTimeout))
	return nil
}

// Pub sends one message and waits for its acknowledgment.
func (p *PeerKafka) Pub(msg pipeline.Message) pipeline.DeliveryStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := pipeline.DeliveryStatus{Topic: msg.Topic}
	if p.producer == nil || p.state == pipeline.StateDisconnected {
		status.Err = pipeline.ErrNotConnected
		return status
	}

	p.state = pipeline.StateSending
	defer func() { p.state = pipeline.StateConnected }()

	pm := &sarama.ProducerMessage{
		Topic: msg.Topic,
		Value: sarama.ByteEncoder(msg.Value),
	}
	if msg.Key != "" {
		pm.Key = sarama.StringEncoder(msg.Key)
	}

	status.Partition, status.Offset, status.Err = p.producer.SendMessage(pm)
	if status.Err != nil {
		var perr *sarama.ProducerError
		if errors.As(status.Err, &perr) {
			status.Err = perr.Err
		}
		status.Err = fmt.Errorf("failed to publish message: %w", status.Err)
		return status
	}

	p.logger.Debug("published message",
		zap.String("topic", msg.Topic),
		zap.Int32("partition", status.Partition),
		zap.Int64("offset", status.Offset))
	return status
}

func (p *PeerKafka) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == pipeline.StateDisconnected || p.producer == nil {
		p.state = pipeline.StateDisconnected
		return nil
	}
	p.state = pipeline.StateDisconnected
	return p.producer.Close()
}

func (p *PeerKafka) State() pipeline.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorKafka, func() pipeline.Connector { return &PeerKafka{} })
}
