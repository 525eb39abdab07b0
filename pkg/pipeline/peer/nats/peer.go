package nats

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/edgeflare/hnstream/pkg/pipeline"
	"github.com/mitchellh/mapstructure"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// PeerNATS implements the sink for NATS JetStream
type PeerNATS struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	config Config
	logger *zap.Logger

	mu    sync.Mutex
	state pipeline.State
}

// Config represents NATS configuration
type Config struct {
	Servers    []string      `mapstructure:"servers"`
	Stream     string        `mapstructure:"stream"`
	Subjects   []string      `mapstructure:"subjects"`
	AckTimeout time.Duration `mapstructure:"ackTimeout"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	TLS        struct {
		Enabled  bool   `mapstructure:"enabled"`
		CertFile string `mapstructure:"certFile"`
		KeyFile  string `mapstructure:"keyFile"`
		CAFile   string `mapstructure:"caFile"`
	} `mapstructure:"tls"`
}

func decodeConfig(raw map[string]any) (Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("unmarshal NATS config: %w", err)
	}

	if len(cfg.Servers) == 0 {
		cfg.Servers = []string{nats.DefaultURL}
	}
	cfg.Stream = cmp.Or(cfg.Stream, "hackernews")
	if len(cfg.Subjects) == 0 {
		cfg.Subjects = []string{"hackernews-topic", "hello-world-topic"}
	}
	cfg.AckTimeout = cmp.Or(cfg.AckTimeout, time.Second)
	return cfg, nil
}

// Connect establishes a connection to the first reachable NATS server and
// makes sure the stream exists.
func (p *PeerNATS) Connect(config map[string]any, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := decodeConfig(config)
	if err != nil {
		return err
	}
	opts := defaultOptions(cfg)

	var nc *nats.Conn
	for _, server := range cfg.Servers {
		nc, err = nats.Connect(server, opts...)
		if err == nil {
			break
		}
	}
	if err != nil {
		return &pipeline.BrokerUnavailableError{Brokers: cfg.Servers, Err: err}
	}

	js, err := nc.JetStream(nats.MaxWait(cfg.AckTimeout))
	if err != nil {
		nc.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.nc, p.js, p.config, p.logger = nc, js, cfg, logger

	if err := p.ensureStream(); err != nil {
		nc.Close()
		return fmt.Errorf("ensure stream: %w", err)
	}
	p.state = pipeline.StateConnected
	logger.Info("connected to NATS",
		zap.String("server", nc.ConnectedUrl()),
		zap.String("stream", cfg.Stream))
	return nil
}

// Pub publishes msg.Value on the subject msg.Topic and waits for the
// JetStream ack.
func (p *PeerNATS) Pub(msg pipeline.Message) pipeline.DeliveryStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := pipeline.DeliveryStatus{Topic: msg.Topic}
	if p.js == nil || p.state == pipeline.StateDisconnected {
		status.Err = pipeline.ErrNotConnected
		return status
	}
	p.state = pipeline.StateSending
	defer func() { p.state = pipeline.StateConnected }()

	ack, err := p.js.Publish(msg.Topic, msg.Value, nats.AckWait(p.config.AckTimeout))
	if err != nil {
		status.Err = fmt.Errorf("publish message: %w", err)
		return status
	}
	status.Offset = int64(ack.Sequence)
	return status
}

// Disconnect closes the NATS connection
func (p *PeerNATS) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nc != nil {
		p.nc.Close()
	}
	p.state = pipeline.StateDisconnected
	return nil
}

func (p *PeerNATS) State() pipeline.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ensureStream creates or updates the stream
func (p *PeerNATS) ensureStream() error {
	config := &nats.StreamConfig{
		Name:     p.config.Stream,
		Subjects: p.config.Subjects,
		Storage:  nats.FileStorage,
		Replicas: 1,
	}

	stream, err := p.js.StreamInfo(p.config.Stream)
	if err == nil {
		if !streamConfigEqual(stream.Config, *config) {
			if _, err = p.js.UpdateStream(config); err != nil {
				return fmt.Errorf("update stream: %w", err)
			}
			p.logger.Info("updated stream", zap.String("stream", p.config.Stream))
		}
		return nil
	}

	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("get stream info: %w", err)
	}

	if _, err := p.js.AddStream(config); err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	p.logger.Info("created stream", zap.String("stream", p.config.Stream))
	return nil
}

// streamConfigEqual checks if two nats.StreamConfig are equivalent
func streamConfigEqual(a, b nats.StreamConfig) bool {
	return a.Name == b.Name &&
		a.Storage == b.Storage &&
		a.Replicas == b.Replicas &&
		slices.Equal(a.Subjects, b.Subjects)
}

// defaultOptions fails Connect fast when no server answers. A dropped session
// is not re-established, so later publishes fail individually.
func defaultOptions(c Config) []nats.Option {
	opts := []nats.Option{
		nats.Name("hnstream"),
		nats.Timeout(c.AckTimeout),
		nats.PingInterval(10 * time.Second),
		nats.MaxPingsOutstanding(3),
		nats.NoReconnect(),
	}

	if c.Username != "" && c.Password != "" {
		opts = append(opts, nats.UserInfo(c.Username, c.Password))
	}

	if c.TLS.Enabled {
		if c.TLS.CAFile != "" {
			opts = append(opts, nats.RootCAs(c.TLS.CAFile))
		}
		if c.TLS.CertFile != "" && c.TLS.KeyFile != "" {
			opts = append(opts, nats.ClientCert(c.TLS.CertFile, c.TLS.KeyFile))
		}
	}

	return opts
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorNATS, func() pipeline.Connector { return &PeerNATS{} })
}
