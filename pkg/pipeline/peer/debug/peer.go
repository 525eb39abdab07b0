package debug

import (
	"sync"

	"github.com/edgeflare/hnstream/pkg/hackernews"
	"github.com/edgeflare/hnstream/pkg/pipeline"
	"github.com/edgeflare/hnstream/pkg/registry"
	"go.uber.org/zap"
)

// PeerDebug is a sink that logs every message instead of sending it. Offsets
// count up from zero per connection.
type PeerDebug struct {
	logger *zap.Logger
	decode bool

	mu     sync.Mutex
	state  pipeline.State
	offset int64
}

// Connect accepts an optional "decode" key; when true, payloads are decoded
// as rows before logging.
func (p *PeerDebug) Connect(config map[string]any, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
	p.decode, _ = config["decode"].(bool)
	p.offset = 0
	p.state = pipeline.StateConnected
	return nil
}

func (p *PeerDebug) Pub(msg pipeline.Message) pipeline.DeliveryStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == pipeline.StateDisconnected {
		return pipeline.DeliveryStatus{Topic: msg.Topic, Err: pipeline.ErrNotConnected}
	}

	fields := []zap.Field{
		zap.String("connector", pipeline.ConnectorDebug),
		zap.String("topic", msg.Topic),
		zap.String("key", msg.Key),
		zap.Int("bytes", len(msg.Value)),
	}
	if p.decode {
		fields = append(fields, decodeField(msg.Value))
	}
	p.logger.Info("message", fields...)

	status := pipeline.DeliveryStatus{Topic: msg.Topic, Offset: p.offset}
	p.offset++
	return status
}

func decodeField(value []byte) zap.Field {
	if _, _, payload, err := registry.Unframe(value); err == nil {
		value = payload
	}
	if row, err := hackernews.Decode(value); err == nil {
		return zap.Any("row", row)
	}
	if row, err := hackernews.DecodeJSON(value); err == nil {
		return zap.Any("row", row)
	}
	return zap.ByteString("value", value)
}

func (p *PeerDebug) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = pipeline.StateDisconnected
	return nil
}

func (p *PeerDebug) State() pipeline.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorDebug, func() pipeline.Connector { return &PeerDebug{} })
}
