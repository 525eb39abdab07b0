package pipeline

import (
	"fmt"

	"go.uber.org/zap"
)

// Peer is a configured sink with an associated connector (ie Kafka, debug).
type Peer struct {
	Name          string `mapstructure:"name"`
	ConnectorName string `mapstructure:"connector"`
	// Config is decoded by the connector, eg kafka.Config
	Config map[string]any `mapstructure:"config"`
}

// Open creates the peer's connector and connects it. The caller owns the
// returned connector and must Disconnect it.
func (p *Peer) Open(logger *zap.Logger) (Connector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := NewConnector(p.ConnectorName)
	if err != nil {
		return nil, fmt.Errorf("peer %s: %w", p.Name, err)
	}

	logger.Debug("connecting peer",
		zap.String("name", p.Name),
		zap.String("connector", p.ConnectorName))
	if err := c.Connect(p.Config, logger.With(zap.String("peer", p.Name))); err != nil {
		return nil, fmt.Errorf("connecting peer %s: %w", p.Name, err)
	}
	logger.Info("connected peer",
		zap.String("name", p.Name),
		zap.String("connector", p.ConnectorName))
	return c, nil
}

// Config lists the configured peers and the one used as sink.
type Config struct {
	Peers []Peer `mapstructure:"peers"`
	Sink  string `mapstructure:"sink"`
}

func (c *Config) GetPeer(peerName string) *Peer {
	for _, peer := range c.Peers {
		if peer.Name == peerName {
			return &peer
		}
	}
	return nil
}

// SinkPeer returns the peer named by Sink.
func (c *Config) SinkPeer() (*Peer, error) {
	if p := c.GetPeer(c.Sink); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("sink peer %q not configured", c.Sink)
}
