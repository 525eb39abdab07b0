package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// State of a connector's broker session.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateSending
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateSending:
		return "sending"
	default:
		return "disconnected"
	}
}

// Message is one record handed to a sink. It carries no headers.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// DeliveryStatus is the outcome of a single Pub. Offset is the broker
// assigned offset when Err is nil.
type DeliveryStatus struct {
	Topic     string
	Partition int32
	Offset    int64
	Err       error
}

func (d DeliveryStatus) OK() bool { return d.Err == nil }

var ErrNotConnected = errors.New("connector not connected")

// A Connector is a sink that publishes one message at a time.
type Connector interface {
	// Connect opens the session described by config. It returns a
	// *BrokerUnavailableError when the broker cannot be reached.
	Connect(config map[string]any, logger *zap.Logger) error

	// Pub sends msg and blocks until it is acknowledged or fails.
	Pub(msg Message) DeliveryStatus

	// Disconnect closes the session. It is safe to call more than once.
	Disconnect() error

	State() State
}

// Factory returns a new, unconnected Connector.
type Factory func() Connector

// Predefined connectors
const (
	ConnectorDebug = "debug"
	ConnectorHTTP  = "http"
	ConnectorKafka = "kafka"
	ConnectorNATS  = "nats"
)

var (
	connectors = make(map[string]Factory)
	mu         sync.RWMutex
)

// RegisterConnector makes a connector available under name. Registering the
// same name again replaces the factory.
func RegisterConnector(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	connectors[name] = factory
}

// NewConnector returns a fresh instance of the connector registered as name.
func NewConnector(name string) (Connector, error) {
	mu.RLock()
	factory, ok := connectors[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("connector %s not found", name)
	}
	return factory(), nil
}

// Connectors returns the registered connector names, sorted.
func Connectors() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(connectors))
	for name := range connectors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
