// Package http is a sink connector for Kafka REST proxies speaking the v2
// produce API (Redpanda HTTP Proxy, Confluent REST Proxy). Each message is a
// single-record POST to /topics/{topic}; the response carries the partition
// and offset the broker assigned.
package http

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/edgeflare/hnstream/pkg/httputil"
	"github.com/edgeflare/hnstream/pkg/pipeline"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const contentType = "application/vnd.kafka.binary.v2+json"

// AuthType represents supported authentication methods
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeAPIKey AuthType = "apikey"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeBasic  AuthType = "basic"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Type       AuthType `mapstructure:"type"`
	APIKey     string   `mapstructure:"apiKey"`
	APIKeyName string   `mapstructure:"apiKeyName"` // Header name for API key
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	Token      string   `mapstructure:"token"`
}

// Config of the proxy connector.
type Config struct {
	URL     string            `mapstructure:"url"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Headers map[string]string `mapstructure:"headers"`
	Auth    AuthConfig        `mapstructure:"auth"`
}

// PeerHTTP publishes through a Kafka REST proxy
type PeerHTTP struct {
	config  Config
	headers map[string][]string
	logger  *zap.Logger

	mu    sync.Mutex
	state pipeline.State
}

func decodeConfig(raw map[string]any) (Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode HTTP proxy config: %w", err)
	}

	if cfg.URL == "" {
		cfg.URL = "http://localhost:8082"
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if cfg.Auth.Type == "" {
		cfg.Auth.Type = AuthTypeNone
	}
	return cfg, validateAuth(&cfg.Auth)
}

func validateAuth(auth *AuthConfig) error {
	switch auth.Type {
	case AuthTypeNone:
	case AuthTypeAPIKey:
		if auth.APIKey == "" {
			return fmt.Errorf("API key authentication requires an API key")
		}
		if auth.APIKeyName == "" {
			auth.APIKeyName = "X-API-Key"
		}
	case AuthTypeBasic:
		if auth.Username == "" || auth.Password == "" {
			return fmt.Errorf("basic authentication requires both username and password")
		}
	case AuthTypeBearer:
		if auth.Token == "" {
			return fmt.Errorf("bearer authentication requires a token")
		}
	default:
		return fmt.Errorf("unsupported auth type %q", auth.Type)
	}
	return nil
}

func buildHeaders(cfg Config) map[string][]string {
	headers := map[string][]string{
		"Accept": {"application/vnd.kafka.v2+json"},
	}
	for key, value := range cfg.Headers {
		headers[key] = []string{value}
	}

	switch cfg.Auth.Type {
	case AuthTypeAPIKey:
		headers[cfg.Auth.APIKeyName] = []string{cfg.Auth.APIKey}
	case AuthTypeBasic:
		headers["Authorization"] = []string{"Basic " + basicAuth(cfg.Auth.Username, cfg.Auth.Password)}
	case AuthTypeBearer:
		headers["Authorization"] = []string{"Bearer " + cfg.Auth.Token}
	}
	return headers
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

func (p *PeerHTTP) request(method, u string) httputil.RequestConfig {
	config := httputil.DefaultRequestConfig(method, u)
	config.Headers = make(map[string][]string, len(p.headers)+1)
	for k, v := range p.headers {
		config.Headers[k] = v
	}
	config.Timeout = p.config.Timeout
	config.Logger = p.logger
	config.RetryEnabled = false
	return config
}

// Connect checks that the proxy answers GET /topics.
func (p *PeerHTTP) Connect(config map[string]any, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := decodeConfig(config)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = cfg
	p.headers = buildHeaders(cfg)
	p.logger = logger

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if _, err := httputil.Request(ctx, p.request(http.MethodGet, cfg.URL+"/topics"), nil); err != nil {
		return &pipeline.BrokerUnavailableError{Brokers: []string{cfg.URL}, Err: err}
	}

	p.state = pipeline.StateConnected
	logger.Info("connected to HTTP proxy",
		zap.String("url", cfg.URL),
		zap.String("auth_type", string(cfg.Auth.Type)),
		zap.Duration("timeout", cfg.Timeout))
	return nil
}

type record struct {
	Key   *string `json:"key,omitempty"`
	Value string  `json:"value"`
}

// Pub posts one record and reads back its partition and offset.
func (p *PeerHTTP) Pub(msg pipeline.Message) pipeline.DeliveryStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := pipeline.DeliveryStatus{Topic: msg.Topic}
	if p.state == pipeline.StateDisconnected {
		status.Err = pipeline.ErrNotConnected
		return status
	}
	p.state = pipeline.StateSending
	defer func() { p.state = pipeline.StateConnected }()

	rec := record{Value: base64.StdEncoding.EncodeToString(msg.Value)}
	if msg.Key != "" {
		key := base64.StdEncoding.EncodeToString([]byte(msg.Key))
		rec.Key = &key
	}

	config := p.request(http.MethodPost, p.config.URL+"/topics/"+url.PathEscape(msg.Topic))
	config.Headers["Content-Type"] = []string{contentType}

	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()
	resp, err := httputil.Request(ctx, config, map[string]any{"records": []record{rec}})
	if err != nil {
		status.Err = fmt.Errorf("failed to publish message: %w", err)
		return status
	}

	offset := gjson.GetBytes(resp.Body, "offsets.0")
	if !offset.Exists() {
		status.Err = fmt.Errorf("failed to publish message: no offset in response: %s", resp.Body)
		return status
	}
	if code := offset.Get("error_code"); code.Exists() && code.Type != gjson.Null {
		status.Err = fmt.Errorf("failed to publish message: error %d: %s", code.Int(), offset.Get("error").String())
		return status
	}
	status.Partition = int32(offset.Get("partition").Int())
	status.Offset = offset.Get("offset").Int()
	return status
}

func (p *PeerHTTP) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = pipeline.StateDisconnected
	return nil
}

func (p *PeerHTTP) State() pipeline.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorHTTP, func() pipeline.Connector { return &PeerHTTP{} })
}
