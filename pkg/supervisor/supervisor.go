// Package supervisor installs Apache Druid Kafka ingestion supervisors through
// the overlord API.
package supervisor

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/edgeflare/hnstream/pkg/httputil"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Path is the overlord endpoint for supervisors.
const Path = "/druid/indexer/v1/supervisor"

//go:embed hackernews-supervisor.json
var defaultSpec []byte

var ErrInvalidSpec = errors.New("invalid supervisor spec")

// DefaultSpec returns the embedded Kafka ingestion spec for the hackernews topic.
func DefaultSpec() []byte {
	return append([]byte(nil), defaultSpec...)
}

// LoadSpec reads a spec from path, or returns DefaultSpec when path is empty.
func LoadSpec(path string) ([]byte, error) {
	if path == "" {
		return DefaultSpec(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading supervisor spec: %w", err)
	}
	return b, nil
}

// Summary lists the fields of a spec worth logging before it is posted.
type Summary struct {
	DataSource string
	Topic      string
	Brokers    string
}

// Inspect validates that spec is JSON with a datasource and a topic.
func Inspect(spec []byte) (*Summary, error) {
	if !gjson.ValidBytes(spec) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidSpec)
	}
	res := gjson.GetManyBytes(spec,
		"spec.dataSchema.dataSource",
		"spec.ioConfig.topic",
		`spec.ioConfig.consumerProperties.bootstrap\.servers`,
	)
	s := &Summary{DataSource: res[0].String(), Topic: res[1].String(), Brokers: res[2].String()}
	if s.DataSource == "" || s.Topic == "" {
		return nil, fmt.Errorf("%w: dataSource and ioConfig.topic are required", ErrInvalidSpec)
	}
	return s, nil
}

// Client talks to a Druid router or overlord.
type Client struct {
	URL     string
	Timeout time.Duration
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		URL:     strings.TrimRight(baseURL, "/"),
		Timeout: 10 * time.Second,
		logger:  logger,
	}
}

// Install posts spec and returns the supervisor id reported by Druid.
// Posting a spec for an existing datasource updates that supervisor.
func (c *Client) Install(ctx context.Context, spec []byte) (string, error) {
	summary, err := Inspect(spec)
	if err != nil {
		return "", err
	}
	c.logger.Info("installing supervisor",
		zap.String("datasource", summary.DataSource),
		zap.String("topic", summary.Topic),
		zap.String("brokers", summary.Brokers))

	body, err := c.do(ctx, http.MethodPost, spec)
	if err != nil {
		return "", fmt.Errorf("installing supervisor: %w", err)
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", fmt.Errorf("installing supervisor: response has no id: %s", body)
	}
	return id, nil
}

// List returns the ids of running supervisors.
func (c *Client) List(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, fmt.Errorf("listing supervisors: %w", err)
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("listing supervisors: unexpected response: %s", body)
	}
	var ids []string
	for _, v := range res.Array() {
		ids = append(ids, v.String())
	}
	return ids, nil
}

func (c *Client) do(ctx context.Context, method string, payload []byte) ([]byte, error) {
	config := httputil.DefaultRequestConfig(method, c.URL+Path)
	config.Timeout = c.Timeout
	config.Logger = c.logger

	var body any
	if payload != nil {
		body = payload
	}
	resp, err := httputil.Request(ctx, config, body)
	if resp != nil {
		c.logger.Info("druid response",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", resp.Body))
	}
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
