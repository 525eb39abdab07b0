// Package registry talks to a Confluent compatible schema registry (Redpanda,
// Confluent Schema Registry, Apicurio in ccompat mode) and frames payloads in
// the registry wire format.
package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edgeflare/hnstream/pkg/httputil"
	"go.uber.org/zap"
)

const contentType = "application/vnd.schemaregistry.v1+json"

// SchemaType values accepted by the registry.
const (
	TypeProtobuf = "PROTOBUF"
	TypeAvro     = "AVRO"
	TypeJSON     = "JSON"
)

// Schema is the body of a registration request.
type Schema struct {
	SchemaType string `json:"schemaType,omitempty"`
	Schema     string `json:"schema"`
}

// RegisterResponse is returned when a schema is registered or already exists.
type RegisterResponse struct {
	ID int `json:"id"`
}

// SchemaResponse describes one registered version of a subject.
type SchemaResponse struct {
	Subject    string `json:"subject"`
	Version    int    `json:"version"`
	ID         int    `json:"id"`
	SchemaType string `json:"schemaType"`
	Schema     string `json:"schema"`
}

// ErrorResponse is the registry's error body.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	ErrorCode  int    `json:"error_code"`
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("schema registry status %d (code %d): %s", e.StatusCode, e.ErrorCode, e.Message)
}

// Client is a schema registry REST client.
type Client struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
	logger   *zap.Logger
}

// NewClient returns a client for the registry at baseURL. A missing scheme
// defaults to http.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "http://" + baseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		URL:     strings.TrimRight(baseURL, "/"),
		Timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Register posts schema under subject. Registering an identical schema again
// returns the existing id.
func (c *Client) Register(ctx context.Context, subject string, schema Schema) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.do(ctx, http.MethodPost, c.subjectURL(subject, "versions"), schema, &out); err != nil {
		return nil, fmt.Errorf("registering schema for %s: %w", subject, err)
	}
	return &out, nil
}

// Versions lists the versions registered under subject.
func (c *Client) Versions(ctx context.Context, subject string) ([]int, error) {
	var out []int
	if err := c.do(ctx, http.MethodGet, c.subjectURL(subject, "versions"), nil, &out); err != nil {
		return nil, fmt.Errorf("listing versions of %s: %w", subject, err)
	}
	return out, nil
}

// Latest fetches the most recent version of subject.
func (c *Client) Latest(ctx context.Context, subject string) (*SchemaResponse, error) {
	var out SchemaResponse
	if err := c.do(ctx, http.MethodGet, c.subjectURL(subject, "versions", "latest"), nil, &out); err != nil {
		return nil, fmt.Errorf("fetching latest schema of %s: %w", subject, err)
	}
	return &out, nil
}

func (c *Client) subjectURL(subject string, parts ...string) string {
	u := c.URL + "/subjects/" + url.PathEscape(subject)
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

func (c *Client) do(ctx context.Context, method, u string, payload, into any) error {
	config := httputil.DefaultRequestConfig(method, u)
	config.Timeout = c.Timeout
	config.Logger = c.logger
	config.Headers = map[string][]string{
		"Accept": {contentType},
	}
	if payload != nil {
		config.Headers["Content-Type"] = []string{contentType}
	}
	if c.Username != "" {
		config.Headers["Authorization"] = []string{"Basic " + basicAuth(c.Username, c.Password)}
	}

	resp, err := httputil.Request(ctx, config, payload)
	if resp != nil {
		c.logger.Info("schema registry response",
			zap.String("method", method),
			zap.String("url", u),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", resp.Body))
	}
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) {
			errResp := &ErrorResponse{StatusCode: statusErr.StatusCode}
			if jsonErr := json.Unmarshal(statusErr.Body, errResp); jsonErr != nil {
				errResp.Message = string(statusErr.Body)
			}
			return errResp
		}
		return err
	}

	if err := json.Unmarshal(resp.Body, into); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}
	return nil
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
