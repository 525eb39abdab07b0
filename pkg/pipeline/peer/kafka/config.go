package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Config represents Kafka-specific configuration
type Config struct {
	Brokers      []string      `mapstructure:"brokers"`
	AckTimeout   time.Duration `mapstructure:"ackTimeout"`
	RequiredAcks string        `mapstructure:"requiredAcks"`
	Version      string        `mapstructure:"version"`
	ClientID     string        `mapstructure:"clientID"`
	CreateTopics []string      `mapstructure:"createTopics"`
	Partitions   int32         `mapstructure:"partitions"`
	Replicas     int16         `mapstructure:"replicas"`
	RetentionMS  int64         `mapstructure:"retentionMs"`
	SASL         SASL          `mapstructure:"sasl"`
	TLS          TLS           `mapstructure:"tls"`
}

// SASL represents SASL authentication configuration
type SASL struct {
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Algorithm string `mapstructure:"algorithm"`
	Enable    bool   `mapstructure:"enable"`
}

// TLS represents TLS configuration
type TLS struct {
	CertFile   string `mapstructure:"certFile"`
	KeyFile    string `mapstructure:"keyFile"`
	CAFile     string `mapstructure:"caFile"`
	Enable     bool   `mapstructure:"enable"`
	SkipVerify bool   `mapstructure:"skipVerify"`
}

// DecodeConfig decodes a connector config map and fills in defaults.
// Durations may be given as strings ("1s") and broker lists as
// comma-separated strings.
func DecodeConfig(raw map[string]any) (*Config, error) {
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
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode Kafka config: %w", err)
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = time.Second
	}
	if c.RequiredAcks == "" {
		c.RequiredAcks = "one"
	}
	if c.Version == "" {
		c.Version = "2.1.1"
	}
	if c.ClientID == "" {
		c.ClientID = "hnstream-" + uuid.NewString()[:8]
	}
	if c.Partitions == 0 {
		c.Partitions = 1
	}
	if c.Replicas == 0 {
		c.Replicas = 1
	}
	if c.RetentionMS == 0 {
		c.RetentionMS = 7 * 24 * 60 * 60 * 1000 // 7 days
	}
}

func parseRequiredAcks(s string) (sarama.RequiredAcks, error) {
	switch strings.ToLower(s) {
	case "one", "1":
		return sarama.WaitForLocal, nil
	case "all", "-1":
		return sarama.WaitForAll, nil
	case "none", "0":
		return sarama.NoResponse, nil
	default:
		return 0, fmt.Errorf("invalid requiredAcks: %s", s)
	}
}

// ToSaramaConfig converts the Config to a sarama.Config
func (c *Config) ToSaramaConfig() (*sarama.Config, error) {
	conf := sarama.NewConfig()

	version, err := sarama.ParseKafkaVersion(c.Version)
	if err != nil {
		return nil, fmt.Errorf("error parsing Kafka version: %w", err)
	}
	conf.Version = version
	conf.ClientID = c.ClientID

	acks, err := parseRequiredAcks(c.RequiredAcks)
	if err != nil {
		return nil, err
	}

	// one attempt per message, acknowledged within AckTimeout
	conf.Producer.RequiredAcks = acks
	conf.Producer.Timeout = c.AckTimeout
	conf.Producer.Retry.Max = 0
	conf.Producer.Return.Successes = true
	conf.Producer.Return.Errors = true
	conf.Net.DialTimeout = c.AckTimeout
	conf.Net.ReadTimeout = c.AckTimeout
	conf.Net.WriteTimeout = c.AckTimeout
	// the initial metadata handshake gets a single attempt too
	conf.Metadata.Retry.Max = 0
	conf.Metadata.Timeout = c.AckTimeout
	conf.Consumer.Return.Errors = true

	if c.SASL.Enable {
		conf.Net.SASL.Enable = true
		conf.Net.SASL.User = c.SASL.Username
		conf.Net.SASL.Password = c.SASL.Password
		conf.Net.SASL.Handshake = true

		switch c.SASL.Algorithm {
		case "sha512":
			conf.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient { return &XDGSCRAMClient{HashGeneratorFcn: SHA512} }
			conf.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		case "sha256":
			conf.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient { return &XDGSCRAMClient{HashGeneratorFcn: SHA256} }
			conf.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		case "plain", "":
			conf.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		default:
			return nil, fmt.Errorf("invalid SASL algorithm: %s", c.SASL.Algorithm)
		}
	}

	if c.TLS.Enable {
		tlsConfig, err := createTLSConfiguration(c.TLS)
		if err != nil {
			return nil, err
		}
		conf.Net.TLS.Enable = true
		conf.Net.TLS.Config = tlsConfig
	}

	return conf, nil
}

func createTLSConfiguration(tlsCfg TLS) (*tls.Config, error) {
	t := &tls.Config{
		InsecureSkipVerify: tlsCfg.SkipVerify,
	}

	if tlsCfg.CertFile != "" && tlsCfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsCfg.CertFile, tlsCfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		t.Certificates = []tls.Certificate{cert}
	}

	if tlsCfg.CAFile != "" {
		caCert, err := os.ReadFile(tlsCfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in %s", tlsCfg.CAFile)
		}
		t.RootCAs = caCertPool
	}

	return t, nil
}
