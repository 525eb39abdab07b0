package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edgeflare/hnstream/pkg/pipeline"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X .../pkg/config.Version=..."
var Version = "dev"

// Config holds application-wide configuration
type Config struct {
	LogLevel   string           `mapstructure:"logLevel"`
	Input      InputConfig      `mapstructure:"input"`
	Topics     TopicsConfig     `mapstructure:"topics"`
	Pipeline   pipeline.Config  `mapstructure:"pipeline"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type InputConfig struct {
	// Pattern is a glob over the Parquet partitions.
	Pattern string `mapstructure:"pattern"`
	// Format is protobuf or json.
	Format string `mapstructure:"format"`
}

type TopicsConfig struct {
	Hackernews string `mapstructure:"hackernews"`
	Hello      string `mapstructure:"hello"`
	Key        string `mapstructure:"key"`
}

type RegistryConfig struct {
	URL      string `mapstructure:"url"`
	Subject  string `mapstructure:"subject"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Frame prefixes every message with the registry wire header of the
	// latest schema version of Subject.
	Frame bool `mapstructure:"frame"`
}

type SupervisorConfig struct {
	URL string `mapstructure:"url"`
	// SpecFile overrides the embedded hackernews supervisor spec.
	SpecFile string `mapstructure:"specFile"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("input.pattern", "./data/hacker_news_full_*.parquet")
	v.SetDefault("input.format", "protobuf")
	v.SetDefault("topics.hackernews", "hackernews-topic")
	v.SetDefault("topics.hello", "hello-world-topic")
	v.SetDefault("topics.key", pipeline.DefaultKey)
	v.SetDefault("pipeline.sink", "redpanda")
	v.SetDefault("pipeline.peers", []map[string]any{
		{
			"name":      "redpanda",
			"connector": pipeline.ConnectorKafka,
			"config": map[string]any{
				"brokers":    []string{"localhost:9092"},
				"ackTimeout": "1s",
			},
		},
		{
			"name":      "stdout",
			"connector": pipeline.ConnectorDebug,
			"config":    map[string]any{"decode": true},
		},
	})
	v.SetDefault("registry.url", "http://localhost:8081")
	v.SetDefault("registry.subject", "hackernews-value")
	v.SetDefault("registry.frame", false)
	v.SetDefault("supervisor.url", "http://localhost:28081")
	v.SetDefault("supervisor.specFile", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9100")
}

// Load reads config from file, environment (HNSTREAM_ prefix, dots become
// underscores) and the given flags, in increasing order of precedence. flags
// maps config keys to command line flags.
func Load(cfgFile string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("hnstream")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HNSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", flag.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}
