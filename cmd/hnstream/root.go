package hnstream

import (
	"fmt"
	"os"
	"strings"

	"github.com/edgeflare/hnstream/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var cfgFile string
var logLevel string
var cfg *config.Config
var logger = zap.NewNop()

// flagBindings maps config keys to the flags that override them.
var flagBindings = map[string]*pflag.Flag{}

var rootCmd = &cobra.Command{
	Use:   "hnstream",
	Short: "hnstream streams Hacker News items to Redpanda",
	Long: `hnstream reads Hacker News items from Parquet files, encodes them as protobuf
and publishes them to a Kafka compatible broker. It also registers the schema
and installs the Druid ingestion supervisor that reads the topic.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			fmt.Println(config.Version)
			return
		}

		// If no subcommand is provided, print help
		cmd.Help()
	},
}

func Main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/hnstream.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "info", "log at this level (debug, info, warn, error, fatal, none)")
	rootCmd.Flags().BoolP("version", "v", false, "Print the version number")
	bindFlag("logLevel", rootCmd.PersistentFlags(), "log-level")

	rootCmd.AddCommand(produceCmd, helloCmd, tailCmd, schemaCmd, supervisorCmd)
}

func bindFlag(key string, flags *pflag.FlagSet, name string) {
	flagBindings[key] = flags.Lookup(name)
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile, flagBindings)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	logger, err = newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating logger:", err)
		os.Exit(1)
	}
	if cfg.File != "" {
		logger.Debug("using config file", zap.String("file", cfg.File))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "none") {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
