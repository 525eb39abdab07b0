package hnstream

import (
	"context"
	"time"

	"github.com/edgeflare/hnstream/pkg/hackernews"
	"github.com/edgeflare/hnstream/pkg/registry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the Row schema in the schema registry",
}

var schemaRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the embedded hackernews.proto under the configured subject",
	Long: `Register the embedded hackernews.proto under the configured subject and read
the subject's versions back. Registry errors are logged; they do not fail the
command.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		c := registryClient()
		resp, err := c.Register(ctx, cfg.Registry.Subject, registry.Schema{
			SchemaType: registry.TypeProtobuf,
			Schema:     hackernews.Schema(),
		})
		if err != nil {
			logger.Error("schema registration failed", zap.Error(err))
			return
		}
		logger.Info("schema registered", zap.String("subject", cfg.Registry.Subject), zap.Int("id", resp.ID))
		listVersions(ctx, c)
	},
}

var schemaVersionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the versions registered under the configured subject",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		listVersions(ctx, registryClient())
	},
}

var schemaPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the embedded hackernews.proto",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Print(hackernews.Schema())
	},
}

func registryClient() *registry.Client {
	c := registry.NewClient(cfg.Registry.URL, logger)
	c.Username, c.Password = cfg.Registry.Username, cfg.Registry.Password
	return c
}

func listVersions(ctx context.Context, c *registry.Client) {
	versions, err := c.Versions(ctx, cfg.Registry.Subject)
	if err != nil {
		logger.Error("listing schema versions failed", zap.Error(err))
		return
	}
	logger.Info("schema versions", zap.String("subject", cfg.Registry.Subject), zap.Ints("versions", versions))
}

func init() {
	pf := schemaCmd.PersistentFlags()
	pf.String("registry-url", "", "schema registry URL")
	pf.String("subject", "", "schema subject")
	bindFlag("registry.url", pf, "registry-url")
	bindFlag("registry.subject", pf, "subject")

	schemaCmd.AddCommand(schemaRegisterCmd, schemaVersionsCmd, schemaPrintCmd)
}
