package hnstream

import (
	"context"
	"time"

	"github.com/edgeflare/hnstream/pkg/supervisor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var supervisorCmd = &cobra.Command{
	Use:   "supervisor",
	Short: "Manage the Druid Kafka ingestion supervisor",
}

var supervisorInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Post the ingestion spec to the Druid overlord",
	Long: `Post the ingestion spec (the embedded hackernews spec unless --spec is given)
to the Druid overlord. Druid errors are logged; they do not fail the command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := supervisor.LoadSpec(cfg.Supervisor.SpecFile)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		id, err := supervisor.NewClient(cfg.Supervisor.URL, logger).Install(ctx, spec)
		if err != nil {
			logger.Error("supervisor install failed", zap.Error(err))
			return nil
		}
		logger.Info("supervisor installed", zap.String("id", id))
		return nil
	},
}

var supervisorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List running supervisors",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		ids, err := supervisor.NewClient(cfg.Supervisor.URL, logger).List(ctx)
		if err != nil {
			logger.Error("listing supervisors failed", zap.Error(err))
			return
		}
		logger.Info("supervisors", zap.Strings("ids", ids))
	},
}

func init() {
	pf := supervisorCmd.PersistentFlags()
	pf.String("druid-url", "", "Druid router or overlord URL")
	pf.String("spec", "", "ingestion spec file (default is the embedded hackernews spec)")
	bindFlag("supervisor.url", pf, "druid-url")
	bindFlag("supervisor.specFile", pf, "spec")

	supervisorCmd.AddCommand(supervisorInstallCmd, supervisorListCmd)
}
