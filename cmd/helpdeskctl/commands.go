package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/report"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type storeOpener func(ctx context.Context) (repository.Store, error)

func newRootCmd(cfg *config.Config, open storeOpener, logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:          "helpdeskctl",
		Short:        "Helpdesk operator commands",
		SilenceUsage: true,
	}
	root.AddCommand(migrateCmd(cfg, logger))
	root.AddCommand(seedCmd(cfg, open, logger))
	root.AddCommand(reportCmd(open, logger))
	return root
}

func migrateCmd(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded SQL migrations to Postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Store.Backend != config.StoreBackendPostgres {
				return errors.New("migrate requires STORE_BACKEND=postgres")
			}
			ctx := cmd.Context()
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				return err
			}
			names, err := persistence.MigrationNames()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migrations\n", len(names))
			return nil
		},
	}
}

func seedCmd(cfg *config.Config, open storeOpener, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo admin, agent and user accounts if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			created, err := service.NewUserService(store, logger, cfg.Auth.BcryptCost).SeedDefaults(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users\n", created)
			return nil
		},
	}
}

func reportCmd(open storeOpener, logger *zap.Logger) *cobra.Command {
	reportRoot := &cobra.Command{
		Use:   "report",
		Short: "Performance reports",
	}

	withPerformance := func(run func(cmd *cobra.Command, perf *service.PerformanceService) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			return run(cmd, service.NewPerformanceService(store, logger))
		}
	}

	reportRoot.AddCommand(&cobra.Command{
		Use:   "agents",
		Short: "Resolved tickets, resolution time and SLA compliance per agent",
		RunE: withPerformance(func(cmd *cobra.Command, perf *service.PerformanceService) error {
			rows, err := perf.AgentPerformance(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AGENT\tRESOLVED\tAVG HOURS\tSLA %")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%d\t%.1f\t%d\n", r.Name, r.TicketsResolved, r.AverageResolutionHours, r.SLAComplianceRate)
			}
			return w.Flush()
		}),
	})

	reportRoot.AddCommand(&cobra.Command{
		Use:   "priorities",
		Short: "Resolved tickets and SLA compliance per priority",
		RunE: withPerformance(func(cmd *cobra.Command, perf *service.PerformanceService) error {
			rows, err := perf.PriorityPerformance(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRIORITY\tRESOLVED\tSLA %")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%d\t%d\n", r.Priority, r.TicketsResolved, r.SLAComplianceRate)
			}
			return w.Flush()
		}),
	})

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write both reports to an XLSX workbook",
		RunE: withPerformance(func(cmd *cobra.Command, perf *service.PerformanceService) error {
			agents, err := perf.AgentPerformance(cmd.Context())
			if err != nil {
				return err
			}
			priorities, err := perf.PriorityPerformance(cmd.Context())
			if err != nil {
				return err
			}
			buf, err := report.WritePerformanceWorkbook(agents, priorities)
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = report.Filename(time.Now())
			}
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		}),
	}
	export.Flags().StringVarP(&out, "out", "o", "", "output file (default performance-<timestamp>.xlsx)")
	reportRoot.AddCommand(export)

	return reportRoot
}
