package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/grcwatch/notify-engine/internal/api"
	"github.com/grcwatch/notify-engine/internal/ingest"
	"github.com/grcwatch/notify-engine/internal/logger"
	"github.com/grcwatch/notify-engine/internal/notify"
	"github.com/grcwatch/notify-engine/internal/scheduler"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduled scans and the event consumer",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := a.scheduler(ctx)
	if err != nil {
		return err
	}
	sched.Start(ctx)
	defer sched.Stop()

	var wg sync.WaitGroup
	if k := a.settings.Kafka; k.Enabled {
		consumer := ingest.NewConsumer(
			ingest.NewKafkaReader(ingest.Config{Brokers: k.Brokers, Topic: k.Topic, GroupID: k.GroupID}),
			a.engine, ingest.Options{}, a.log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil {
				a.log.Error("event consumer stopped", logger.Error(err))
				stop()
			}
		}()
	}

	server := api.NewServer(a.engine, sched, api.Options{
		RequestsPerSecond: a.settings.HTTP.RequestsPerSecond,
		Gatherer:          a.registry,
		HealthCheck:       a.healthCheck,
	}, a.log)
	err = server.Start(ctx, a.settings.HTTP.Addr)
	stop()
	wg.Wait()
	return err
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "scan <alerts|expirations|overdue>",
		Short:     "Run one scan immediately",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{scheduler.ScanAlerts, scheduler.ScanExpirations, scheduler.ScanOverdue},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			sched, err := a.scheduler(cmd.Context())
			if err != nil {
				return err
			}
			res, err := sched.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
}

func purgeCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete read notifications older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if days <= 0 {
				days = a.settings.Engine.RetentionDays
			}
			res, err := a.engine.PurgeOldNotifications(cmd.Context(), days)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (defaults to engine.retention_days)")
	return cmd
}

func migrateCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Opening the datastore migrates the schema.
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			result := map[string]any{"migrated": true}
			if seed {
				created, err := notify.SeedDefaultRules(cmd.Context(), a.rules, a.log)
				if err != nil {
					return err
				}
				result["rulesSeeded"] = created
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "Create the built-in expiration rules if missing")
	return cmd
}
