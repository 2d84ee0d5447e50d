package main

import (
	"encoding/json"
	"fmt"
	"os"

	"civic-ledger/config"
	pgStorage "civic-ledger/internal/adapter/storage/postgres"
	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func reconcileCommand() *cobra.Command {
	var accountFlag string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check cached balances against the transaction log",
		Long: "Recomputes every account balance (or one, with --account) from its ledger " +
			"entries and reports drift. Exits non-zero when any account is inconsistent.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			var results []domain.Reconciliation
			if accountFlag != "" {
				id, err := uuid.Parse(accountFlag)
				if err != nil {
					return fmt.Errorf("--account: %w", err)
				}
				rec, err := a.ledger.Reconcile(cmd.Context(), id)
				if err != nil {
					return err
				}
				results = append(results, *rec)
			} else {
				results, err = a.ledger.ReconcileAll(cmd.Context())
				if err != nil {
					return err
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}

			drifted := 0
			for _, r := range results {
				if !r.Consistent {
					drifted++
				}
			}
			if drifted > 0 {
				return fmt.Errorf("%d of %d accounts do not reconcile", drifted, len(results))
			}
			log.Info().Int("accounts", len(results)).Msg("Ledger reconciles")
			return nil
		},
	}
	cmd.Flags().StringVar(&accountFlag, "account", "", "reconcile a single account id")
	return cmd
}

func sweepRoundsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-rounds",
		Short: "Persist round status transitions once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			moved, err := a.voting.SweepRounds(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("transitioned", moved).Msg("Round sweep complete")
			return nil
		},
	}
}

func migrateCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema file to the configured PostgreSQL database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate needs database.driver=%s, got %q", config.DriverPostgres, cfg.Database.Driver)
			}
			ddl, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}

			pool, err := pgStorage.NewPool(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pgStorage.ApplySchema(cmd.Context(), pool, string(ddl)); err != nil {
				return err
			}
			log.Info().Str("file", file).Msg("Schema applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "migrations/0001_init.sql", "schema file to apply")
	return cmd
}
