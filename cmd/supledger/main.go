package main

import (
	"fmt"
	"os"

	"civic-ledger/config"
	"civic-ledger/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "supledger"

var (
	configFile string
	cfg        *config.Config
	log        zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "SUP token ledger and voting engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
			log = logger.New(cfg.Log.Level, cfg.Log.Pretty)

			if _, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...interface{}) {
				log.Debug().Str("component", "maxprocs").Msgf(format, v...)
			})); err != nil {
				log.Warn().Err(err).Msg("Failed to set GOMAXPROCS")
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(reconcileCommand())
	rootCmd.AddCommand(sweepRoundsCommand())
	rootCmd.AddCommand(migrateCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
