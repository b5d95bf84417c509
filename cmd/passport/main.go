package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/propertypassport/internal/config"
	"github.com/vbonduro/propertypassport/internal/logging"
)

// app carries what every subcommand shares once flags are parsed.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{cleanup: func() {}}
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "passport",
		Short:         "Property Passport UK server and admin tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotenv(envFile); err != nil {
				return err
			}
			a.cfg = config.Load()
			logger, cleanup, err := logging.New(a.cfg.LogLevel, a.cfg.LogFormat, a.cfg.LogFile)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			a.cleanup = cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.cleanup()
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(
		serveCmd(a),
		migrateCmd(a),
		cacheCmd(a),
		usersCmd(a),
		tokenCmd(a),
	)
	return rootCmd
}
