package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/shepherd/pkg/composables"
	"github.com/iota-uz/shepherd/pkg/configuration"
	"github.com/iota-uz/shepherd/pkg/database"
	"github.com/iota-uz/shepherd/pkg/logging"
)

type globalOptions struct {
	driver  string
	dsn     string
	verbose bool
}

func newRootCmd() *cobra.Command {
	var g globalOptions

	cmd := &cobra.Command{
		Use:           "crmctl",
		Short:         "Contact import, duplicate review and schema tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.driver, "driver", "", "Database driver: sqlite|pgx (default: DB_DRIVER)")
	cmd.PersistentFlags().StringVar(&g.dsn, "dsn", "", "Database DSN (default: DB_DSN)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log progress to stderr")

	cmd.AddCommand(newMigrateCmd(&g))
	cmd.AddCommand(newImportCmd(&g))
	cmd.AddCommand(newDedupeCmd(&g))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}

// resolveDatabase fills driver and dsn from the environment when the flags are empty.
func (g *globalOptions) resolveDatabase() (configuration.DatabaseOptions, error) {
	if _, err := configuration.LoadEnv([]string{".env", ".env.local"}); err != nil {
		return configuration.DatabaseOptions{}, withCode(exitUsage, fmt.Errorf("load env: %w", err))
	}
	opts, err := env.ParseAs[configuration.DatabaseOptions]()
	if err != nil {
		return configuration.DatabaseOptions{}, withCode(exitUsage, fmt.Errorf("parse env: %w", err))
	}
	if v := strings.TrimSpace(g.driver); v != "" {
		opts.Driver = v
	}
	if v := strings.TrimSpace(g.dsn); v != "" {
		opts.DSN = v
	}
	if err := opts.Validate(); err != nil {
		return configuration.DatabaseOptions{}, withCode(exitUsage, err)
	}
	return opts, nil
}

func (g *globalOptions) logger() *logrus.Logger {
	level := logrus.WarnLevel
	if g.verbose {
		level = logrus.InfoLevel
	}
	logger := logging.ConsoleLogger(level)
	logger.SetOutput(os.Stderr)
	return logger
}

// withDB opens and migrates the database, then runs fn with it bound to ctx.
func (g *globalOptions) withDB(ctx context.Context, fn func(ctx context.Context, db *sqlx.DB) error) error {
	opts, err := g.resolveDatabase()
	if err != nil {
		return err
	}
	logger := g.logger()
	db, err := database.Open(ctx, opts.Driver, opts.DSN)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, logger); err != nil {
		return withCode(exitDB, err)
	}
	ctx = composables.WithDB(ctx, db)
	ctx = composables.WithLogger(ctx, logrus.NewEntry(logger))
	return fn(ctx, db)
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
