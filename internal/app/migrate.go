package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"

	"github.com/vidhub/backend/internal/config"
	"github.com/vidhub/backend/internal/logging"
	"github.com/vidhub/backend/migrations"
)

// migrateLogger forwards golang-migrate progress to slog.
type migrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.verbose
}

func newMigrateCommand(configPath *string) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every migration step")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := openMigrator(*configPath, verbose)
			if err != nil {
				return err
			}
			defer closeMigrator(m)

			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("apply migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := openMigrator(*configPath, verbose)
			if err != nil {
				return err
			}
			defer closeMigrator(m)

			if all {
				err = m.Down()
			} else {
				err = m.Steps(-1)
			}
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("roll back migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration rolled back")
			return nil
		},
	}
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := openMigrator(*configPath, verbose)
			if err != nil {
				return err
			}
			defer closeMigrator(m)

			v, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatVersion(v, dirty))
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func openMigrator(configPath string, verbose bool) (*migrate.Migrate, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	m.Log = migrateLogger{logger: logger, verbose: verbose}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		slog.Default().Warn("close migrator", "error", err)
	}
}

func formatVersion(version uint, dirty bool) string {
	if dirty {
		return fmt.Sprintf("version %d (dirty)", version)
	}
	return fmt.Sprintf("version %d", version)
}
