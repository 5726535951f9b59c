package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spf13/cobra"

	"github.com/vidhub/backend/internal/apperrors"
	"github.com/vidhub/backend/internal/config"
	"github.com/vidhub/backend/internal/db"
	"github.com/vidhub/backend/internal/logging"
	"github.com/vidhub/backend/internal/retry"
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

var seedNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.sql)?$`)

func newSeedCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <name>",
		Short: "Load a SQL seed file (e.g. dev loads seeds/dev_seed.sql)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Read(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(os.Stderr, cfg.LogLevel)
			if err != nil {
				return err
			}
			ctx = logging.WithLogger(ctx, logger)

			path, err := seedPath(cfg.SeedDir, args[0])
			if err != nil {
				return err
			}
			contents, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read seed %s: %w", path, err)
			}

			pool, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			policy := retry.Policy{Attempts: cfg.Retry.Attempts, Backoff: cfg.Retry.Backoff}
			if err := applySeed(ctx, pool, filepath.Base(path), string(contents), policy); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "applied seed %s\n", filepath.Base(path))
			return nil
		},
	}
}

// seedPath resolves a seed name inside dir, refusing names that could escape it.
func seedPath(dir, name string) (string, error) {
	if !seedNamePattern.MatchString(name) {
		return "", fmt.Errorf("invalid seed name %q", name)
	}
	if !strings.HasSuffix(name, ".sql") {
		name = fmt.Sprintf("%s_seed.sql", name)
	}

	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}
	return filepath.Join(dir, name), nil
}

// applySeed runs the seed script, retrying transient serialization and lock failures.
func applySeed(ctx context.Context, pool db.Pool, name, contents string, policy retry.Policy) error {
	return retry.Do(ctx, policy, func(ctx context.Context) error {
		if _, err := pool.Exec(ctx, contents); err != nil {
			if shouldRetry(err) {
				return apperrors.Dependency(err, "apply seed "+name)
			}
			return fmt.Errorf("apply seed %s: %w", name, err)
		}
		return nil
	})
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := retryablePgErrorCodes[pgErr.Code]
		return ok
	}

	return errors.Is(err, pgx.ErrTxClosed)
}
