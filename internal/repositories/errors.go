package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidhub/backend/internal/apperrors"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = apperrors.New(apperrors.CodeConflict, "record conflict")
)

var schemaErrorCodes = map[string]struct{}{
	"42P01": {}, // undefined_table
	"42703": {}, // undefined_column
	"42601": {}, // syntax_error
}

// handlePostgresError tags a storage error so callers can act on its code.
// Anything that is not a constraint or schema problem is a dependency failure.
func handlePostgresError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", operation, ErrNotFound)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", operation, ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", operation, ErrNotFound)
		case "23502", "23514": // not_null_violation, check_violation
			return apperrors.Wrap(err, apperrors.CodeValidation, operation)
		}
		if _, ok := schemaErrorCodes[pgErr.Code]; ok {
			return apperrors.Wrap(err, apperrors.CodeInternal, operation)
		}
	}

	return apperrors.Dependency(err, operation)
}
