// Package repository provides data access layer implementations.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrSeasonNotFound      = errors.New("season not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrRosterEntryNotFound = errors.New("roster entry not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrImportRunNotFound   = errors.New("import run not found")

	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("conflicts with an existing record")
	// ErrInUse is returned when a row cannot be deleted because others reference it.
	ErrInUse = errors.New("record is still referenced")
	// ErrInvalidReference is returned when a write points at a row that does not exist.
	ErrInvalidReference = errors.New("referenced record does not exist")
	// ErrStale is returned when an optimistic version check fails.
	ErrStale = errors.New("record was modified concurrently")
	// ErrNotEditable is returned when a match is no longer in a state that allows the change.
	ErrNotEditable = errors.New("match can no longer be changed")
)

// PostgreSQL error codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// writeError maps constraint violations on insert/update to sentinel errors.
func writeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation, pgCheckViolation:
			return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// deleteError maps foreign key violations on delete to ErrInUse.
func deleteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%w: %s", ErrInUse, pgErr.TableName)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}
