package billing

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres error codes the recorder reacts to.
const (
	PgErrSerializationFailure = "40001"
	PgErrDeadlockDetected     = "40P01"
	PgErrUniqueViolation      = "23505"
)

// ValidationError reports a missing or malformed operator input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// LookupError reports a referenced category, subcategory or record that does not exist.
type LookupError struct {
	Entity string
	ID     any
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// ConflictError reports a change refused because of existing data, such as deleting a category still in use.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ConcurrencyError marks a transaction that lost a race and may be retried.
type ConcurrencyError struct {
	Err error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrent update conflict: %v", e.Err)
}

func (e *ConcurrencyError) Unwrap() error {
	return e.Err
}

// classify turns retryable Postgres failures into ConcurrencyError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var conflict *ConcurrencyError
	if errors.As(err, &conflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case PgErrSerializationFailure, PgErrDeadlockDetected:
			return &ConcurrencyError{Err: err}
		}
	}
	return err
}

// asPersistence wraps err unless it already is a PersistenceError.
func asPersistence(op string, err error) error {
	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsRetryable(err error) bool {
	var conflict *ConcurrencyError
	return errors.As(err, &conflict)
}

// IsUniqueViolation reports a duplicate key, raw from Postgres or translated by GORM.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == PgErrUniqueViolation
}
