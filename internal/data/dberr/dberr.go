package dberr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrConflict  = errors.New("conflict")
	ErrRetryable = errors.New("retryable")
)

// IsUniqueViolation reports a unique/primary key violation on postgres or sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// Fallback: string match (covers wrapped errors that lose type info).
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlstate 23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint failed")
}

// IsRetryable reports serialization, deadlock and lock timeouts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "deadlock")
}

// Classify tags err with ErrConflict or ErrRetryable when it matches.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return errors.Join(ErrConflict, err)
	case IsRetryable(err):
		return errors.Join(ErrRetryable, err)
	}
	return err
}
