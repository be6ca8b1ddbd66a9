package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create user: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: sys_user.username")))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))
}

func TestClassify(t *testing.T) {
	err := Classify(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, err, ErrConflict)

	err = Classify(&pgconn.PgError{Code: "40P01"})
	assert.ErrorIs(t, err, ErrRetryable)

	plain := errors.New("boom")
	assert.Equal(t, plain, Classify(plain))
	assert.NoError(t, Classify(nil))
}
