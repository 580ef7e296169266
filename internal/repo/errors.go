package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so either can be checked with errors.Is.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that an insert violated a unique index.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite returns plain-text errors; pgx returns SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "sqlstate 23505") ||
		strings.Contains(low, "duplicate key value")
}
