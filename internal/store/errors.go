package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Sentinel errors for the caller-facing error taxonomy. Handlers map these to
// HTTP statuses; everything else is treated as an internal error.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("invalid input")
)

// isUniqueViolation reports whether err is a unique-constraint violation.
// GORM's error translation covers postgres; the string checks cover drivers
// (sqlite in tests) that predate the translator. The unique index in the
// database is the authoritative guard, this just classifies its failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
