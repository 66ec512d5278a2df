package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports whether err is a unique constraint violation.
// Dialects word the error differently, so the raw message is inspected
// when gorm's translated sentinel does not match.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()

	// PostgreSQL error code 23505
	if strings.Contains(msg, "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL error code 1062
	if strings.Contains(msg, "Error 1062") {
		return true
	}

	// SQLite error code 2067
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}

	return false
}
